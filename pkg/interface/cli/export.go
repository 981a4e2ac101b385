package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/storage"
	"go.uber.org/zap"
)

// Export writes the selected collection to the configured output
func (a *Assembler) Export(stdout io.Writer) (err error) {
	cfg := a.options.Export

	store, err := storage.OpenJSONStore(a.options.DeadLinksFile, a.options.DomainsFile, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	var table storage.Table
	switch cfg.Collection {
	case "dead-links":
		table = storage.DeadLinksTable(store.DeadLinks())
	default:
		table = storage.DomainsTable(store.Domains(), cfg.OnlyAvailable)
	}

	w := stdout
	if cfg.Output != "-" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()
		w = f
	}

	if err := storage.WriteTable(w, cfg.Format, table); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.Format, err)
	}

	a.logger.Info("export finished",
		zap.String("collection", cfg.Collection),
		zap.String("format", cfg.Format),
		zap.String("output", cfg.Output),
		zap.Int("rows", len(table.Rows)),
	)
	return nil
}
