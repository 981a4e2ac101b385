package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/common"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/source"
	"go.uber.org/zap"
)

// SearchCategories prints the categories matching the query, one
// "title<TAB>url" line each
func (a *Assembler) SearchCategories(ctx context.Context, stdout io.Writer) error {
	cfg := a.options.Categories

	pages, err := source.SearchCategories(ctx, source.WikipediaConfig{
		BaseURL:   cfg.WikiURL,
		Timeout:   cfg.Timeout,
		UserAgent: common.Current().UserAgent(cfg.UserAgent),
		Logger:    a.logger.Named("wikipedia"),
	}, cfg.Query, cfg.Limit)
	if err != nil {
		return err
	}

	for _, p := range pages {
		if _, err := fmt.Fprintf(stdout, "%s\t%s\n", p.Title, p.URL); err != nil {
			return err
		}
	}

	a.logger.Info("category search finished",
		zap.String("query", cfg.Query),
		zap.Int("categories", len(pages)),
	)
	return nil
}
