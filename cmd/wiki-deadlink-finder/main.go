package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/common"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/logging"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/metrics"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/interface/cli"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/interface/presenter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

// dashboardLogFile receives logs while the dashboard owns the terminal
const dashboardLogFile = "wdf.log"

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Parse command line flags
	options, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				return 0
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	if options.Version {
		fmt.Println(common.Current().String())
		return 0
	}

	logger, err := newLogger(options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	assembler := cli.NewAssembler(options, logger)

	switch options.Active {
	case cli.CommandExport:
		if err := assembler.Export(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	case cli.CommandCategories:
		if err := assembler.SearchCategories(context.Background(), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	return scan(assembler, options, logger)
}

func newLogger(options *cli.Options) (*zap.Logger, error) {
	cfg := logging.Config{Level: options.LogLevel}
	switch {
	case options.LogFile != "":
		cfg.OutputPaths = []string{options.LogFile}
	case options.Active == cli.CommandScan && options.Scan.ShowDashboard:
		cfg.OutputPaths = []string{dashboardLogFile}
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("version", common.Current().Short()),
	), nil
}

func scan(assembler *cli.Assembler, options *cli.Options, logger *zap.Logger) int {
	cfg := options.Scan

	// Assemble use case with all dependencies
	s, err := assembler.AssembleScan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()
	useCase := s.UseCase

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			if !cfg.ShowDashboard {
				fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, finishing in-flight links...")
			}
			logger.Info("received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	collector := &presenter.AvailableCollector{}
	useCase.RegisterMetricsObserver(collector)

	if cfg.MetricsAddr != "" {
		exporter := metrics.NewExporter(logger.Named("metrics"))
		useCase.RegisterMetricsObserver(exporter)
		go func() {
			if err := exporter.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics server failed", zap.String("addr", cfg.MetricsAddr), zap.Error(err))
			}
		}()
	}

	var runErr error
	if cfg.ShowDashboard {
		dashboard := presenter.NewDashboard()
		useCase.RegisterMetricsObserver(dashboard)

		// Run dashboard in TUI mode
		p := tea.NewProgram(dashboard, tea.WithAltScreen())

		// Run use case in background
		done := make(chan error, 1)
		go func() {
			done <- useCase.Execute(ctx)
			p.Quit()
		}()

		// Start TUI
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		}
		// Quitting the dashboard stops the scan
		cancel()
		runErr = <-done
	} else {
		var progress *presenter.Progress
		if !cfg.NoProgress {
			progress = presenter.NewProgress(os.Stderr)
			useCase.RegisterMetricsObserver(progress)
		}
		runErr = useCase.Execute(ctx)
		if progress != nil {
			_ = progress.Finish()
		}
	}

	m := useCase.GetMetrics()
	fmt.Fprintln(os.Stderr, presenter.RenderSummary(m, collector.Domains()))

	if runErr == nil || (errors.Is(runErr, context.Canceled) && m.PersistErrors == 0) {
		logger.Info("scan finished",
			zap.Int64("links_probed", m.LinksProbed),
			zap.Int64("links_dead", m.LinksDead),
			zap.Int("available_domains", len(collector.Domains())),
		)
		return 0
	}

	logger.Error("scan finished with errors", zap.Error(runErr))
	fmt.Fprintf(os.Stderr, "Scan error: %v\n", runErr)
	return 1
}
