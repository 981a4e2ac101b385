package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/application"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/common"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/repository"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/dns"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/domainservice"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/http"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/source"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/storage"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/infrastructure/whois"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Assembler assembles all components for the application
type Assembler struct {
	options *Options
	logger  *zap.Logger
}

// NewAssembler creates a new assembler
func NewAssembler(options *Options, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{options: options, logger: logger}
}

// Scan is an assembled scan with the resources it holds
type Scan struct {
	UseCase     *application.ScanUseCase
	Coordinator *application.Coordinator
	Store       *storage.JSONStore

	logWriter *storage.LogWriter
}

// Close releases the store and the traffic logs
func (s *Scan) Close() error {
	return errors.Join(s.Store.Close(), s.logWriter.Close())
}

// AssembleScan assembles the scan use case with all dependencies
func (a *Assembler) AssembleScan() (*Scan, error) {
	cfg := a.options.Scan

	src, err := a.candidateSource()
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	store, err := storage.OpenJSONStore(a.options.DeadLinksFile, a.options.DomainsFile, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	logWriter, err := storage.NewLogWriter(cfg.ProbeLogFile, cfg.LookupLogFile)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}

	stats := application.NewStats()
	coordinator := application.NewCoordinator(cfg.Concurrency)
	policy := retry.Policy{
		MaxAttempts:  cfg.Retries + 1,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}

	// Create link prober
	prober := http.NewProber(http.Config{
		Timeout:      cfg.Timeout,
		UserAgent:    common.Current().UserAgent(cfg.UserAgent),
		MaxRedirects: cfg.MaxRedirects,
		Retry:        policy,
		Admitter:     coordinator,
		LogWriter:    logWriter,
		Logger:       a.logger.Named("prober"),
		OnRequest:    stats.ProbeRequest,
	})

	// Create availability evaluator
	evaluator := domainservice.NewEvaluator(domainservice.EvaluatorConfig{
		Restrictions: domainservice.NewRestrictionTable(!cfg.NoRestrictedFilter, cfg.RestrictedSuffixes),
		Whois: whois.NewClient(whois.Config{
			Timeout: cfg.WhoisTimeout,
			Server:  cfg.WhoisServer,
		}),
		Resolver: dns.NewResolver(dns.Config{
			Servers: cfg.DNSServers,
			Timeout: cfg.DNSTimeout,
		}),
		Admitter:     coordinator,
		WhoisLimiter: rate.NewLimiter(rate.Limit(cfg.WhoisRate), 1),
		WhoisTimeout: cfg.WhoisTimeout,
		DNSTimeout:   cfg.DNSTimeout,
		Retry:        policy,
		LogWriter:    logWriter,
		Logger:       a.logger.Named("evaluator"),
		OnLookup:     stats.Lookup,
	})

	exclusion := domainservice.NewExclusionPolicy(
		domainservice.DefaultArchiveHosts,
		append(append([]string{}, domainservice.DefaultExcludedEndings...), cfg.ExcludedEndings...),
	)

	filter := storage.NewBloomFilter(storage.Config{
		Size:              cfg.BloomFilterSize,
		FalsePositiveRate: cfg.BloomFilterFP,
	})

	useCase := application.NewScanUseCase(
		application.Config{
			NumWorkers:     cfg.NumWorkers,
			Recheck:        cfg.Recheck,
			SeenFilterFile: cfg.BloomFilterFile,
		},
		src,
		prober,
		domainservice.NewExtractor(),
		exclusion,
		evaluator,
		coordinator,
		filter,
		storage.NewCandidateQueue(cfg.QueueSize),
		store,
		stats,
		a.logger.Named("scan"),
	)

	return &Scan{
		UseCase:     useCase,
		Coordinator: coordinator,
		Store:       store,
		logWriter:   logWriter,
	}, nil
}

// candidateSource picks the source named by the options
func (a *Assembler) candidateSource() (repository.CandidateSource, error) {
	cfg := a.options.Scan

	if cfg.InputFile != "" {
		if cfg.InputFile != source.StdinPath {
			if _, err := os.Stat(cfg.InputFile); err != nil {
				return nil, err
			}
		}
		return source.NewFile(cfg.InputFile), nil
	}

	return source.NewWikipedia(source.WikipediaConfig{
		BaseURL:      cfg.WikiURL,
		Search:       cfg.Search,
		SearchLimit:  cfg.SearchLimit,
		Category:     cfg.Category,
		MaxPages:     cfg.MaxPages,
		ArticleDelay: cfg.ArticleDelay,
		Timeout:      cfg.Timeout,
		UserAgent:    cfg.UserAgent,
		Logger:       a.logger.Named("wikipedia"),
	})
}
