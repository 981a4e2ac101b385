package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/repository"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/service"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ScanUseCase orchestrates the dead-link scan: candidates flow from the
// source through exclusion and deduplication to the workers, which probe
// them, record dead links and evaluate the domains behind them.
type ScanUseCase struct {
	config Config

	// Services
	prober      service.LinkProber
	extractor   service.DomainExtractor
	exclusion   service.ExclusionPolicy
	evaluator   service.AvailabilityEvaluator
	coordinator *Coordinator

	// Repositories
	source repository.CandidateSource
	filter repository.SeenFilter
	queue  repository.CandidateQueue
	store  repository.RecordStore

	// State
	stats            *Stats
	logger           *zap.Logger
	startTime        time.Time
	workers          []*Worker
	wg               sync.WaitGroup
	group            singleflight.Group
	evaluated        sync.Map // domain -> entity.DomainRecord evaluated this run
	metricsObservers []MetricsObserver

	errMu sync.Mutex
	errs  []error
}

// Config holds the use case configuration
type Config struct {
	NumWorkers int
	// Recheck re-evaluates domains already present in the store
	Recheck bool
	// SeenFilterFile persists the dedup filter between runs when set
	SeenFilterFile string
	Now            func() time.Time
}

// MetricsObserver observes metrics changes
type MetricsObserver interface {
	OnMetricsUpdate(metrics *entity.Metrics)
	AddAvailableDomain(domain string) // Notify when a domain is found potentially available
}

// NewScanUseCase creates a new scan use case
func NewScanUseCase(
	config Config,
	source repository.CandidateSource,
	prober service.LinkProber,
	extractor service.DomainExtractor,
	exclusion service.ExclusionPolicy,
	evaluator service.AvailabilityEvaluator,
	coordinator *Coordinator,
	filter repository.SeenFilter,
	queue repository.CandidateQueue,
	store repository.RecordStore,
	stats *Stats,
	logger *zap.Logger,
) *ScanUseCase {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if stats == nil {
		stats = NewStats()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanUseCase{
		config:           config,
		source:           source,
		prober:           prober,
		extractor:        extractor,
		exclusion:        exclusion,
		evaluator:        evaluator,
		coordinator:      coordinator,
		filter:           filter,
		queue:            queue,
		store:            store,
		stats:            stats,
		logger:           logger,
		metricsObservers: make([]MetricsObserver, 0),
	}
}

// RegisterMetricsObserver registers a metrics observer
func (uc *ScanUseCase) RegisterMetricsObserver(observer MetricsObserver) {
	uc.metricsObservers = append(uc.metricsObservers, observer)
}

// notifyMetricsObservers notifies all registered observers
func (uc *ScanUseCase) notifyMetricsObservers() {
	metrics := uc.GetMetrics()
	for _, observer := range uc.metricsObservers {
		observer.OnMetricsUpdate(metrics)
	}
}

// Execute runs the scan until the source is exhausted or ctx is cancelled.
// Cancellation stops the source; candidates already being processed run to
// completion. Persistence failures do not stop the scan and are joined into
// the returned error.
func (uc *ScanUseCase) Execute(ctx context.Context) error {
	uc.startTime = uc.config.Now()

	if uc.config.SeenFilterFile != "" {
		if err := uc.filter.Load(uc.config.SeenFilterFile); err != nil {
			uc.logger.Warn("seen filter not loaded", zap.String("file", uc.config.SeenFilterFile), zap.Error(err))
		}
	}

	// Start periodic metrics updates
	tickerCtx, stopTicker := context.WithCancel(ctx)
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		uc.updateMetricsPeriodically(tickerCtx)
	}()

	// Start workers
	uc.startWorkers(ctx)

	// Feed candidates; the queue blocks the source when workers fall behind
	feedErr := uc.feed(ctx)
	uc.queue.Close()
	uc.wg.Wait()

	stopTicker()
	<-tickerDone
	uc.notifyMetricsObservers()

	if uc.config.SeenFilterFile != "" {
		if err := uc.filter.Save(uc.config.SeenFilterFile); err != nil {
			uc.fail(fmt.Errorf("save seen filter: %w", err))
		}
	}

	uc.errMu.Lock()
	defer uc.errMu.Unlock()
	return errors.Join(append([]error{feedErr}, uc.errs...)...)
}

// feed pulls candidates from the source, drops excluded and already seen
// pairs and enqueues the rest
func (uc *ScanUseCase) feed(ctx context.Context) error {
	articles := mapset.NewThreadUnsafeSet[string]()

	for c, err := range uc.source.Candidates(ctx) {
		if err != nil {
			uc.stats.sourceErrors.Add(1)
			uc.logger.Warn("source error", zap.Error(err))
			continue
		}
		if articles.Add(c.Article) {
			uc.stats.articlesSeen.Add(1)
		}

		if uc.exclusion.ExcludeURL(c.URL) {
			uc.stats.linksExcluded.Add(1)
			continue
		}
		if uc.filter.TestAndAdd(c.Key()) {
			uc.stats.linksDuplicate.Add(1)
			continue
		}

		if err := uc.queue.Enqueue(ctx, c); err != nil {
			return fmt.Errorf("enqueue %s: %w", c.URL, err)
		}
		uc.stats.linksQueued.Add(1)
	}
	return ctx.Err()
}

// updateMetricsPeriodically periodically updates and notifies observers
func (uc *ScanUseCase) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.notifyMetricsObservers()
		}
	}
}

// startWorkers starts all worker goroutines
func (uc *ScanUseCase) startWorkers(ctx context.Context) {
	uc.workers = make([]*Worker, uc.config.NumWorkers)
	for i := 0; i < uc.config.NumWorkers; i++ {
		worker := &Worker{
			id:      i,
			useCase: uc,
			queue:   uc.queue,
		}
		uc.workers[i] = worker
		uc.wg.Add(1)
		go worker.Run(ctx, &uc.wg)
	}
}

// process probes one candidate and follows up on a dead outcome
func (uc *ScanUseCase) process(ctx context.Context, c entity.Candidate) {
	rec := uc.prober.Probe(ctx, c)
	uc.stats.linksProbed.Add(1)
	if !rec.IsDead() {
		uc.stats.linksAlive.Add(1)
		return
	}
	uc.stats.linksDead.Add(1)

	// Links the prober could not even parse never reach evaluation.
	// IP literals have no registrable domain either.
	invalid := rec.DeadReason.Kind == entity.ReasonInvalidURL
	if !invalid {
		if domain, err := uc.extractor.Extract(c.URL); err == nil {
			rec.Domain = domain
		}
	}
	if err := uc.store.RecordDeadLink(rec); err != nil {
		uc.fail(fmt.Errorf("record dead link %s: %w", rec.URL, err))
	}
	uc.logger.Debug("dead link",
		zap.String("url", rec.URL),
		zap.String("article", rec.SourceArticle),
		zap.Stringer("reason", rec.DeadReason),
		zap.Int("attempts", rec.Attempts),
	)

	if invalid || rec.Domain == "" {
		return
	}
	if uc.exclusion.SkipEvaluation(c.URL) {
		uc.stats.domainsExcluded.Add(1)
		return
	}
	uc.recordDomain(ctx, rec)
}

// recordDomain adds the sighting of a dead link to its domain record,
// evaluating the domain when no usable verdict exists yet
func (uc *ScanUseCase) recordDomain(ctx context.Context, link entity.LinkRecord) {
	rec, fresh := uc.verdict(ctx, link.Domain)
	rec.FoundOnArticles = nil
	rec.DeadURLs = nil
	rec.FirstSeenAt = time.Time{}
	rec.LastSeenAt = time.Time{}
	rec.Sighted(link.SourceArticle, link.URL, uc.config.Now())

	merged, err := uc.store.RecordDomain(rec, fresh && uc.config.Recheck)
	if err != nil {
		uc.fail(fmt.Errorf("record domain %s: %w", rec.Domain, err))
	}
	if fresh && merged.Availability == entity.PotentiallyAvailable {
		uc.logger.Info("potentially available domain",
			zap.String("domain", merged.Domain),
			zap.Strings("articles", merged.FoundOnArticles),
		)
		for _, observer := range uc.metricsObservers {
			observer.AddAvailableDomain(merged.Domain)
		}
	}
}

// verdict returns the verdict for domain and whether it was evaluated by
// this call. Each domain is evaluated at most once per run; a stored verdict
// is reused unless Recheck is set.
func (uc *ScanUseCase) verdict(ctx context.Context, domain string) (entity.DomainRecord, bool) {
	if v, ok := uc.evaluated.Load(domain); ok {
		return v.(entity.DomainRecord), false
	}
	if !uc.config.Recheck {
		if stored, ok := uc.store.Domain(domain); ok {
			uc.stats.domainsSkipped.Add(1)
			return stored, false
		}
	}

	fresh := false
	v, _, _ := uc.group.Do(domain, func() (any, error) {
		if v, ok := uc.evaluated.Load(domain); ok {
			return v, nil
		}
		rec := uc.evaluator.Evaluate(ctx, domain)
		uc.stats.verdict(rec.Availability)
		uc.evaluated.Store(domain, rec)
		fresh = true
		return rec, nil
	})
	return v.(entity.DomainRecord), fresh
}

// fail records a persistence failure; the scan carries on
func (uc *ScanUseCase) fail(err error) {
	uc.stats.persistErrors.Add(1)
	uc.logger.Error("persist failed", zap.Error(err))

	uc.errMu.Lock()
	uc.errs = append(uc.errs, err)
	uc.errMu.Unlock()
}

// GetMetrics returns the current metrics
func (uc *ScanUseCase) GetMetrics() *entity.Metrics {
	metrics := &entity.Metrics{
		QueueLength:  uc.queue.Len(),
		TotalWorkers: uc.config.NumWorkers,
		StartTime:    uc.startTime,
		LastUpdate:   uc.config.Now(),
	}
	uc.stats.fill(metrics)

	if uc.coordinator != nil {
		metrics.InFlight = uc.coordinator.InFlight()
		metrics.PeakInFlight = uc.coordinator.Peak()
	}

	// Count active workers and collect their current urls
	for _, worker := range uc.workers {
		if worker != nil && worker.IsActive() {
			metrics.ActiveWorkers++
			if url := worker.GetCurrentURL(); url != "" {
				metrics.ActiveURLs = append(metrics.ActiveURLs, url)
			}
		}
	}
	return metrics
}
