// Package metrics exposes scan progress to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "wdf"

// Exporter implements application.MetricsObserver and serves the latest
// snapshot on /metrics
type Exporter struct {
	mu       sync.RWMutex
	snapshot entity.Metrics

	registry  *prometheus.Registry
	available prometheus.Counter
	logger    *zap.Logger
}

// NewExporter creates an exporter with its own registry
func NewExporter(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		logger:   logger,
		available: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "available_domains_found_total",
			Help:      "Domains found potentially available during this run.",
		}),
	}
	e.registry.MustRegister(e.available)

	counters := []struct {
		name string
		help string
		get  func(m *entity.Metrics) int64
	}{
		{"articles_seen_total", "Articles whose links were read.", func(m *entity.Metrics) int64 { return m.ArticlesSeen }},
		{"source_errors_total", "Articles or listings that could not be read.", func(m *entity.Metrics) int64 { return m.SourceErrors }},
		{"links_queued_total", "Links queued for probing.", func(m *entity.Metrics) int64 { return m.LinksQueued }},
		{"links_excluded_total", "Archive links never probed.", func(m *entity.Metrics) int64 { return m.LinksExcluded }},
		{"links_duplicate_total", "Article and url pairs seen before.", func(m *entity.Metrics) int64 { return m.LinksDuplicate }},
		{"links_alive_total", "Links found alive.", func(m *entity.Metrics) int64 { return m.LinksAlive }},
		{"links_dead_total", "Links found dead.", func(m *entity.Metrics) int64 { return m.LinksDead }},
		{"probe_requests_total", "HTTP requests sent by the prober.", func(m *entity.Metrics) int64 { return m.ProbeRequests }},
		{"whois_queries_total", "WHOIS queries sent.", func(m *entity.Metrics) int64 { return m.WhoisQueries }},
		{"dns_queries_total", "DNS lookups sent.", func(m *entity.Metrics) int64 { return m.DNSQueries }},
		{"domains_skipped_total", "Domains reused from the store without evaluation.", func(m *entity.Metrics) int64 { return m.DomainsSkipped }},
		{"domains_excluded_total", "Dead links whose domain is never evaluated.", func(m *entity.Metrics) int64 { return m.DomainsExcluded }},
		{"persist_errors_total", "Failed store writes.", func(m *entity.Metrics) int64 { return m.PersistErrors }},
	}
	for _, c := range counters {
		get := c.get
		e.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      c.name,
			Help:      c.help,
		}, e.read(get)))
	}

	verdicts := prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "domains_evaluated_total"),
		"Domains evaluated, by verdict.", []string{"availability"}, nil)
	e.registry.MustRegister(&verdictCollector{exporter: e, desc: verdicts})

	gauges := []struct {
		name string
		help string
		get  func(m *entity.Metrics) int64
	}{
		{"queue_length", "Links waiting for a worker.", func(m *entity.Metrics) int64 { return int64(m.QueueLength) }},
		{"active_workers", "Workers processing a link.", func(m *entity.Metrics) int64 { return int64(m.ActiveWorkers) }},
		{"in_flight", "Network operations currently admitted.", func(m *entity.Metrics) int64 { return m.InFlight }},
		{"peak_in_flight", "Highest number of network operations admitted at once.", func(m *entity.Metrics) int64 { return m.PeakInFlight }},
	}
	for _, g := range gauges {
		get := g.get
		e.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      g.name,
			Help:      g.help,
		}, e.read(get)))
	}

	return e
}

func (e *Exporter) read(get func(m *entity.Metrics) int64) func() float64 {
	return func() float64 {
		e.mu.RLock()
		defer e.mu.RUnlock()
		return float64(get(&e.snapshot))
	}
}

// OnMetricsUpdate stores the latest snapshot
func (e *Exporter) OnMetricsUpdate(m *entity.Metrics) {
	e.mu.Lock()
	e.snapshot = *m
	e.mu.Unlock()
}

// AddAvailableDomain counts a potentially available domain
func (e *Exporter) AddAvailableDomain(string) {
	e.available.Inc()
}

// Handler returns the /metrics handler
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type verdictCollector struct {
	exporter *Exporter
	desc     *prometheus.Desc
}

func (c *verdictCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *verdictCollector) Collect(ch chan<- prometheus.Metric) {
	c.exporter.mu.RLock()
	m := c.exporter.snapshot
	c.exporter.mu.RUnlock()

	for availability, n := range map[entity.Availability]int64{
		entity.PotentiallyAvailable: m.DomainsAvailable,
		entity.Registered:           m.DomainsTaken,
		entity.Restricted:           m.DomainsRestrict,
		entity.Indeterminate:        m.DomainsUnknown,
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(n), string(availability))
	}
}
