package domainservice

import (
	"context"
	"errors"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/repository"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/service"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EvaluatorConfig holds evaluator dependencies and tuning
type EvaluatorConfig struct {
	Restrictions service.RestrictionChecker
	Whois        service.WhoisClient
	Resolver     service.DNSResolver
	Admitter     service.Admitter

	// WhoisLimiter paces WHOIS queries; nil means unlimited
	WhoisLimiter *rate.Limiter
	WhoisTimeout time.Duration
	DNSTimeout   time.Duration
	Retry        retry.Policy

	LogWriter repository.LogWriter
	Logger    *zap.Logger
	// OnLookup is called once per WHOIS or DNS attempt
	OnLookup func(kind string)
	Now      func() time.Time
}

// Evaluator implements service.AvailabilityEvaluator
type Evaluator struct {
	cfg EvaluatorConfig
}

// NewEvaluator creates a new availability evaluator
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	if cfg.WhoisLimiter == nil {
		cfg.WhoisLimiter = rate.NewLimiter(rate.Inf, 1)
	}
	if cfg.WhoisTimeout <= 0 {
		cfg.WhoisTimeout = 15 * time.Second
	}
	if cfg.DNSTimeout <= 0 {
		cfg.DNSTimeout = 5 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.Once(nil)
	}
	cfg.Retry.IsRetryable = isTransientLookup
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OnLookup == nil {
		cfg.OnLookup = func(string) {}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Admitter == nil {
		cfg.Admitter = unbounded{}
	}
	return &Evaluator{cfg: cfg}
}

// Evaluate gathers the availability signals of domain and decides its verdict.
// Restricted domains are decided locally without any lookup.
func (e *Evaluator) Evaluate(ctx context.Context, domain string) entity.DomainRecord {
	var signals entity.Signals
	if e.cfg.Restrictions != nil && e.cfg.Restrictions.IsRestricted(domain) {
		signals.IsRestrictedTLD = true
		return entity.NewDomainRecord(domain, signals, e.cfg.Now())
	}

	e.whoisSignal(ctx, domain, &signals)
	e.dnsSignal(ctx, domain, &signals)

	rec := entity.NewDomainRecord(domain, signals, e.cfg.Now())
	e.cfg.Logger.Debug("domain evaluated",
		zap.String("domain", domain),
		zap.String("availability", string(rec.Availability)),
		zap.Int("whois_attempts", signals.WhoisAttempts),
		zap.Int("dns_attempts", signals.DNSAttempts),
	)
	return rec
}

func (e *Evaluator) whoisSignal(ctx context.Context, domain string, signals *entity.Signals) {
	var info *service.WhoisInfo
	attempts, err := retry.Do(ctx, e.cfg.Retry, func(ctx context.Context, attempt int) error {
		if err := e.cfg.WhoisLimiter.Wait(ctx); err != nil {
			return err
		}
		start := time.Now()
		err := e.cfg.Admitter.Do(ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, e.cfg.WhoisTimeout)
			defer cancel()
			var lerr error
			info, lerr = e.cfg.Whois.Lookup(ctx, domain)
			return lerr
		})
		e.cfg.OnLookup(entity.LookupWhois)
		e.logLookup(entity.LookupWhois, domain, attempt, whoisPresence(err), err, time.Since(start))
		return err
	})
	signals.WhoisAttempts = attempts

	switch {
	case err == nil:
		signals.HasWhois = entity.Bool(true)
		if info != nil {
			signals.ExpirationDate = info.ExpirationDate
			signals.Registrar = info.Registrar
		}
	case errors.Is(err, service.ErrNoWhoisRecord):
		signals.HasWhois = entity.Bool(false)
	default:
		e.cfg.Logger.Warn("whois lookup inconclusive", zap.String("domain", domain), zap.Int("attempts", attempts), zap.Error(err))
	}
}

func (e *Evaluator) dnsSignal(ctx context.Context, domain string, signals *entity.Signals) {
	var present bool
	attempts, err := retry.Do(ctx, e.cfg.Retry, func(ctx context.Context, attempt int) error {
		start := time.Now()
		err := e.cfg.Admitter.Do(ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, e.cfg.DNSTimeout)
			defer cancel()
			var lerr error
			present, lerr = e.cfg.Resolver.HasRecords(ctx, domain)
			return lerr
		})
		e.cfg.OnLookup(entity.LookupDNS)
		var p *bool
		if err == nil {
			p = entity.Bool(present)
		}
		e.logLookup(entity.LookupDNS, domain, attempt, p, err, time.Since(start))
		return err
	})
	signals.DNSAttempts = attempts

	if err != nil {
		e.cfg.Logger.Warn("dns lookup inconclusive", zap.String("domain", domain), zap.Int("attempts", attempts), zap.Error(err))
		return
	}
	signals.HasDNSRecords = entity.Bool(present)
}

func (e *Evaluator) logLookup(kind, domain string, attempt int, present *bool, err error, elapsed time.Duration) {
	if e.cfg.LogWriter == nil {
		return
	}
	entry := entity.LookupLog{
		Kind:    kind,
		Domain:  domain,
		Attempt: attempt,
		Present: present,
		Elapsed: elapsed,
		At:      e.cfg.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if werr := e.cfg.LogWriter.WriteLookupLog(entry); werr != nil {
		e.cfg.Logger.Warn("failed to write lookup log", zap.Error(werr))
	}
}

func whoisPresence(err error) *bool {
	switch {
	case err == nil:
		return entity.Bool(true)
	case errors.Is(err, service.ErrNoWhoisRecord):
		return entity.Bool(false)
	}
	return nil
}

// isTransientLookup is true for failures that leave the answer unknown
func isTransientLookup(err error) bool {
	if errors.Is(err, service.ErrNoWhoisRecord) || errors.Is(err, service.ErrInconclusive) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

type unbounded struct{}

func (unbounded) Do(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
