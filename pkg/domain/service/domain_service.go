package service

import (
	"context"
	"errors"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
)

var (
	// ErrInvalidURL is returned when no registrable domain can be derived from a URL
	ErrInvalidURL = errors.New("invalid url")
	// ErrNoWhoisRecord is returned when the registry has no record for a domain
	ErrNoWhoisRecord = errors.New("no whois record")
	// ErrInconclusive marks a lookup whose answer is unknown and would not change on retry
	ErrInconclusive = errors.New("inconclusive lookup")
)

// DomainExtractor maps URLs to registrable domains
type DomainExtractor interface {
	// Extract returns the registrable domain (eTLD+1) of rawURL
	Extract(rawURL string) (string, error)
}

// RestrictionChecker knows which suffixes cannot be registered by the public
type RestrictionChecker interface {
	// IsRestricted reports whether domain sits under a restricted suffix
	IsRestricted(domain string) bool
}

// ExclusionPolicy decides which links and domains are never processed
type ExclusionPolicy interface {
	// ExcludeURL reports whether a link must never be probed
	ExcludeURL(rawURL string) bool
	// SkipEvaluation reports whether the domain behind a dead link must not be evaluated
	SkipEvaluation(rawURL string) bool
}

// LinkProber checks the liveness of a link
type LinkProber interface {
	// Probe probes a candidate and returns its outcome
	Probe(ctx context.Context, c entity.Candidate) entity.LinkRecord
}

// WhoisInfo is what a WHOIS lookup tells about a registered domain
type WhoisInfo struct {
	Registrar      string
	ExpirationDate *time.Time
}

// WhoisClient queries registration data.
// Returns ErrNoWhoisRecord when the domain is not registered.
type WhoisClient interface {
	Lookup(ctx context.Context, domain string) (*WhoisInfo, error)
}

// DNSResolver checks whether a domain has any DNS presence
type DNSResolver interface {
	// HasRecords reports whether NS, A or AAAA records exist.
	// A non-nil error means the answer is unknown.
	HasRecords(ctx context.Context, domain string) (bool, error)
}

// AvailabilityEvaluator combines signals into a domain verdict
type AvailabilityEvaluator interface {
	Evaluate(ctx context.Context, domain string) entity.DomainRecord
}

// Admitter bounds concurrent network operations
type Admitter interface {
	// Do runs fn once a slot is free
	Do(ctx context.Context, fn func(context.Context) error) error
}
