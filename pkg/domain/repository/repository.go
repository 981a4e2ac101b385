package repository

import (
	"context"
	"iter"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
)

// SeenFilter provides deduplication of (article, url) pairs within a run
type SeenFilter interface {
	// TestAndAdd reports whether key was seen before and marks it as seen
	TestAndAdd(key string) bool
	// Save persists the filter state
	Save(filename string) error
	// Load restores the filter state
	Load(filename string) error
}

// RecordStore persists probe outcomes and domain verdicts. A record call
// returns only once the record is durable, and is never interrupted.
type RecordStore interface {
	// RecordDeadLink upserts a dead link keyed by url
	RecordDeadLink(link entity.LinkRecord) error
	// RecordDomain merges a domain record and returns the stored result
	RecordDomain(rec entity.DomainRecord, recheck bool) (entity.DomainRecord, error)
	// Domain looks up a stored domain verdict
	Domain(domain string) (entity.DomainRecord, bool)
	// DeadLinks returns all stored dead links ordered by url
	DeadLinks() []entity.LinkRecord
	// Domains returns all stored domains ordered by name
	Domains() []entity.DomainRecord
	// Close releases the store
	Close() error
}

// CandidateSource yields outbound links lazily. Iteration may be restarted.
type CandidateSource interface {
	// Candidates yields candidates until exhausted or ctx is done
	Candidates(ctx context.Context) iter.Seq2[entity.Candidate, error]
}

// LogWriter writes structured traffic logs
type LogWriter interface {
	// WriteProbeLog writes one probe attempt
	WriteProbeLog(entry entity.ProbeLog) error
	// WriteLookupLog writes one WHOIS or DNS lookup
	WriteLookupLog(entry entity.LookupLog) error
	// Close closes all log writers
	Close() error
}

// CandidateQueue hands candidates from the source to the workers
type CandidateQueue interface {
	// Enqueue blocks until there is room or ctx is done
	Enqueue(ctx context.Context, c entity.Candidate) error
	// Dequeue removes a candidate, reporting false once closed and drained
	Dequeue() (entity.Candidate, bool)
	// Len returns the current queue length
	Len() int
	// Close closes the queue
	Close()
}
