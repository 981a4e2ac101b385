package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"go.uber.org/zap"
)

// ErrStoreClosed is returned by writes after Close
var ErrStoreClosed = errors.New("record store is closed")

// QuarantineSuffix is appended to a collection path to name its quarantine file
const QuarantineSuffix = ".quarantine.json"

// QuarantinedEntry is a stored entry that failed validation on load
type QuarantinedEntry struct {
	Source string          `json:"source"`
	Entry  json.RawMessage `json:"entry"`
	Error  string          `json:"error"`
	At     time.Time       `json:"quarantined_at"`
}

// JSONStore implements repository.RecordStore over two JSON array files.
// All writes are serialized; each one rewrites its collection atomically.
type JSONStore struct {
	mu         sync.Mutex
	deadPath   string
	domainPath string
	links      map[string]entity.LinkRecord
	domains    map[string]entity.DomainRecord
	closed     bool
	logger     *zap.Logger

	quarantined int
}

// OpenJSONStore loads both collections, tolerating missing or empty files.
// Entries that fail validation are moved to a quarantine file.
func OpenJSONStore(deadPath, domainPath string, logger *zap.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &JSONStore{
		deadPath:   deadPath,
		domainPath: domainPath,
		links:      make(map[string]entity.LinkRecord),
		domains:    make(map[string]entity.DomainRecord),
		logger:     logger,
	}

	var bad []QuarantinedEntry
	err := loadCollection(deadPath, func(raw json.RawMessage) error {
		var rec entity.LinkRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		if !rec.IsDead() {
			return fmt.Errorf("link %s is not dead", rec.URL)
		}
		s.links[rec.URL] = rec
		return nil
	}, &bad)
	if err != nil {
		return nil, err
	}
	if err := s.quarantine(deadPath, bad); err != nil {
		return nil, err
	}

	bad = nil
	err = loadCollection(domainPath, func(raw json.RawMessage) error {
		var rec entity.DomainRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		if prev, ok := s.domains[rec.Domain]; ok {
			prev.Merge(rec, false)
			rec = prev
		}
		s.domains[rec.Domain] = rec
		return nil
	}, &bad)
	if err != nil {
		return nil, err
	}
	if err := s.quarantine(domainPath, bad); err != nil {
		return nil, err
	}

	logger.Info("record store loaded",
		zap.String("dead_links_file", deadPath),
		zap.Int("dead_links", len(s.links)),
		zap.String("domains_file", domainPath),
		zap.Int("domains", len(s.domains)),
		zap.Int("quarantined", s.quarantined),
	)
	return s, nil
}

// loadCollection feeds each array element of path to accept. Elements that
// are rejected are collected into bad. A file that is not a JSON array is an
// error so that it is never overwritten.
func loadCollection(path string, accept func(json.RawMessage) error, bad *[]QuarantinedEntry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("parse %s: not a JSON array: %w", path, err)
	}
	for _, raw := range raws {
		if err := accept(raw); err != nil {
			*bad = append(*bad, QuarantinedEntry{
				Source: path,
				Entry:  raw,
				Error:  err.Error(),
				At:     time.Now().UTC(),
			})
		}
	}
	return nil
}

func (s *JSONStore) quarantine(path string, bad []QuarantinedEntry) error {
	if len(bad) == 0 {
		return nil
	}
	qpath := strings.TrimSuffix(path, filepath.Ext(path)) + QuarantineSuffix

	var existing []QuarantinedEntry
	if data, err := os.ReadFile(qpath); err == nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("parse quarantine %s: %w", qpath, err)
		}
	}
	if err := writeJSONAtomic(qpath, append(existing, bad...)); err != nil {
		return fmt.Errorf("write quarantine %s: %w", qpath, err)
	}

	s.quarantined += len(bad)
	for _, q := range bad {
		s.logger.Warn("quarantined malformed record", zap.String("file", path), zap.String("error", q.Error))
	}
	return nil
}

// RecordDeadLink upserts a dead link keyed by url; the last write wins
func (s *JSONStore) RecordDeadLink(link entity.LinkRecord) error {
	if err := link.Validate(); err != nil {
		return fmt.Errorf("record dead link: %w", err)
	}
	if !link.IsDead() {
		return fmt.Errorf("record dead link: %s is %s", link.URL, link.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	s.links[link.URL] = link
	if err := writeJSONAtomic(s.deadPath, s.sortedLinks()); err != nil {
		return fmt.Errorf("persist dead links: %w", err)
	}
	return nil
}

// RecordDomain merges rec into the stored record for the same domain and
// returns the merged result. The verdict is only replaced when recheck is set.
func (s *JSONStore) RecordDomain(rec entity.DomainRecord, recheck bool) (entity.DomainRecord, error) {
	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("record domain: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rec, ErrStoreClosed
	}

	merged := rec
	if prev, ok := s.domains[rec.Domain]; ok {
		prev.Merge(rec, recheck)
		merged = prev
	}
	s.domains[merged.Domain] = merged

	if err := writeJSONAtomic(s.domainPath, s.sortedDomains()); err != nil {
		return merged, fmt.Errorf("persist domains: %w", err)
	}
	return merged, nil
}

// Domain looks up a stored domain verdict
func (s *JSONStore) Domain(domain string) (entity.DomainRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.domains[domain]
	return rec, ok
}

// DeadLinks returns all stored dead links ordered by url
func (s *JSONStore) DeadLinks() []entity.LinkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLinks()
}

// Domains returns all stored domains ordered by name
func (s *JSONStore) Domains() []entity.DomainRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedDomains()
}

// Quarantined returns how many entries were rejected on load
func (s *JSONStore) Quarantined() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quarantined
}

// Close releases the store. Writes after Close fail with ErrStoreClosed.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *JSONStore) sortedLinks() []entity.LinkRecord {
	out := make([]entity.LinkRecord, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b entity.LinkRecord) int { return strings.Compare(a.URL, b.URL) })
	return out
}

func (s *JSONStore) sortedDomains() []entity.DomainRecord {
	out := make([]entity.DomainRecord, 0, len(s.domains))
	for _, d := range s.domains {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b entity.DomainRecord) int { return strings.Compare(a.Domain, b.Domain) })
	return out
}

// writeJSONAtomic writes v to path through a synced temp file and a rename,
// so readers only ever see the old or the new content
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""
	return nil
}
