package entity

import (
	"fmt"
	"time"
)

// LinkStatus is the liveness outcome of a probe
type LinkStatus string

const (
	LinkAlive LinkStatus = "alive"
	LinkDead  LinkStatus = "dead"
)

// DeadReasonKind classifies why a link is dead
type DeadReasonKind string

const (
	ReasonHTTPError       DeadReasonKind = "http_error"
	ReasonConnectionError DeadReasonKind = "connection_error"
	ReasonTimeout         DeadReasonKind = "timeout"
	ReasonInvalidURL      DeadReasonKind = "invalid_url"
)

// DeadReason explains a dead link. Code is only set for http_error.
type DeadReason struct {
	Kind DeadReasonKind `json:"kind"`
	Code int            `json:"code,omitempty"`
}

// String renders the reason the way it is shown to users
func (r DeadReason) String() string {
	if r.Kind == ReasonHTTPError {
		return fmt.Sprintf("%s(%d)", r.Kind, r.Code)
	}
	return string(r.Kind)
}

// Candidate is an outbound link discovered on an article
type Candidate struct {
	Article    string `json:"article"`
	ArticleURL string `json:"article_url,omitempty"`
	URL        string `json:"url"`
	Text       string `json:"text,omitempty"`
}

// Key identifies the (article, url) pair for per-run deduplication
func (c Candidate) Key() string {
	return c.Article + "\x00" + c.URL
}

// LinkRecord is the outcome of probing one candidate link
type LinkRecord struct {
	SourceArticle string      `json:"source_article"`
	ArticleURL    string      `json:"article_url,omitempty"`
	URL           string      `json:"url"`
	LinkText      string      `json:"link_text,omitempty"`
	Status        LinkStatus  `json:"status"`
	DeadReason    *DeadReason `json:"dead_reason,omitempty"`
	StatusCode    int         `json:"status_code,omitempty"`
	Domain        string      `json:"domain,omitempty"`
	Attempts      int         `json:"attempts"`
	CheckedAt     time.Time   `json:"checked_at"`
}

// NewAliveLink builds an alive record for a candidate
func NewAliveLink(c Candidate, statusCode, attempts int, at time.Time) LinkRecord {
	return LinkRecord{
		SourceArticle: c.Article,
		ArticleURL:    c.ArticleURL,
		URL:           c.URL,
		LinkText:      c.Text,
		Status:        LinkAlive,
		StatusCode:    statusCode,
		Attempts:      attempts,
		CheckedAt:     at,
	}
}

// NewDeadLink builds a dead record for a candidate
func NewDeadLink(c Candidate, reason DeadReason, attempts int, at time.Time) LinkRecord {
	r := reason
	rec := LinkRecord{
		SourceArticle: c.Article,
		ArticleURL:    c.ArticleURL,
		URL:           c.URL,
		LinkText:      c.Text,
		Status:        LinkDead,
		DeadReason:    &r,
		Attempts:      attempts,
		CheckedAt:     at,
	}
	if reason.Kind == ReasonHTTPError {
		rec.StatusCode = reason.Code
	}
	return rec
}

// IsDead reports whether the link was found dead
func (l LinkRecord) IsDead() bool {
	return l.Status == LinkDead
}

// Validate checks the record invariants
func (l LinkRecord) Validate() error {
	if l.URL == "" {
		return fmt.Errorf("link record has empty url")
	}
	switch l.Status {
	case LinkAlive:
		if l.DeadReason != nil {
			return fmt.Errorf("alive link %s carries dead reason %s", l.URL, l.DeadReason)
		}
	case LinkDead:
		if l.DeadReason == nil {
			return fmt.Errorf("dead link %s has no dead reason", l.URL)
		}
		switch l.DeadReason.Kind {
		case ReasonHTTPError:
			if l.DeadReason.Code < 400 || l.DeadReason.Code > 599 {
				return fmt.Errorf("dead link %s has http_error code %d outside 400-599", l.URL, l.DeadReason.Code)
			}
		case ReasonConnectionError, ReasonTimeout, ReasonInvalidURL:
		default:
			return fmt.Errorf("dead link %s has unknown reason kind %q", l.URL, l.DeadReason.Kind)
		}
	default:
		return fmt.Errorf("link %s has unknown status %q", l.URL, l.Status)
	}
	return nil
}
