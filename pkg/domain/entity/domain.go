package entity

import (
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Availability is the verdict reached for a registrable domain
type Availability string

const (
	PotentiallyAvailable Availability = "potentially_available"
	Registered           Availability = "registered"
	Restricted           Availability = "restricted"
	Indeterminate        Availability = "indeterminate"
)

// Signals are the raw observations an availability verdict is derived from.
// A nil pointer means the signal could not be determined.
type Signals struct {
	HasWhois        *bool      `json:"has_whois"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	HasDNSRecords   *bool      `json:"has_dns_records"`
	IsRestrictedTLD bool       `json:"is_restricted_tld"`
	Registrar       string     `json:"registrar,omitempty"`
	WhoisAttempts   int        `json:"whois_attempts"`
	DNSAttempts     int        `json:"dns_attempts"`
}

// Expired reports whether the registration expired before now
func (s Signals) Expired(now time.Time) bool {
	return s.ExpirationDate != nil && s.ExpirationDate.Before(now)
}

// Decide derives the availability verdict from the signals. Restriction
// always wins; any single proof of absence makes the domain potentially
// available; otherwise a missing signal leaves the verdict indeterminate.
func Decide(s Signals, now time.Time) Availability {
	if s.IsRestrictedTLD {
		return Restricted
	}
	if isFalse(s.HasWhois) || s.Expired(now) || isFalse(s.HasDNSRecords) {
		return PotentiallyAvailable
	}
	if s.HasWhois == nil || s.HasDNSRecords == nil {
		return Indeterminate
	}
	return Registered
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}

// Bool returns a pointer to b, for filling optional signals
func Bool(b bool) *bool {
	return &b
}

// DomainRecord is the evaluated availability of a registrable domain
type DomainRecord struct {
	Domain          string       `json:"domain"`
	Availability    Availability `json:"availability"`
	Signals         Signals      `json:"signals"`
	FoundOnArticles []string     `json:"found_on_articles"`
	DeadURLs        []string     `json:"dead_urls,omitempty"`
	FirstSeenAt     time.Time    `json:"first_seen_at"`
	LastSeenAt      time.Time    `json:"last_seen_at"`
	EvaluatedAt     time.Time    `json:"evaluated_at"`
}

// NewDomainRecord builds a record from freshly gathered signals
func NewDomainRecord(domain string, signals Signals, at time.Time) DomainRecord {
	return DomainRecord{
		Domain:          domain,
		Availability:    Decide(signals, at),
		Signals:         signals,
		FoundOnArticles: []string{},
		FirstSeenAt:     at,
		LastSeenAt:      at,
		EvaluatedAt:     at,
	}
}

// Sighted records that the domain was seen behind a dead link on an article
func (d *DomainRecord) Sighted(article, deadURL string, at time.Time) {
	d.FoundOnArticles = union(d.FoundOnArticles, []string{article})
	if deadURL != "" {
		d.DeadURLs = union(d.DeadURLs, []string{deadURL})
	}
	if d.FirstSeenAt.IsZero() || at.Before(d.FirstSeenAt) {
		d.FirstSeenAt = at
	}
	if at.After(d.LastSeenAt) {
		d.LastSeenAt = at
	}
}

// Merge folds another record for the same domain into d. Sightings are
// unioned; the verdict and signals are only replaced when recheck is set.
func (d *DomainRecord) Merge(other DomainRecord, recheck bool) {
	d.FoundOnArticles = union(d.FoundOnArticles, other.FoundOnArticles)
	d.DeadURLs = union(d.DeadURLs, other.DeadURLs)
	if !other.FirstSeenAt.IsZero() && (d.FirstSeenAt.IsZero() || other.FirstSeenAt.Before(d.FirstSeenAt)) {
		d.FirstSeenAt = other.FirstSeenAt
	}
	if other.LastSeenAt.After(d.LastSeenAt) {
		d.LastSeenAt = other.LastSeenAt
	}
	if recheck {
		d.Signals = other.Signals
		d.Availability = other.Availability
		d.EvaluatedAt = other.EvaluatedAt
	}
}

// Validate checks the record invariants
func (d DomainRecord) Validate() error {
	if d.Domain == "" {
		return fmt.Errorf("domain record has empty domain")
	}
	switch d.Availability {
	case PotentiallyAvailable, Registered, Restricted, Indeterminate:
	default:
		return fmt.Errorf("domain %s has unknown availability %q", d.Domain, d.Availability)
	}
	if (d.Availability == Restricted) != d.Signals.IsRestrictedTLD {
		return fmt.Errorf("domain %s: availability %s disagrees with is_restricted_tld=%t",
			d.Domain, d.Availability, d.Signals.IsRestrictedTLD)
	}
	if want := Decide(d.Signals, d.EvaluatedAt); want != d.Availability {
		return fmt.Errorf("domain %s: availability %s does not follow from signals (want %s)",
			d.Domain, d.Availability, want)
	}
	if !d.FirstSeenAt.IsZero() && d.LastSeenAt.Before(d.FirstSeenAt) {
		return fmt.Errorf("domain %s: last_seen_at before first_seen_at", d.Domain)
	}
	return nil
}

// union merges two string sets and returns them sorted
func union(a, b []string) []string {
	set := mapset.NewThreadUnsafeSet[string](a...)
	set.Append(b...)
	out := set.ToSlice()
	slices.Sort(out)
	return out
}
