package application

import (
	"sync/atomic"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
)

// Stats holds the run counters. It is shared with the prober and the
// evaluator, which report their network attempts through it.
type Stats struct {
	articlesSeen    atomic.Int64
	sourceErrors    atomic.Int64
	linksQueued     atomic.Int64
	linksExcluded   atomic.Int64
	linksDuplicate  atomic.Int64
	linksProbed     atomic.Int64
	linksAlive      atomic.Int64
	linksDead       atomic.Int64
	probeRequests   atomic.Int64
	whoisQueries    atomic.Int64
	dnsQueries      atomic.Int64
	domainsSkipped  atomic.Int64
	domainsExcluded atomic.Int64

	domainsEvaluated atomic.Int64
	domainsAvailable atomic.Int64
	domainsRestrict  atomic.Int64
	domainsUnknown   atomic.Int64
	domainsTaken     atomic.Int64

	persistErrors atomic.Int64
}

// NewStats creates zeroed run counters
func NewStats() *Stats {
	return &Stats{}
}

// ProbeRequest counts one HTTP request sent by the prober
func (s *Stats) ProbeRequest() {
	s.probeRequests.Add(1)
}

// Lookup counts one WHOIS or DNS attempt
func (s *Stats) Lookup(kind string) {
	switch kind {
	case entity.LookupWhois:
		s.whoisQueries.Add(1)
	case entity.LookupDNS:
		s.dnsQueries.Add(1)
	}
}

func (s *Stats) verdict(a entity.Availability) {
	s.domainsEvaluated.Add(1)
	switch a {
	case entity.PotentiallyAvailable:
		s.domainsAvailable.Add(1)
	case entity.Restricted:
		s.domainsRestrict.Add(1)
	case entity.Indeterminate:
		s.domainsUnknown.Add(1)
	case entity.Registered:
		s.domainsTaken.Add(1)
	}
}

// fill copies the counters into m
func (s *Stats) fill(m *entity.Metrics) {
	m.ArticlesSeen = s.articlesSeen.Load()
	m.SourceErrors = s.sourceErrors.Load()
	m.LinksQueued = s.linksQueued.Load()
	m.LinksExcluded = s.linksExcluded.Load()
	m.LinksDuplicate = s.linksDuplicate.Load()
	m.LinksProbed = s.linksProbed.Load()
	m.LinksAlive = s.linksAlive.Load()
	m.LinksDead = s.linksDead.Load()
	m.ProbeRequests = s.probeRequests.Load()
	m.WhoisQueries = s.whoisQueries.Load()
	m.DNSQueries = s.dnsQueries.Load()
	m.DomainsSkipped = s.domainsSkipped.Load()
	m.DomainsExcluded = s.domainsExcluded.Load()
	m.DomainsEvaluated = s.domainsEvaluated.Load()
	m.DomainsAvailable = s.domainsAvailable.Load()
	m.DomainsRestrict = s.domainsRestrict.Load()
	m.DomainsUnknown = s.domainsUnknown.Load()
	m.DomainsTaken = s.domainsTaken.Load()
	m.PersistErrors = s.persistErrors.Load()
}
