package entity

import "time"

// Metrics represents scan progress counters
type Metrics struct {
	QueueLength   int
	ActiveWorkers int
	TotalWorkers  int

	ArticlesSeen    int64
	SourceErrors    int64
	LinksQueued     int64
	LinksExcluded   int64
	LinksDuplicate  int64
	LinksProbed     int64
	LinksAlive      int64
	LinksDead       int64
	ProbeRequests   int64
	WhoisQueries    int64
	DNSQueries      int64
	DomainsSkipped  int64
	DomainsExcluded int64

	DomainsEvaluated int64
	DomainsAvailable int64
	DomainsRestrict  int64
	DomainsUnknown   int64
	DomainsTaken     int64

	InFlight     int64
	PeakInFlight int64

	PersistErrors int64
	StartTime     time.Time
	LastUpdate    time.Time
	ActiveURLs    []string
}

// ProbeLog is one line of the probe traffic log
type ProbeLog struct {
	URL        string        `json:"url"`
	Method     string        `json:"method"`
	Attempt    int           `json:"attempt"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	At         time.Time     `json:"at"`
}

// Lookup kinds reported to the lookup log and counters
const (
	LookupWhois = "whois"
	LookupDNS   = "dns"
)

// LookupLog is one line of the WHOIS/DNS lookup log
type LookupLog struct {
	Kind    string        `json:"kind"`
	Domain  string        `json:"domain"`
	Server  string        `json:"server,omitempty"`
	Attempt int           `json:"attempt"`
	Present *bool         `json:"present"`
	Rcode   string        `json:"rcode,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
	At      time.Time     `json:"at"`
}
