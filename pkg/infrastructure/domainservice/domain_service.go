package domainservice

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/service"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var hostRegex = regexp.MustCompile(`^([a-z0-9_]([a-z0-9\-_]{0,61}[a-z0-9])?\.)+[a-z]{2,}$|^([a-z0-9_]([a-z0-9\-_]{0,61}[a-z0-9])?\.)+xn--[a-z0-9\-]{2,}$`)

// Extractor implements service.DomainExtractor
type Extractor struct{}

// NewExtractor creates a new domain extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the registrable domain (eTLD+1) of rawURL
func (e *Extractor) Extract(rawURL string) (string, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return "", fmt.Errorf("%w: %q is an IP literal", service.ErrInvalidURL, host)
	}
	if !hostRegex.MatchString(host) {
		return "", fmt.Errorf("%w: malformed host %q", service.ErrInvalidURL, host)
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("%w: %v", service.ErrInvalidURL, err)
	}
	return domain, nil
}

// hostOf returns the lowercased ASCII host of rawURL without port or
// trailing dot. Internationalized hosts are converted to punycode.
func hostOf(rawURL string) (string, error) {
	u, err := parseLink(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", service.ErrInvalidURL, rawURL)
	}
	if !isASCII(host) {
		host, err = idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("%w: %v", service.ErrInvalidURL, err)
		}
	}
	return host, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// parseLink parses an outbound link, accepting protocol-relative forms
func parseLink(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "http:" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidURL, err)
	}
	return u, nil
}

// DefaultRestrictedSuffixes are suffixes only eligible institutions may register
var DefaultRestrictedSuffixes = []string{
	"edu", "gov", "mil", "int", "arpa",
	"us.gov", "us.edu",
	"ac.uk", "gov.uk", "mil.uk", "nhs.uk", "police.uk", "mod.uk", "parliament.uk",
	"ac.id",
	"gov.au", "edu.au",
}

// RestrictionTable implements service.RestrictionChecker
type RestrictionTable struct {
	enabled  bool
	suffixes map[string]bool
}

// NewRestrictionTable creates a table from the default suffixes plus extra ones.
// A disabled table never reports a domain as restricted.
func NewRestrictionTable(enabled bool, extra []string) *RestrictionTable {
	suffixes := make(map[string]bool, len(DefaultRestrictedSuffixes)+len(extra))
	for _, s := range append(append([]string{}, DefaultRestrictedSuffixes...), extra...) {
		s = strings.Trim(strings.ToLower(strings.TrimSpace(s)), ".")
		if s != "" {
			suffixes[s] = true
		}
	}
	return &RestrictionTable{enabled: enabled, suffixes: suffixes}
}

// IsRestricted reports whether domain equals or sits under a restricted suffix
func (t *RestrictionTable) IsRestricted(domain string) bool {
	if !t.enabled {
		return false
	}
	domain = strings.Trim(strings.ToLower(domain), ".")
	for domain != "" {
		if t.suffixes[domain] {
			return true
		}
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			break
		}
		domain = domain[i+1:]
	}
	return false
}

// DefaultArchiveHosts serve archived copies of pages and are never probed
var DefaultArchiveHosts = []string{
	"web.archive.org",
	"archive.org",
	"archive.today",
	"archive.ph",
	"archive.is",
	"webcitation.org",
}

// DefaultExcludedEndings are authorities whose dead links are kept but whose
// domains are not evaluated. Endings carrying a port match the link's host:port.
var DefaultExcludedEndings = []string{
	".de", ".bg", ".br", ".com.au", ".edu.tw", ".dk", ".com:80", ".co.in",
	".im", ".org:80", ".is", ".ch", ".ac.at", ".gov.ua", ".edu:8000", ".gov.pt",
	".pk", ".hu", ".uam.es", ".at", ".jp", ".fi",
}

// ExclusionPolicy implements service.ExclusionPolicy
type ExclusionPolicy struct {
	archiveHosts map[string]bool
	endings      []string
}

// NewExclusionPolicy creates a policy from archive hosts and excluded endings
func NewExclusionPolicy(archiveHosts, endings []string) *ExclusionPolicy {
	hosts := make(map[string]bool, len(archiveHosts))
	for _, h := range archiveHosts {
		hosts[strings.ToLower(strings.TrimSpace(h))] = true
	}
	var normalized []string
	for _, e := range endings {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			normalized = append(normalized, e)
		}
	}
	return &ExclusionPolicy{archiveHosts: hosts, endings: normalized}
}

// ExcludeURL reports whether the link points at an archive service
func (p *ExclusionPolicy) ExcludeURL(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	for host != "" {
		if p.archiveHosts[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// SkipEvaluation reports whether the link's authority ends with an excluded ending
func (p *ExclusionPolicy) SkipEvaluation(rawURL string) bool {
	u, err := parseLink(rawURL)
	if err != nil {
		return false
	}
	authority := strings.ToLower(u.Host)
	for _, e := range p.endings {
		if strings.HasSuffix(authority, e) {
			return true
		}
	}
	return false
}
