package whois

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/service"
	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// ErrRateLimited is returned when the registry refuses further queries for now
var ErrRateLimited = errors.New("whois query limit exceeded")

// Config holds WHOIS client configuration
type Config struct {
	Timeout time.Duration
	// Server overrides the WHOIS server discovered through IANA
	Server string
}

// Client implements service.WhoisClient
type Client struct {
	query func(domain string) (string, error)
}

// NewClient creates a new WHOIS client
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	raw := whois.NewClient().SetTimeout(config.Timeout)

	return &Client{
		query: func(domain string) (string, error) {
			if config.Server != "" {
				return raw.Whois(domain, config.Server)
			}
			return raw.Whois(domain)
		},
	}
}

// Lookup queries registration data for domain. The underlying client is not
// context aware, so a cancelled lookup is abandoned rather than interrupted.
func (c *Client) Lookup(ctx context.Context, domain string) (*service.WhoisInfo, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.query(domain)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("whois %s: %w", domain, r.err)
		}
		return Interpret(domain, r.text)
	}
}

// Interpret turns a raw WHOIS response into registration data.
// Reserved, premium and blocked names count as present since they cannot be
// registered through the normal process.
func Interpret(domain, text string) (*service.WhoisInfo, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("whois %s: empty response", domain)
	}

	parsed, err := whoisparser.Parse(text)
	switch {
	case err == nil:
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return nil, fmt.Errorf("whois %s: %w", domain, service.ErrNoWhoisRecord)
	case errors.Is(err, whoisparser.ErrReservedDomain),
		errors.Is(err, whoisparser.ErrPremiumDomain),
		errors.Is(err, whoisparser.ErrBlockedDomain):
		return &service.WhoisInfo{}, nil
	case errors.Is(err, whoisparser.ErrDomainLimitExceed):
		return nil, fmt.Errorf("whois %s: %w", domain, ErrRateLimited)
	default:
		return nil, fmt.Errorf("whois %s: %w: %v", domain, service.ErrInconclusive, err)
	}

	info := &service.WhoisInfo{}
	if parsed.Domain != nil {
		info.ExpirationDate = parsed.Domain.ExpirationDateInTime
	}
	if parsed.Registrar != nil {
		info.Registrar = parsed.Registrar.Name
	}
	return info, nil
}
