package dns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// ErrNoAnswer is returned when no server gave a usable answer
var ErrNoAnswer = errors.New("no usable answer from any dns server")

// Resolver implements service.DNSResolver
type Resolver struct {
	servers []string
	timeout time.Duration
	client  *dns.Client
}

// Config holds DNS resolver configuration
type Config struct {
	Servers []string
	Timeout time.Duration
}

// DefaultServers are used when no servers are configured
var DefaultServers = []string{
	"8.8.8.8:53",
	"8.8.4.4:53",
	"1.1.1.1:53",
	"1.0.0.1:53",
}

// presenceTypes are queried in order; the first with an answer proves presence
var presenceTypes = []uint16{dns.TypeNS, dns.TypeA, dns.TypeAAAA}

// NewResolver creates a new DNS resolver
func NewResolver(config Config) *Resolver {
	if len(config.Servers) == 0 {
		config.Servers = DefaultServers
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Resolver{
		servers: config.Servers,
		timeout: config.Timeout,
		client: &dns.Client{
			Timeout: config.Timeout,
		},
	}
}

// HasRecords reports whether domain has NS, A or AAAA records. NXDOMAIN and
// empty answers mean absence; when every server fails the answer is unknown
// and an error is returned.
func (r *Resolver) HasRecords(ctx context.Context, domain string) (bool, error) {
	for _, qtype := range presenceTypes {
		resp, err := r.exchange(ctx, domain, qtype)
		if err != nil {
			return false, err
		}
		if resp.Rcode == dns.RcodeNameError {
			return false, nil
		}
		if len(resp.Answer) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// exchange sends one question, falling back through the configured servers.
// Only NOERROR and NXDOMAIN responses are accepted as answers.
func (r *Resolver) exchange(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		qctx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, _, err := r.client.ExchangeContext(qctx, msg, server)
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("%s %s via %s: %w", dns.TypeToString[qtype], domain, server, err)
			continue
		}
		if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
			lastErr = fmt.Errorf("%s %s via %s: rcode %s", dns.TypeToString[qtype], domain, server, dns.RcodeToString[resp.Rcode])
			continue
		}
		return resp, nil
	}

	if lastErr == nil {
		return nil, ErrNoAnswer
	}
	return nil, fmt.Errorf("%w: %w", ErrNoAnswer, lastErr)
}
