package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/repository"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/service"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/retry"
	"go.uber.org/zap"
)

// DefaultUserAgent identifies the prober to remote servers
const DefaultUserAgent = "DeadLinkFinder/1.0 (Research project for identifying broken links)"

// rangeBytes bounds how much of a body the GET fallback reads
const rangeBytes = 1024

// Config holds link prober configuration
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxRedirects int
	Retry        retry.Policy

	Admitter  service.Admitter
	LogWriter repository.LogWriter
	Logger    *zap.Logger
	// OnRequest is called once per HTTP request sent
	OnRequest func()
	Now       func() time.Time
}

// Prober implements service.LinkProber
type Prober struct {
	client *http.Client
	cfg    Config
}

// NewProber creates a new link prober
func NewProber(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.Once(nil)
	}
	cfg.Retry.IsRetryable = IsTransient
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OnRequest == nil {
		cfg.OnRequest = func() {}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	transport.TLSHandshakeTimeout = cfg.Timeout

	maxRedirects := cfg.MaxRedirects
	return &Prober{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		cfg: cfg,
	}
}

// Probe checks whether the candidate's URL is alive. HEAD is tried first;
// a HEAD error status or non-timeout failure is confirmed by a small ranged GET.
func (p *Prober) Probe(ctx context.Context, c entity.Candidate) entity.LinkRecord {
	u, err := ParseProbeURL(c.URL)
	if err != nil {
		return entity.NewDeadLink(c, entity.DeadReason{Kind: entity.ReasonInvalidURL}, 0, p.cfg.Now())
	}

	var status int
	attempts, err := retry.Do(ctx, p.cfg.Retry, func(ctx context.Context, attempt int) error {
		var aerr error
		status, aerr = p.attempt(ctx, u.String(), attempt)
		return aerr
	})

	now := p.cfg.Now()
	if err != nil {
		return entity.NewDeadLink(c, entity.DeadReason{Kind: classify(err)}, attempts, now)
	}
	if status >= 400 && status <= 599 {
		return entity.NewDeadLink(c, entity.DeadReason{Kind: entity.ReasonHTTPError, Code: status}, attempts, now)
	}
	return entity.NewAliveLink(c, status, attempts, now)
}

// attempt returns the decisive status code, or the transport error when no
// status could be obtained at all
func (p *Prober) attempt(ctx context.Context, target string, attempt int) (int, error) {
	headStatus, headErr := p.request(ctx, http.MethodHead, target, attempt)
	if headErr == nil && headStatus < 400 {
		return headStatus, nil
	}
	// A silent server would keep the GET waiting just as long
	if headErr != nil && isTimeout(headErr) {
		return 0, headErr
	}

	getStatus, getErr := p.request(ctx, http.MethodGet, target, attempt)
	if getErr == nil {
		// The resource exists but is shorter than the requested range
		if getStatus == http.StatusRequestedRangeNotSatisfiable {
			return http.StatusOK, nil
		}
		return getStatus, nil
	}
	if headErr == nil {
		return headStatus, nil
	}
	return 0, getErr
}

func (p *Prober) request(ctx context.Context, method, target string, attempt int) (int, error) {
	start := time.Now()
	var status int
	err := p.admit(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", p.cfg.UserAgent)
		if method == http.MethodGet {
			req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", rangeBytes-1))
		}

		p.cfg.OnRequest()
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.CopyN(io.Discard, resp.Body, rangeBytes)
		status = resp.StatusCode
		return nil
	})

	p.writeLog(entity.ProbeLog{
		URL:        target,
		Method:     method,
		Attempt:    attempt,
		StatusCode: status,
		Elapsed:    time.Since(start),
		At:         p.cfg.Now(),
	}, err)
	return status, err
}

func (p *Prober) admit(ctx context.Context, fn func(context.Context) error) error {
	if p.cfg.Admitter == nil {
		return fn(ctx)
	}
	return p.cfg.Admitter.Do(ctx, fn)
}

func (p *Prober) writeLog(entry entity.ProbeLog, err error) {
	if p.cfg.LogWriter == nil {
		return
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if werr := p.cfg.LogWriter.WriteProbeLog(entry); werr != nil {
		p.cfg.Logger.Warn("failed to write probe log", zap.Error(werr))
	}
}

// ParseProbeURL validates that rawURL can be probed over HTTP(S).
// Protocol-relative links are probed over https.
func ParseProbeURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", service.ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: no host in %q", service.ErrInvalidURL, rawURL)
	}
	return u, nil
}

// IsTransient reports whether a transport error may succeed on retry:
// timeouts, connection resets and temporary DNS failures.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	if isTimeout(err) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify maps a transport error to the dead reason it implies. Refused
// connections, TLS failures and unresolvable hosts are connection errors.
func classify(err error) entity.DeadReasonKind {
	if isTimeout(err) {
		return entity.ReasonTimeout
	}
	return entity.ReasonConnectionError
}
