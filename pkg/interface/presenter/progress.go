package presenter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/schollz/progressbar/v3"
)

// Progress is a single-line progress bar for runs without the dashboard.
// It tracks links probed against links queued so far.
type Progress struct {
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	available int
}

// NewProgress creates a progress bar writing to w
func NewProgress(w io.Writer) *Progress {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("probing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
	return &Progress{bar: bar}
}

// OnMetricsUpdate implements application.MetricsObserver
func (p *Progress) OnMetricsUpdate(m *entity.Metrics) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m.LinksQueued > 0 {
		p.bar.ChangeMax64(m.LinksQueued)
	}
	p.bar.Describe(fmt.Sprintf("articles %d | dead %d | available %d",
		m.ArticlesSeen, m.LinksDead, p.available))
	_ = p.bar.Set64(m.LinksProbed)
}

// AddAvailableDomain implements application.MetricsObserver
func (p *Progress) AddAvailableDomain(string) {
	p.mu.Lock()
	p.available++
	p.mu.Unlock()
}

// Finish clears the bar
func (p *Progress) Finish() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bar.Finish()
}
