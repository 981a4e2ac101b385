package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/charmbracelet/lipgloss"
)

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	summaryBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#874BFD")).Padding(0, 2)
	summaryKey   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).Width(22)
	summaryGood  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	summaryAlert = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

// RenderSummary renders the end-of-run summary. available lists the
// potentially available domains found during the run.
func RenderSummary(m *entity.Metrics, available []string) string {
	elapsed := m.LastUpdate.Sub(m.StartTime).Round(time.Second)

	rows := [][2]string{
		{"Duration", elapsed.String()},
		{"Articles read", fmt.Sprint(m.ArticlesSeen)},
		{"Links probed", fmt.Sprintf("%d (%d alive, %d dead)", m.LinksProbed, m.LinksAlive, m.LinksDead)},
		{"Links skipped", fmt.Sprintf("%d archive, %d duplicate", m.LinksExcluded, m.LinksDuplicate)},
		{"Domains evaluated", fmt.Sprint(m.DomainsEvaluated)},
		{"  registered", fmt.Sprint(m.DomainsTaken)},
		{"  restricted", fmt.Sprint(m.DomainsRestrict)},
		{"  indeterminate", fmt.Sprint(m.DomainsUnknown)},
		{"Domains reused", fmt.Sprint(m.DomainsSkipped)},
		{"Network", fmt.Sprintf("%d HTTP, %d WHOIS, %d DNS (peak %d in flight)",
			m.ProbeRequests, m.WhoisQueries, m.DNSQueries, m.PeakInFlight)},
	}

	var b strings.Builder
	b.WriteString(summaryTitle.Render("Scan summary"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(summaryKey.Render(row[0]))
		b.WriteString(row[1])
		b.WriteString("\n")
	}

	b.WriteString(summaryKey.Render("Potentially available"))
	b.WriteString(summaryGood.Render(fmt.Sprint(m.DomainsAvailable)))
	for _, domain := range available {
		b.WriteString("\n  • ")
		b.WriteString(domain)
	}

	if m.PersistErrors > 0 || m.SourceErrors > 0 {
		b.WriteString("\n")
		b.WriteString(summaryAlert.Render(fmt.Sprintf("%d persistence errors, %d source errors; see the log",
			m.PersistErrors, m.SourceErrors)))
	}

	return summaryBox.Render(b.String())
}

// AvailableCollector remembers every potentially available domain reported
// during a run, for the final summary
type AvailableCollector struct {
	domains []string
	mu      sync.Mutex
}

// OnMetricsUpdate implements application.MetricsObserver
func (c *AvailableCollector) OnMetricsUpdate(*entity.Metrics) {}

// AddAvailableDomain implements application.MetricsObserver
func (c *AvailableCollector) AddAvailableDomain(domain string) {
	c.mu.Lock()
	c.domains = append(c.domains, domain)
	c.mu.Unlock()
}

// Domains returns the collected domains
func (c *AvailableCollector) Domains() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.domains...)
}
