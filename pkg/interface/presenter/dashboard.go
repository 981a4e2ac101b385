package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Dashboard is a TUI dashboard for scan progress
type Dashboard struct {
	metrics         *entity.Metrics
	recentAvailable []string // Recently found potentially available domains
	progress        progress.Model
	width           int
	height          int
	startTime       time.Time
	mu              sync.RWMutex
}

type tickMsg time.Time

// NewDashboard creates a new TUI dashboard
func NewDashboard() *Dashboard {
	return &Dashboard{
		metrics:   &entity.Metrics{},
		progress:  progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
	}
}

// Init initializes the dashboard
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

// Update handles dashboard updates
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.progress.Width = max(msg.Width-30, 10)
		return d, nil

	case tickMsg:
		// Continue ticking to keep the display updating
		return d, tickCmd()
	}

	return d, nil
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var sections []string

	header := d.renderHeader()
	sections = append(sections, header)
	bar := d.renderProgress()
	sections = append(sections, bar)
	footer := d.renderFooter()

	availableHeight := d.height - lipgloss.Height(header) - lipgloss.Height(bar) - lipgloss.Height(footer)
	if availableHeight < 0 {
		availableHeight = 0
	}
	halfHeight := availableHeight / 2

	leftWidth := d.width / 2
	rightWidth := d.width - leftWidth

	// Row 1: Links (Left) | Network (Right)
	row1 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderLinkStats(leftWidth, halfHeight),
		d.renderNetworkStats(rightWidth, halfHeight),
	)
	sections = append(sections, row1)

	// Row 2: Domains (Left) | Available domains (Right)
	remainingHeight := availableHeight - halfHeight
	row2 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderDomainStats(leftWidth, remainingHeight),
		d.renderAvailable(rightWidth, remainingHeight),
	)
	sections = append(sections, row2)

	sections = append(sections, footer)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// OnMetricsUpdate implements application.MetricsObserver
func (d *Dashboard) OnMetricsUpdate(metrics *entity.Metrics) {
	d.mu.Lock()
	d.metrics = metrics
	d.mu.Unlock()
}

// AddAvailableDomain adds a potentially available domain to the recent list
func (d *Dashboard) AddAvailableDomain(domain string) {
	d.mu.Lock()
	d.recentAvailable = append(d.recentAvailable, domain)

	// Keep only the last 50
	if len(d.recentAvailable) > 50 {
		d.recentAvailable = d.recentAvailable[len(d.recentAvailable)-50:]
	}
	d.mu.Unlock()
}

func (d *Dashboard) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	timeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999"))

	title := titleStyle.Render("🔗 Wiki Dead-Link Finder")
	timeInfo := timeStyle.Render(fmt.Sprintf(" Running: %s | Time: %s",
		formatElapsed(time.Since(d.startTime)), time.Now().Format("15:04:05")))

	return title + timeInfo
}

func (d *Dashboard) renderProgress() string {
	label := lipgloss.NewStyle().Padding(0, 1).Render(
		fmt.Sprintf("Probed %d / %d", d.metrics.LinksProbed, d.metrics.LinksQueued))
	return label + " " + d.progress.ViewAs(probedRatio(d.metrics))
}

func (d *Dashboard) renderLinkStats(width, height int) string {
	stats := []string{
		"🔗 Links",
		"",
		fmt.Sprintf("Articles Read:     %d", d.metrics.ArticlesSeen),
		fmt.Sprintf("Queued:            %d (queue %d)", d.metrics.LinksQueued, d.metrics.QueueLength),
		fmt.Sprintf("Alive:             %d", d.metrics.LinksAlive),
		fmt.Sprintf("Dead:              %d", d.metrics.LinksDead),
		fmt.Sprintf("Archive Skipped:   %d", d.metrics.LinksExcluded),
		fmt.Sprintf("Duplicates:        %d", d.metrics.LinksDuplicate),
		fmt.Sprintf("Source Errors:     %d", d.metrics.SourceErrors),
	}

	if d.metrics.LinksProbed > 0 {
		deadRate := float64(d.metrics.LinksDead) / float64(d.metrics.LinksProbed) * 100
		stats = append(stats, "", fmt.Sprintf("Dead Rate:         %.1f%%", deadRate))
	}

	return panel("#FF6B6B", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderNetworkStats(width, height int) string {
	stats := []string{
		"🌐 Network",
		"",
		fmt.Sprintf("Active Workers:    %d / %d", d.metrics.ActiveWorkers, d.metrics.TotalWorkers),
		fmt.Sprintf("In Flight:         %d (peak %d)", d.metrics.InFlight, d.metrics.PeakInFlight),
		fmt.Sprintf("HTTP Requests:     %d", d.metrics.ProbeRequests),
		fmt.Sprintf("WHOIS Queries:     %d", d.metrics.WhoisQueries),
		fmt.Sprintf("DNS Queries:       %d", d.metrics.DNSQueries),
	}

	elapsed := time.Since(d.startTime).Seconds()
	if elapsed > 0 {
		stats = append(stats, "", fmt.Sprintf("Request Rate:      %.1f req/s", float64(d.metrics.ProbeRequests)/elapsed))
	}

	return panel("#874BFD", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderDomainStats(width, height int) string {
	stats := []string{
		"🏷  Domains",
		"",
		fmt.Sprintf("Evaluated:         %d", d.metrics.DomainsEvaluated),
		fmt.Sprintf("Available:         %d", d.metrics.DomainsAvailable),
		fmt.Sprintf("Registered:        %d", d.metrics.DomainsTaken),
		fmt.Sprintf("Restricted:        %d", d.metrics.DomainsRestrict),
		fmt.Sprintf("Indeterminate:     %d", d.metrics.DomainsUnknown),
		fmt.Sprintf("Known (reused):    %d", d.metrics.DomainsSkipped),
		fmt.Sprintf("Not Evaluated:     %d", d.metrics.DomainsExcluded),
		fmt.Sprintf("Persist Errors:    %d", d.metrics.PersistErrors),
	}

	return panel("#4ECDC4", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderAvailable(width, height int) string {
	recentCount := len(d.recentAvailable)
	lines := []string{
		fmt.Sprintf("✨ Potentially Available (Total: %d)", recentCount),
		"",
	}

	if recentCount == 0 {
		lines = append(lines, "No available domains found yet...")
	} else {
		// Height - 2 (border) - 2 (padding) - 2 (title + empty line)
		maxShow := max(height-6, 0)
		start := 0
		if recentCount > maxShow {
			start = recentCount - maxShow
		}
		for _, domain := range d.recentAvailable[start:] {
			lines = append(lines, fmt.Sprintf("  • %s", domain))
		}
	}

	return panel("#04B575", width, height).Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		Padding(1, 0)

	return footerStyle.Render("Press 'q' or 'Ctrl+C' to stop")
}

func panel(color string, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(1, 2).
		Width(max(width-2, 0)).  // Adjust for border
		Height(max(height-2, 0)) // Adjust for border
}

func probedRatio(m *entity.Metrics) float64 {
	if m.LinksQueued == 0 {
		return 0
	}
	return min(float64(m.LinksProbed)/float64(m.LinksQueued), 1)
}

func formatElapsed(elapsed time.Duration) string {
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*500, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
