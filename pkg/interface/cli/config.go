package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Command names
const (
	CommandScan       = "scan"
	CommandExport     = "export"
	CommandCategories = "categories"
)

// Options holds all application configuration
type Options struct {
	Version    bool   `short:"V" long:"version" description:"Print version information and exit"`
	ConfigFile string `long:"config" env:"WDF_CONFIG" description:"INI file with option values; command line flags take precedence"`

	// Logging
	LogLevel string `long:"log-level" env:"WDF_LOG_LEVEL" description:"Log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	LogFile  string `long:"log-file" env:"WDF_LOG_FILE" description:"Write logs to this file instead of stderr"`

	// Store
	DeadLinksFile string `long:"dead-links-file" env:"WDF_DEAD_LINKS_FILE" description:"Dead link collection" default:"dead_links.json"`
	DomainsFile   string `long:"domains-file" env:"WDF_DOMAINS_FILE" description:"Domain collection" default:"domains.json"`

	Scan       ScanOptions       `command:"scan" description:"Probe article links and evaluate the domains behind dead ones"`
	Export     ExportOptions     `command:"export" description:"Export a stored collection to CSV or XLSX"`
	Categories CategoriesOptions `command:"categories" description:"Search Wikipedia categories to pass to scan --category"`

	// Active is the sub-command that was selected
	Active string `no-flag:"true"`
}

// ScanOptions configures the scan command
type ScanOptions struct {
	// Input
	Search       string        `short:"s" long:"search" env:"WDF_SEARCH" description:"Read articles matching a Wikipedia full-text search"`
	SearchLimit  int           `long:"search-limit" env:"WDF_SEARCH_LIMIT" description:"Number of search results to request" default:"50"`
	Category     string        `short:"c" long:"category" env:"WDF_CATEGORY" description:"Read the articles of a Wikipedia category (name or URL)"`
	InputFile    string        `short:"i" long:"input" env:"WDF_INPUT" description:"Read links from a file, one 'article<TAB>url' or url per line ('-' for stdin)"`
	MaxPages     int           `long:"max-pages" env:"WDF_MAX_PAGES" description:"Maximum number of articles to read (0 for no limit)" default:"10"`
	WikiURL      string        `long:"wiki-url" env:"WDF_WIKI_URL" description:"Wikipedia base URL" default:"https://en.wikipedia.org"`
	ArticleDelay time.Duration `long:"article-delay" env:"WDF_ARTICLE_DELAY" description:"Pause between two article fetches" default:"1s"`

	// Probing
	NumWorkers   int           `long:"workers" env:"WDF_WORKERS" description:"Number of concurrent workers" default:"16"`
	Concurrency  int           `long:"concurrency" env:"WDF_CONCURRENCY" description:"Maximum network operations in flight" default:"10"`
	QueueSize    int           `long:"queue-size" env:"WDF_QUEUE_SIZE" description:"Size of the link queue" default:"1000"`
	Timeout      time.Duration `long:"timeout" env:"WDF_TIMEOUT" description:"Timeout of one probe request" default:"10s"`
	UserAgent    string        `long:"user-agent" env:"WDF_USER_AGENT" description:"HTTP User-Agent header" default:"DeadLinkFinder/1.0 (Research project for identifying broken links)"`
	MaxRedirects int           `long:"max-redirects" env:"WDF_MAX_REDIRECTS" description:"Redirects followed before giving up" default:"10"`
	Retries      int           `long:"retries" env:"WDF_RETRIES" description:"Retries after a transient network failure" default:"1"`
	RetryDelay   time.Duration `long:"retry-delay" env:"WDF_RETRY_DELAY" description:"Wait before the first retry" default:"500ms"`

	// Evaluation
	NoRestrictedFilter bool          `long:"no-restricted-filter" env:"WDF_NO_RESTRICTED_FILTER" description:"Evaluate domains under restricted suffixes like .edu and .gov"`
	RestrictedSuffixes []string      `long:"restricted-suffix" env:"WDF_RESTRICTED_SUFFIXES" env-delim:"," description:"Additional restricted suffix (repeatable)"`
	ExcludedEndings    []string      `long:"exclude-ending" env:"WDF_EXCLUDE_ENDINGS" env-delim:"," description:"Additional host ending whose domains are not evaluated (repeatable)"`
	Recheck            bool          `long:"recheck" env:"WDF_RECHECK" description:"Re-evaluate domains already in the store"`
	DNSServers         []string      `long:"dns-server" env:"WDF_DNS_SERVERS" env-delim:"," description:"DNS server host:port (repeatable)"`
	DNSTimeout         time.Duration `long:"dns-timeout" env:"WDF_DNS_TIMEOUT" description:"Timeout of one DNS query" default:"5s"`
	WhoisServer        string        `long:"whois-server" env:"WDF_WHOIS_SERVER" description:"WHOIS server to query instead of the one IANA refers to"`
	WhoisTimeout       time.Duration `long:"whois-timeout" env:"WDF_WHOIS_TIMEOUT" description:"Timeout of one WHOIS query" default:"15s"`
	WhoisRate          float64       `long:"whois-rate" env:"WDF_WHOIS_RATE" description:"WHOIS queries per second" default:"1"`

	// Dedup
	BloomFilterSize uint    `long:"bloom-size" env:"WDF_BLOOM_SIZE" description:"Expected number of distinct article links" default:"1000000"`
	BloomFilterFP   float64 `long:"bloom-fp" env:"WDF_BLOOM_FP" description:"Bloom filter false positive rate" default:"0.001"`
	BloomFilterFile string  `long:"bloom-file" env:"WDF_BLOOM_FILE" description:"Persist seen links between runs in this file"`

	// Traffic logs and UI
	ProbeLogFile  string `long:"probe-log" env:"WDF_PROBE_LOG" description:"JSONL log of every probe request"`
	LookupLogFile string `long:"lookup-log" env:"WDF_LOOKUP_LOG" description:"JSONL log of every WHOIS and DNS lookup"`
	MetricsAddr   string `long:"metrics-addr" env:"WDF_METRICS_ADDR" description:"Serve Prometheus metrics on this address, e.g. :2112"`
	ShowDashboard bool   `long:"dashboard" env:"WDF_DASHBOARD" description:"Show interactive TUI dashboard"`
	NoProgress    bool   `long:"no-progress" env:"WDF_NO_PROGRESS" description:"Hide the progress bar"`
}

// ExportOptions configures the export command
type ExportOptions struct {
	Collection    string `long:"collection" env:"WDF_EXPORT_COLLECTION" description:"Collection to export" default:"domains" choice:"domains" choice:"dead-links"`
	Format        string `short:"f" long:"format" env:"WDF_EXPORT_FORMAT" description:"Output format" default:"csv" choice:"csv" choice:"xlsx"`
	Output        string `short:"o" long:"output" env:"WDF_EXPORT_OUTPUT" description:"Output file ('-' for stdout)" default:"-"`
	OnlyAvailable bool   `long:"only-available" description:"Export only potentially available domains"`
}

// CategoriesOptions configures the categories command
type CategoriesOptions struct {
	Query     string        `short:"q" long:"query" description:"Words the category name should match"`
	Limit     int           `long:"limit" env:"WDF_CATEGORY_LIMIT" description:"Number of categories to list" default:"20"`
	WikiURL   string        `long:"wiki-url" env:"WDF_WIKI_URL" description:"Wikipedia base URL" default:"https://en.wikipedia.org"`
	UserAgent string        `long:"user-agent" env:"WDF_USER_AGENT" description:"HTTP User-Agent header" default:"DeadLinkFinder/1.0 (Research project for identifying broken links)"`
	Timeout   time.Duration `long:"timeout" env:"WDF_TIMEOUT" description:"Timeout of the search request" default:"10s"`
}

// LoadEnvFiles loads .env.local then .env; missing files are ignored
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ParseArgs parses command line arguments. When --config names an INI file
// its values fill every option not given on the command line, taking
// precedence over environment variables and defaults.
func ParseArgs(args []string) (*Options, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	// Parsed as defaults, INI values skip options set on the command line
	// but still replace environment and tag defaults.
	if opts.ConfigFile != "" {
		ini := flags.NewIniParser(parser)
		ini.ParseAsDefaults = true
		if err := ini.ParseFile(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	if parser.Active != nil {
		opts.Active = parser.Active.Name
	}
	if opts.Version {
		return opts, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate validates the configuration
func (o *Options) Validate() error {
	switch o.Active {
	case CommandScan:
		return o.Scan.Validate()
	case CommandExport:
		return o.Export.Validate()
	case CommandCategories:
		return o.Categories.Validate()
	case "":
		return fmt.Errorf("please specify a command: %s, %s or %s", CommandScan, CommandExport, CommandCategories)
	}
	return fmt.Errorf("unknown command %q", o.Active)
}

// Validate validates the scan configuration
func (c *ScanOptions) Validate() error {
	sources := 0
	for _, s := range []string{c.Search, c.Category, c.InputFile} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of --search, --category or --input is required")
	}

	if c.NumWorkers <= 0 {
		return fmt.Errorf("number of workers must be > 0, got %d", c.NumWorkers)
	}

	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0, got %d", c.Concurrency)
	}

	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be > 0, got %d", c.QueueSize)
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages must be >= 0, got %d", c.MaxPages)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be > 0, got %s", c.Timeout)
	}

	if c.DNSTimeout <= 0 {
		return fmt.Errorf("DNS timeout must be > 0, got %s", c.DNSTimeout)
	}

	if c.WhoisTimeout <= 0 {
		return fmt.Errorf("WHOIS timeout must be > 0, got %s", c.WhoisTimeout)
	}

	if c.WhoisRate <= 0 {
		return fmt.Errorf("WHOIS rate must be > 0, got %g", c.WhoisRate)
	}

	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", c.Retries)
	}

	if c.BloomFilterFP <= 0 || c.BloomFilterFP >= 1 {
		return fmt.Errorf("bloom filter false positive rate must be between 0 and 1, got %f", c.BloomFilterFP)
	}

	return nil
}

// Validate validates the export configuration
func (c *ExportOptions) Validate() error {
	if c.OnlyAvailable && c.Collection != "domains" {
		return fmt.Errorf("--only-available applies to the domains collection only")
	}
	return nil
}

// Validate validates the categories configuration
func (c *CategoriesOptions) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return fmt.Errorf("--query is required")
	}
	if c.Limit <= 0 || c.Limit > 500 {
		return fmt.Errorf("limit must be between 1 and 500, got %d", c.Limit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %s", c.Timeout)
	}
	return nil
}
