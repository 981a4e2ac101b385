package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseArgs_ScanDefaults(t *testing.T) {
	opts, err := ParseArgs([]string{"scan", "--search", "solar power"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}

	if opts.Active != CommandScan {
		t.Errorf("Active = %q, want %q", opts.Active, CommandScan)
	}
	if opts.Scan.Search != "solar power" {
		t.Errorf("Search = %q", opts.Scan.Search)
	}
	if opts.Scan.Timeout != 10*time.Second || opts.Scan.ArticleDelay != time.Second {
		t.Errorf("Timeout = %s, ArticleDelay = %s", opts.Scan.Timeout, opts.Scan.ArticleDelay)
	}
	if opts.Scan.Concurrency != 10 || opts.Scan.MaxPages != 10 {
		t.Errorf("Concurrency = %d, MaxPages = %d", opts.Scan.Concurrency, opts.Scan.MaxPages)
	}
	if !strings.HasPrefix(opts.Scan.UserAgent, "DeadLinkFinder/1.0") {
		t.Errorf("UserAgent = %q", opts.Scan.UserAgent)
	}
	if opts.DeadLinksFile != "dead_links.json" || opts.DomainsFile != "domains.json" {
		t.Errorf("store files = %q, %q", opts.DeadLinksFile, opts.DomainsFile)
	}
}

func TestParseArgs_Env(t *testing.T) {
	t.Setenv("WDF_CONCURRENCY", "3")
	t.Setenv("WDF_DNS_SERVERS", "9.9.9.9:53,1.1.1.1:53")

	opts, err := ParseArgs([]string{"scan", "--category", "Renewable energy"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if opts.Scan.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", opts.Scan.Concurrency)
	}
	if len(opts.Scan.DNSServers) != 2 || opts.Scan.DNSServers[0] != "9.9.9.9:53" {
		t.Errorf("DNSServers = %v", opts.Scan.DNSServers)
	}
}

func TestParseArgs_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wdf.ini")
	content := "[Application Options]\nlog-level = debug\ndomains-file = from-ini.json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := ParseArgs([]string{"--config", path, "--domains-file", "from-flag.json", "export"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if opts.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from the config file", opts.LogLevel)
	}
	if opts.DomainsFile != "from-flag.json" {
		t.Errorf("DomainsFile = %q, flag should win over the config file", opts.DomainsFile)
	}
}

func TestParseArgs_ConfigFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wdf.ini")
	content := "[Application Options]\nlog-level = debug\ndead-links-file = dead-from-ini.json\ndomains-file = from-ini.json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WDF_LOG_LEVEL", "warn")
	t.Setenv("WDF_DOMAINS_FILE", "from-env.json")

	tests := []struct {
		name          string
		args          []string
		wantLogLevel  string
		wantDeadLinks string
		wantDomains   string
	}{
		{
			name:          "config file beats environment",
			args:          []string{"--config", path, "export"},
			wantLogLevel:  "debug",
			wantDeadLinks: "dead-from-ini.json",
			wantDomains:   "from-ini.json",
		},
		{
			name:          "flags beat config file",
			args:          []string{"--config", path, "--log-level", "error", "--domains-file", "from-flag.json", "export"},
			wantLogLevel:  "error",
			wantDeadLinks: "dead-from-ini.json",
			wantDomains:   "from-flag.json",
		},
		{
			name:          "flag given before config",
			args:          []string{"--domains-file", "from-flag.json", "--config", path, "export"},
			wantLogLevel:  "debug",
			wantDeadLinks: "dead-from-ini.json",
			wantDomains:   "from-flag.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}
			if opts.LogLevel != tt.wantLogLevel {
				t.Errorf("LogLevel = %q, want %q", opts.LogLevel, tt.wantLogLevel)
			}
			if opts.DeadLinksFile != tt.wantDeadLinks {
				t.Errorf("DeadLinksFile = %q, want %q", opts.DeadLinksFile, tt.wantDeadLinks)
			}
			if opts.DomainsFile != tt.wantDomains {
				t.Errorf("DomainsFile = %q, want %q", opts.DomainsFile, tt.wantDomains)
			}
		})
	}
}

func TestParseArgs_Version(t *testing.T) {
	opts, err := ParseArgs([]string{"--version"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if !opts.Version {
		t.Error("Version not set")
	}
}

func TestParseArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{}},
		{"no source", []string{"scan"}},
		{"two sources", []string{"scan", "--search", "x", "--input", "links.txt"}},
		{"zero workers", []string{"scan", "--search", "x", "--workers", "0"}},
		{"zero concurrency", []string{"scan", "--search", "x", "--concurrency", "0"}},
		{"bad bloom rate", []string{"scan", "--search", "x", "--bloom-fp", "1.5"}},
		{"bad format", []string{"export", "--format", "pdf"}},
		{"only available dead links", []string{"export", "--collection", "dead-links", "--only-available"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArgs(tt.args); err == nil {
				t.Errorf("ParseArgs(%v) should fail", tt.args)
			}
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles() without files error = %v", err)
	}

	t.Setenv("WDF_MAX_PAGES", "")
	os.Unsetenv("WDF_MAX_PAGES")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WDF_MAX_PAGES=25\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}

	opts, err := ParseArgs([]string{"scan", "--search", "x"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if opts.Scan.MaxPages != 25 {
		t.Errorf("MaxPages = %d, want 25 from .env", opts.Scan.MaxPages)
	}
}
