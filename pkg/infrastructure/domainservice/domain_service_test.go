package domainservice

import (
	"errors"
	"testing"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/service"
)

func TestExtractor_Extract(t *testing.T) {
	extractor := NewExtractor()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"simple", "http://example.com/page", "example.com", false},
		{"subdomain", "https://www.blog.example.com/a?b=c", "example.com", false},
		{"uppercase host", "HTTP://WWW.Example.COM/", "example.com", false},
		{"port", "http://example.org:8080/x", "example.org", false},
		{"trailing dot", "http://example.net./", "example.net", false},
		{"compound suffix", "http://news.bbc.co.uk/1/hi", "bbc.co.uk", false},
		{"protocol relative", "//cdn.example.com/lib.js", "example.com", false},
		{"restricted tld still extracted", "http://www.mit.edu/", "mit.edu", false},
		{"unicode host", "http://bücher.de/katalog", "xn--bcher-kva.de", false},
		{"unicode subdomain", "https://www.müller.co.uk/", "xn--mller-kva.co.uk", false},
		{"unicode tld", "http://пример.рф/", "xn--e1afmkfd.xn--p1ai", false},
		{"escaped unicode host", "http://shop.%E4%BE%8B%E3%81%88.jp/", "xn--r8jz45g.jp", false},
		{"punycode host", "http://xn--bcher-kva.de/", "xn--bcher-kva.de", false},
		{"no host", "/wiki/Go", "", true},
		{"mailto", "mailto:someone@example.com", "", true},
		{"ip literal", "http://192.168.0.1/", "", true},
		{"public suffix only", "http://co.uk/", "", true},
		{"garbage", "http://%zz/", "", true},
		{"single label", "http://localhost/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.Extract(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Extract(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, service.ErrInvalidURL) {
				t.Errorf("Extract(%q) error = %v, want ErrInvalidURL", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestRestrictionTable_IsRestricted(t *testing.T) {
	table := NewRestrictionTable(true, []string{"gov.in"})

	tests := []struct {
		domain string
		want   bool
	}{
		{"mit.edu", true},
		{"whitehouse.gov", true},
		{"army.mil", true},
		{"who.int", true},
		{"in-addr.arpa", true},
		{"ox.ac.uk", true},
		{"www.ox.ac.uk", true},
		{"nhs.uk", true},
		{"met.police.uk", true},
		{"abs.gov.au", true},
		{"ui.ac.id", true},
		{"india.gov.in", true},
		{"example.com", false},
		{"education.com", false},
		{"bbc.co.uk", false},
		{"gov.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := table.IsRestricted(tt.domain); got != tt.want {
				t.Errorf("IsRestricted(%q) = %v, want %v", tt.domain, got, tt.want)
			}
		})
	}
}

func TestRestrictionTable_Disabled(t *testing.T) {
	table := NewRestrictionTable(false, nil)
	if table.IsRestricted("mit.edu") {
		t.Error("IsRestricted(mit.edu) = true on a disabled table, want false")
	}
}

func TestExclusionPolicy_ExcludeURL(t *testing.T) {
	policy := NewExclusionPolicy(DefaultArchiveHosts, DefaultExcludedEndings)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://web.archive.org/web/2010/http://example.com/", true},
		{"http://archive.org/details/x", true},
		{"https://archive.ph/abc", true},
		{"https://www.webcitation.org/5abc", true},
		{"//web.archive.org/web/2010/x", true},
		{"http://example.com/", false},
		{"http://notarchive.org/", false},
		{"http://archive.org.example.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := policy.ExcludeURL(tt.url); got != tt.want {
				t.Errorf("ExcludeURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExclusionPolicy_SkipEvaluation(t *testing.T) {
	policy := NewExclusionPolicy(DefaultArchiveHosts, DefaultExcludedEndings)

	tests := []struct {
		url  string
		want bool
	}{
		{"http://www.spiegel.de/artikel", true},
		{"http://example.com.au/", true},
		{"http://www.example.com:80/x", true},
		{"http://example.edu:8000/", true},
		{"http://example.jp/", true},
		{"http://example.com/", false},
		{"http://example.org/", false},
		{"http://deutsch.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := policy.SkipEvaluation(tt.url); got != tt.want {
				t.Errorf("SkipEvaluation(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}
