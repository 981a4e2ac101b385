package whois

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/service"
)

const registeredResponse = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Registrar URL: http://res-dom.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2099-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
>>> Last update of whois database: 2026-01-01T00:00:00Z <<<
`

const notFoundResponse = `No match for "SURELY-UNREGISTERED-EXAMPLE.COM".
>>> Last update of whois database: 2026-01-01T00:00:00Z <<<
`

func TestInterpret(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantOK     bool
		wantAbsent bool
	}{
		{"registered", registeredResponse, true, false},
		{"not found", notFoundResponse, false, true},
		{"empty", "   \n", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpret("example.com", tt.text)
			if (err == nil) != tt.wantOK {
				t.Fatalf("Interpret() error = %v, wantOK %v", err, tt.wantOK)
			}
			if got := errors.Is(err, service.ErrNoWhoisRecord); got != tt.wantAbsent {
				t.Errorf("errors.Is(%v, ErrNoWhoisRecord) = %v, want %v", err, got, tt.wantAbsent)
			}
		})
	}
}

func TestInterpret_Registered(t *testing.T) {
	info, err := Interpret("example.com", registeredResponse)
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	want := time.Date(2099, 8, 13, 4, 0, 0, 0, time.UTC)
	if info.ExpirationDate == nil || !info.ExpirationDate.Equal(want) {
		t.Errorf("ExpirationDate = %v, want %v", info.ExpirationDate, want)
	}
	if info.Registrar == "" {
		t.Error("Registrar is empty")
	}
}

func TestClient_Lookup(t *testing.T) {
	tests := []struct {
		name       string
		query      func(string) (string, error)
		wantOK     bool
		wantAbsent bool
	}{
		{"registered", func(string) (string, error) { return registeredResponse, nil }, true, false},
		{"not found", func(string) (string, error) { return notFoundResponse, nil }, false, true},
		{"network failure", func(string) (string, error) { return "", errors.New("i/o timeout") }, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{query: tt.query}
			_, err := c.Lookup(context.Background(), "example.com")
			if (err == nil) != tt.wantOK {
				t.Fatalf("Lookup() error = %v, wantOK %v", err, tt.wantOK)
			}
			if got := errors.Is(err, service.ErrNoWhoisRecord); got != tt.wantAbsent {
				t.Errorf("errors.Is(%v, ErrNoWhoisRecord) = %v, want %v", err, got, tt.wantAbsent)
			}
		})
	}
}

func TestClient_LookupCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := &Client{query: func(string) (string, error) {
		<-block
		return "", nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Lookup(ctx, "example.com"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lookup() error = %v, want context.DeadlineExceeded", err)
	}
}
