package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startServer runs an in-process DNS server on a random UDP port
func startServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func zoneHandler(w dns.ResponseWriter, req *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(req)
	q := req.Question[0]

	switch q.Name {
	case "registered.test.":
		if q.Qtype == dns.TypeNS {
			rr, _ := dns.NewRR("registered.test. 300 IN NS ns1.registered.test.")
			m.Answer = append(m.Answer, rr)
		}
	case "aonly.test.":
		if q.Qtype == dns.TypeA {
			rr, _ := dns.NewRR("aonly.test. 300 IN A 192.0.2.1")
			m.Answer = append(m.Answer, rr)
		}
	case "empty.test.":
	case "broken.test.":
		m.Rcode = dns.RcodeServerFailure
	default:
		m.Rcode = dns.RcodeNameError
	}
	_ = w.WriteMsg(m)
}

func TestResolver_HasRecords(t *testing.T) {
	addr := startServer(t, zoneHandler)
	resolver := NewResolver(Config{Servers: []string{addr}, Timeout: time.Second})

	tests := []struct {
		domain  string
		want    bool
		wantErr bool
	}{
		{"registered.test", true, false},
		{"aonly.test", true, false},
		{"empty.test", false, false},
		{"missing.test", false, false},
		{"broken.test", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			got, err := resolver.HasRecords(context.Background(), tt.domain)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HasRecords(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrNoAnswer) {
				t.Errorf("HasRecords(%q) error = %v, want ErrNoAnswer", tt.domain, err)
			}
			if got != tt.want {
				t.Errorf("HasRecords(%q) = %v, want %v", tt.domain, got, tt.want)
			}
		})
	}
}

func TestResolver_ServerFallback(t *testing.T) {
	failing := startServer(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, dns.RcodeServerFailure)
		_ = w.WriteMsg(m)
	})
	working := startServer(t, zoneHandler)

	resolver := NewResolver(Config{Servers: []string{failing, working}, Timeout: time.Second})
	got, err := resolver.HasRecords(context.Background(), "registered.test")
	if err != nil {
		t.Fatalf("HasRecords() error = %v", err)
	}
	if !got {
		t.Error("HasRecords() = false, want true via fallback server")
	}
}

func TestResolver_Timeout(t *testing.T) {
	silent := startServer(t, func(w dns.ResponseWriter, req *dns.Msg) {})

	resolver := NewResolver(Config{Servers: []string{silent}, Timeout: 100 * time.Millisecond})
	_, err := resolver.HasRecords(context.Background(), "registered.test")
	if err == nil {
		t.Fatal("HasRecords() error = nil, want timeout")
	}
}
