package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
)

func TestExporter_Handler(t *testing.T) {
	e := NewExporter(nil)
	e.OnMetricsUpdate(&entity.Metrics{
		LinksDead:        7,
		LinksAlive:       30,
		DomainsAvailable: 2,
		DomainsTaken:     3,
		PeakInFlight:     5,
	})
	e.AddAvailableDomain("gone.example.com")

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"wdf_links_dead_total 7",
		"wdf_links_alive_total 30",
		`wdf_domains_evaluated_total{availability="potentially_available"} 2`,
		`wdf_domains_evaluated_total{availability="registered"} 3`,
		"wdf_peak_in_flight 5",
		"wdf_available_domains_found_total 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
