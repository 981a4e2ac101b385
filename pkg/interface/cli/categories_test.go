package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAssembler_SearchCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/w/api.php" || q.Get("srnamespace") != "14" || q.Get("srsearch") != "Category:solar" || q.Get("srlimit") != "5" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"query":{"search":[{"title":"Category:Solar power"},{"title":"Category:Solar cells"}]}}`)
	}))
	defer srv.Close()

	opts, err := ParseArgs([]string{"categories", "--query", "solar", "--limit", "5", "--wiki-url", srv.URL})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if opts.Active != CommandCategories {
		t.Fatalf("Active = %q, want %q", opts.Active, CommandCategories)
	}

	var buf bytes.Buffer
	if err := NewAssembler(opts, nil).SearchCategories(context.Background(), &buf); err != nil {
		t.Fatalf("SearchCategories() error = %v", err)
	}

	want := "Category:Solar power\t" + srv.URL + "/wiki/Category:Solar_power\n" +
		"Category:Solar cells\t" + srv.URL + "/wiki/Category:Solar_cells\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestParseArgs_CategoriesInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing query", []string{"categories"}, "--query"},
		{"blank query", []string{"categories", "-q", "  "}, "--query"},
		{"zero limit", []string{"categories", "-q", "solar", "--limit", "0"}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseArgs(%v) error = %v, want mention of %q", tt.args, err, tt.want)
			}
		})
	}
}
