package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const categoryPage = `<html><body>
<div id="mw-content-text">
<ul>
<li><a href="/wiki/Alpha" title="Alpha">Alpha</a></li>
<li><a href="/wiki/Beta" title="Beta">Beta</a></li>
<li><a href="/wiki/Category:Sub" title="Category:Sub">Sub</a></li>
<li><a href="/wiki/File:Logo.png" title="File:Logo.png">Logo</a></li>
<li><a href="https://elsewhere.example/" title="Elsewhere">Elsewhere</a></li>
<li><a href="/wiki/Alpha" title="Alpha">Alpha again</a></li>
</ul>
</div>
</body></html>`

func articlePage(title string, links ...string) string {
	body := fmt.Sprintf(`<html><body><h1 id="firstHeading">%s</h1><div id="mw-content-text">`, title)
	for i, l := range links {
		body += fmt.Sprintf(`<a class="external text" href="%s"> ref %d </a>`, l, i)
	}
	body += `<a href="/wiki/Internal">internal</a></div></body></html>`
	return body
}

func newWikiServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if q.Get("list") == "search" && q.Get("srnamespace") == "14" && q.Get("srsearch") == "Category:renewable" {
			if q.Get("srlimit") != "20" {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"query":{"search":[{"title":"Category:Renewable energy","pageid":10},{"title":"Category:Renewable energy policy","pageid":11},{"title":"","pageid":12}]}}`)
			return
		}
		if q.Get("list") != "search" || q.Get("srnamespace") != "0" || q.Get("srsearch") != "solar power" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"query":{"search":[{"title":"Solar power","pageid":1},{"title":"Solar cell","pageid":2},{"title":"Photovoltaics","pageid":3}]}}`)
	})
	mux.HandleFunc("/wiki/", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/wiki/Category:Renewable_energy":
			fmt.Fprint(w, categoryPage)
		case "/wiki/Alpha":
			fmt.Fprint(w, articlePage("Alpha", "https://a.example/1", "https://a.example/1", "//b.example/2"))
		case "/wiki/Beta":
			fmt.Fprint(w, articlePage("Beta", "https://c.example/3"))
		case "/wiki/Solar_power":
			fmt.Fprint(w, articlePage("Solar power", "https://sun.example/"))
		case "/wiki/Solar_cell":
			http.Error(w, "gone", http.StatusNotFound)
		case "/wiki/Photovoltaics":
			fmt.Fprint(w, articlePage("Photovoltaics", "https://pv.example/a", "https://pv.example/b"))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWikipedia_Category(t *testing.T) {
	var requests atomic.Int32
	srv := newWikiServer(t, &requests)

	src, err := NewWikipedia(WikipediaConfig{BaseURL: srv.URL, Category: "Renewable energy"})
	if err != nil {
		t.Fatalf("NewWikipedia() error = %v", err)
	}

	pages, err := src.Pages(context.Background())
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if len(pages) != 2 || pages[0].Title != "Alpha" || pages[1].Title != "Beta" {
		t.Fatalf("Pages() = %+v, want Alpha and Beta", pages)
	}

	var urls []string
	for c, err := range src.Candidates(context.Background()) {
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if c.ArticleURL == "" || c.Article == "" {
			t.Errorf("candidate %+v misses its article", c)
		}
		urls = append(urls, c.URL)
	}

	want := []string{"https://a.example/1", "//b.example/2", "https://c.example/3"}
	if fmt.Sprint(urls) != fmt.Sprint(want) {
		t.Errorf("candidate urls = %v, want %v", urls, want)
	}
}

func TestWikipedia_SearchSkipsFailingArticle(t *testing.T) {
	var requests atomic.Int32
	srv := newWikiServer(t, &requests)

	var articles []string
	src, err := NewWikipedia(WikipediaConfig{
		BaseURL:   srv.URL,
		Search:    "solar power",
		OnArticle: func(title string) { articles = append(articles, title) },
	})
	if err != nil {
		t.Fatalf("NewWikipedia() error = %v", err)
	}

	var (
		count  int
		failed int
	)
	for c, err := range src.Candidates(context.Background()) {
		if err != nil {
			failed++
			continue
		}
		if c.Text == "" {
			t.Errorf("candidate %q has no trimmed text", c.URL)
		}
		count++
	}

	if count != 3 {
		t.Errorf("candidates = %d, want 3", count)
	}
	if failed != 1 {
		t.Errorf("failed articles = %d, want 1", failed)
	}
	if fmt.Sprint(articles) != "[Solar power Photovoltaics]" {
		t.Errorf("articles = %v", articles)
	}
}

func TestWikipedia_MaxPages(t *testing.T) {
	var requests atomic.Int32
	srv := newWikiServer(t, &requests)

	src, err := NewWikipedia(WikipediaConfig{BaseURL: srv.URL, Search: "solar power", MaxPages: 1})
	if err != nil {
		t.Fatalf("NewWikipedia() error = %v", err)
	}

	for _, err := range src.Candidates(context.Background()) {
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
	}
	// one search request plus one article
	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestWikipedia_ListingFailure(t *testing.T) {
	var requests atomic.Int32
	srv := newWikiServer(t, &requests)

	src, err := NewWikipedia(WikipediaConfig{BaseURL: srv.URL, Category: "Missing"})
	if err != nil {
		t.Fatalf("NewWikipedia() error = %v", err)
	}

	var errs int
	for _, err := range src.Candidates(context.Background()) {
		if err == nil {
			t.Fatal("expected only an error")
		}
		errs++
	}
	if errs != 1 {
		t.Errorf("errors = %d, want 1", errs)
	}
}

func TestWikipedia_EarlyBreak(t *testing.T) {
	var requests atomic.Int32
	srv := newWikiServer(t, &requests)

	src, err := NewWikipedia(WikipediaConfig{BaseURL: srv.URL, Category: "Renewable_energy"})
	if err != nil {
		t.Fatalf("NewWikipedia() error = %v", err)
	}

	for range src.Candidates(context.Background()) {
		break
	}
	// category listing plus the first article only
	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestNewWikipedia_RequiresListing(t *testing.T) {
	if _, err := NewWikipedia(WikipediaConfig{}); err == nil {
		t.Error("NewWikipedia() without search or category should fail")
	}
}

func TestSearchCategories(t *testing.T) {
	var requests atomic.Int32
	srv := newWikiServer(t, &requests)
	cfg := WikipediaConfig{BaseURL: srv.URL}

	pages, err := SearchCategories(context.Background(), cfg, " renewable ", 0)
	if err != nil {
		t.Fatalf("SearchCategories() error = %v", err)
	}
	want := []Page{
		{Title: "Category:Renewable energy", URL: srv.URL + "/wiki/Category:Renewable_energy"},
		{Title: "Category:Renewable energy policy", URL: srv.URL + "/wiki/Category:Renewable_energy_policy"},
	}
	if len(pages) != len(want) {
		t.Fatalf("SearchCategories() = %+v, want %+v", pages, want)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("pages[%d] = %+v, want %+v", i, pages[i], want[i])
		}
	}

	// A listed category is a valid category source
	w, err := NewWikipedia(WikipediaConfig{BaseURL: srv.URL, Category: pages[0].URL})
	if err != nil {
		t.Fatal(err)
	}
	listed, err := w.Pages(context.Background())
	if err != nil || len(listed) != 2 {
		t.Errorf("Pages() of %s = %+v, %v", pages[0].URL, listed, err)
	}
}

func TestSearchCategories_Errors(t *testing.T) {
	var requests atomic.Int32
	srv := newWikiServer(t, &requests)

	tests := []struct {
		name  string
		query string
	}{
		{"blank query", "  "},
		{"api failure", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SearchCategories(context.Background(), WikipediaConfig{BaseURL: srv.URL}, tt.query, 20); err == nil {
				t.Errorf("SearchCategories(%q) error = nil, want error", tt.query)
			}
		})
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1 (blank query sends nothing)", got)
	}
}
