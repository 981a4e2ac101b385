package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"go.uber.org/zap"
)

// DefaultBaseURL is the encyclopedia queried when none is configured
const DefaultBaseURL = "https://en.wikipedia.org"

// WikipediaConfig holds Wikipedia source configuration
type WikipediaConfig struct {
	BaseURL string
	// Search lists articles matching a full-text query
	Search      string
	SearchLimit int
	// Category lists the articles of a category, by name or URL
	Category string
	// MaxPages caps how many articles are read
	MaxPages int
	// ArticleDelay is the pause between two article fetches
	ArticleDelay time.Duration
	Timeout      time.Duration
	UserAgent    string
	Logger       *zap.Logger
	// OnArticle is called for each article whose links were extracted
	OnArticle func(title string)
}

// Page is an article to read
type Page struct {
	Title string
	URL   string
}

// Wikipedia implements repository.CandidateSource over a single bounded
// search or category listing
type Wikipedia struct {
	cfg    WikipediaConfig
	client *http.Client
}

// Namespaces of the search API
const (
	articleNamespace  = "0"
	categoryNamespace = "14"
)

// DefaultCategoryLimit is how many categories a category search returns
const DefaultCategoryLimit = 20

// NewWikipedia creates a new Wikipedia source
func NewWikipedia(cfg WikipediaConfig) (*Wikipedia, error) {
	if cfg.Search == "" && cfg.Category == "" {
		return nil, fmt.Errorf("either a search query or a category is required")
	}
	return newWikipedia(cfg), nil
}

func newWikipedia(cfg WikipediaConfig) *Wikipedia {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OnArticle == nil {
		cfg.OnArticle = func(string) {}
	}
	return &Wikipedia{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// SearchCategories lists up to limit categories whose name matches query.
// Any category returned can be passed as WikipediaConfig.Category.
func SearchCategories(ctx context.Context, cfg WikipediaConfig, query string, limit int) ([]Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("a category query is required")
	}
	if limit <= 0 {
		limit = DefaultCategoryLimit
	}
	w := newWikipedia(cfg)
	pages, err := w.search(ctx, "Category:"+query, categoryNamespace, limit)
	if err != nil {
		return nil, fmt.Errorf("search categories %q: %w", query, err)
	}
	return pages, nil
}

// Candidates yields the external links of every listed article. A failure
// to list articles ends the sequence; a failing article is reported and skipped.
func (w *Wikipedia) Candidates(ctx context.Context) iter.Seq2[entity.Candidate, error] {
	return func(yield func(entity.Candidate, error) bool) {
		pages, err := w.Pages(ctx)
		if err != nil {
			yield(entity.Candidate{}, err)
			return
		}

		for i, page := range pages {
			if i > 0 && w.cfg.ArticleDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(w.cfg.ArticleDelay):
				}
			}
			if ctx.Err() != nil {
				return
			}

			links, err := w.ArticleLinks(ctx, page)
			if err != nil {
				if !yield(entity.Candidate{}, fmt.Errorf("article %q: %w", page.Title, err)) {
					return
				}
				continue
			}
			w.cfg.OnArticle(page.Title)
			w.cfg.Logger.Info("article read", zap.String("title", page.Title), zap.Int("external_links", len(links)))

			for _, c := range links {
				if !yield(c, nil) {
					return
				}
			}
		}
	}
}

// Pages lists the articles to read, capped at MaxPages
func (w *Wikipedia) Pages(ctx context.Context) ([]Page, error) {
	var (
		pages []Page
		err   error
	)
	if w.cfg.Search != "" {
		pages, err = w.searchArticles(ctx)
	} else {
		pages, err = w.categoryPages(ctx)
	}
	if err != nil {
		return nil, err
	}
	if w.cfg.MaxPages > 0 && len(pages) > w.cfg.MaxPages {
		pages = pages[:w.cfg.MaxPages]
	}
	return pages, nil
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title  string `json:"title"`
			PageID int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

func (w *Wikipedia) searchArticles(ctx context.Context) ([]Page, error) {
	pages, err := w.search(ctx, w.cfg.Search, articleNamespace, w.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", w.cfg.Search, err)
	}
	return pages, nil
}

// search runs a full-text query restricted to one namespace
func (w *Wikipedia) search(ctx context.Context, query, namespace string, limit int) ([]Page, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srnamespace", namespace)
	params.Set("srlimit", strconv.Itoa(limit))

	body, err := w.get(ctx, w.cfg.BaseURL+"/w/api.php?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp searchResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	pages := make([]Page, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		if r.Title == "" {
			continue
		}
		pages = append(pages, Page{Title: r.Title, URL: w.articleURL(r.Title)})
	}
	return pages, nil
}

func (w *Wikipedia) categoryPages(ctx context.Context) ([]Page, error) {
	categoryURL := w.cfg.Category
	if !strings.HasPrefix(categoryURL, "http://") && !strings.HasPrefix(categoryURL, "https://") {
		name := categoryURL
		if !strings.HasPrefix(name, "Category:") {
			name = "Category:" + name
		}
		categoryURL = w.articleURL(name)
	}
	base, err := url.Parse(categoryURL)
	if err != nil {
		return nil, fmt.Errorf("category url %q: %w", categoryURL, err)
	}

	doc, err := w.document(ctx, categoryURL)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", w.cfg.Category, err)
	}

	seen := make(map[string]bool)
	var pages []Page
	doc.Find("#mw-content-text li").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a").First()
		href, hasHref := link.Attr("href")
		title, hasTitle := link.Attr("title")
		if !hasHref || !hasTitle || !strings.HasPrefix(href, "/wiki/") {
			return
		}
		if strings.Contains(href, "Category:") || strings.Contains(href, "File:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		pageURL := base.ResolveReference(ref).String()
		if seen[pageURL] {
			return
		}
		seen[pageURL] = true
		pages = append(pages, Page{Title: title, URL: pageURL})
	})
	return pages, nil
}

// ArticleLinks fetches an article and returns its external links, each once
func (w *Wikipedia) ArticleLinks(ctx context.Context, page Page) ([]entity.Candidate, error) {
	doc, err := w.document(ctx, page.URL)
	if err != nil {
		return nil, err
	}

	title := page.Title
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1#firstHeading").First().Text())
	}
	if title == "" {
		title = "Unknown Title"
	}

	seen := make(map[string]bool)
	var links []entity.Candidate
	doc.Find("a.external").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, entity.Candidate{
			Article:    title,
			ArticleURL: page.URL,
			URL:        href,
			Text:       strings.TrimSpace(a.Text()),
		})
	})
	return links, nil
}

func (w *Wikipedia) articleURL(title string) string {
	return w.cfg.BaseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

func (w *Wikipedia) document(ctx context.Context, target string) (*goquery.Document, error) {
	body, err := w.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

func (w *Wikipedia) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", target, resp.Status)
	}
	return resp.Body, nil
}
