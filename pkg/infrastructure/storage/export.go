package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Table is a flat projection of a record collection
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// DeadLinksTable projects dead links into a table
func DeadLinksTable(links []entity.LinkRecord) Table {
	t := Table{
		Name:   "Dead links",
		Header: []string{"source_article", "article_url", "url", "link_text", "dead_reason", "status_code", "domain", "attempts", "checked_at"},
	}
	for _, l := range links {
		reason := ""
		if l.DeadReason != nil {
			reason = l.DeadReason.String()
		}
		t.Rows = append(t.Rows, []string{
			l.SourceArticle,
			l.ArticleURL,
			l.URL,
			l.LinkText,
			reason,
			intOrEmpty(l.StatusCode),
			l.Domain,
			strconv.Itoa(l.Attempts),
			formatTime(&l.CheckedAt),
		})
	}
	return t
}

// DomainsTable projects domain records into a table, optionally keeping only
// potentially available domains
func DomainsTable(domains []entity.DomainRecord, onlyAvailable bool) Table {
	t := Table{
		Name: "Domains",
		Header: []string{"domain", "availability", "has_whois", "expiration_date", "has_dns_records",
			"is_restricted_tld", "registrar", "found_on_articles", "dead_urls", "first_seen_at", "last_seen_at"},
	}
	for _, d := range domains {
		if onlyAvailable && d.Availability != entity.PotentiallyAvailable {
			continue
		}
		t.Rows = append(t.Rows, []string{
			d.Domain,
			string(d.Availability),
			triState(d.Signals.HasWhois),
			formatTime(d.Signals.ExpirationDate),
			triState(d.Signals.HasDNSRecords),
			strconv.FormatBool(d.Signals.IsRestrictedTLD),
			d.Signals.Registrar,
			strings.Join(d.FoundOnArticles, "; "),
			strings.Join(d.DeadURLs, " "),
			formatTime(&d.FirstSeenAt),
			formatTime(&d.LastSeenAt),
		})
	}
	return t
}

// WriteTable writes t to w in the given format
func WriteTable(w io.Writer, format string, t Table) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, t)
	case FormatXLSX:
		return writeXLSX(w, t)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Name
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s", lastCell(len(t.Header), len(t.Rows)+1)), nil); err != nil {
		return fmt.Errorf("set auto filter: %w", err)
	}
	return f.Write(w)
}

func lastCell(cols, rows int) string {
	name, _ := excelize.CoordinatesToCellName(cols, rows)
	return name
}

func triState(b *bool) string {
	if b == nil {
		return "unknown"
	}
	return strconv.FormatBool(*b)
}

func intOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
