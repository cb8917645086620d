// Package export renders leads to the formats the outreach side consumes:
// CSV for spreadsheets and CRM import, JSONL for downstream tooling, XLSX
// for sharing, and Markdown for a readable triage digest.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/reson-group/lead-radar/internal/model"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSONL    Format = "jsonl"
	FormatMarkdown Format = "md"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat maps a user-supplied format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Export writes the leads to w in the given format. Leads are sorted hot
// first, then by score; the input slice is not modified.
func Export(w io.Writer, leads []model.Lead, format Format) error {
	sorted := make([]model.Lead, len(leads))
	copy(sorted, leads)
	SortLeads(sorted)

	switch format {
	case FormatCSV:
		return writeCSV(w, sorted)
	case FormatJSONL:
		return writeJSONL(w, sorted)
	case FormatMarkdown:
		return writeMarkdown(w, sorted)
	case FormatXLSX:
		return writeXLSX(w, sorted)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// ExportFile writes the leads to a file, creating or truncating it.
func ExportFile(path string, leads []model.Lead, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Export(f, leads, format); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// SortLeads orders for triage: band (hot first), score descending, then
// country and company for a stable tie-break.
func SortLeads(leads []model.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		if bi, bj := bandRank(leads[i].Band), bandRank(leads[j].Band); bi != bj {
			return bi < bj
		}
		if leads[i].Score != leads[j].Score {
			return leads[i].Score > leads[j].Score
		}
		if leads[i].Country != leads[j].Country {
			return leads[i].Country < leads[j].Country
		}
		return leads[i].Company < leads[j].Company
	})
}

func bandRank(b model.PriorityBand) int {
	switch b {
	case model.BandHot:
		return 0
	case model.BandWarm:
		return 1
	case model.BandCold:
		return 2
	default:
		return 3
	}
}

// csvRow flattens a lead for tabular formats. Set-valued fields are joined
// with "; " so a row survives spreadsheet round-trips.
type csvRow struct {
	Company     string  `csv:"company"`
	Country     string  `csv:"country"`
	Segment     string  `csv:"segment"`
	Score       int     `csv:"score"`
	Band        string  `csv:"priority_band"`
	Confidence  float64 `csv:"confidence"`
	Tags        string  `csv:"tags"`
	Website     string  `csv:"website"`
	Emails      string  `csv:"emails"`
	Phones      string  `csv:"phones"`
	Sources     string  `csv:"sources"`
	SourceURLs  string  `csv:"source_urls"`
	Reason      string  `csv:"reason"`
	FirstSeenAt string  `csv:"first_seen_at"`
	LastSeenAt  string  `csv:"last_seen_at"`
	IdentityKey string  `csv:"identity_key"`
}

func toRow(l model.Lead) csvRow {
	return csvRow{
		Company:     l.Company,
		Country:     l.Country,
		Segment:     string(l.Segment),
		Score:       l.Score,
		Band:        string(l.Band),
		Confidence:  l.Confidence,
		Tags:        strings.Join(l.Tags, "; "),
		Website:     l.Website,
		Emails:      strings.Join(l.Emails, "; "),
		Phones:      strings.Join(l.Phones, "; "),
		Sources:     strings.Join(l.Sources, "; "),
		SourceURLs:  strings.Join(l.SourceURLs, "; "),
		Reason:      l.Reason,
		FirstSeenAt: l.FirstSeenAt.UTC().Format(time.RFC3339),
		LastSeenAt:  l.LastSeenAt.UTC().Format(time.RFC3339),
		IdentityKey: l.IdentityKey,
	}
}

func writeCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, l := range leads {
		if err := enc.Encode(toRow(l)); err != nil {
			return eris.Wrap(err, "export: encode csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func writeJSONL(w io.Writer, leads []model.Lead) error {
	enc := json.NewEncoder(w)
	for _, l := range leads {
		if err := enc.Encode(l); err != nil {
			return eris.Wrap(err, "export: encode jsonl")
		}
	}
	return nil
}

func writeMarkdown(w io.Writer, leads []model.Lead) error {
	byBand := map[model.PriorityBand][]model.Lead{}
	for _, l := range leads {
		byBand[l.Band] = append(byBand[l.Band], l)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Lead radar — %d leads\n", len(leads))

	for _, band := range []model.PriorityBand{model.BandHot, model.BandWarm, model.BandCold} {
		group := byBand[band]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", band, len(group))
		b.WriteString("| Company | Country | Score | Stack | Contact | Website |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, l := range group {
			contact := ""
			if len(l.Emails) > 0 {
				contact = l.Emails[0]
			} else if len(l.Phones) > 0 {
				contact = l.Phones[0]
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s |\n",
				mdEscape(l.Company), l.Country, l.Score,
				strings.Join(l.Tags, ", "), contact, l.Website)
		}
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "export: write markdown")
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func writeXLSX(w io.Writer, leads []model.Lead) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{
		"Company", "Country", "Segment", "Score", "Band", "Confidence",
		"Tags", "Website", "Emails", "Phones", "Sources", "Reason",
	} {
		header.AddCell().Value = name
	}

	for _, l := range leads {
		row := sheet.AddRow()
		row.AddCell().Value = l.Company
		row.AddCell().Value = l.Country
		row.AddCell().Value = string(l.Segment)
		row.AddCell().SetInt(l.Score)
		row.AddCell().Value = string(l.Band)
		row.AddCell().SetFloat(l.Confidence)
		row.AddCell().Value = strings.Join(l.Tags, "; ")
		row.AddCell().Value = l.Website
		row.AddCell().Value = strings.Join(l.Emails, "; ")
		row.AddCell().Value = strings.Join(l.Phones, "; ")
		row.AddCell().Value = strings.Join(l.Sources, "; ")
		row.AddCell().Value = l.Reason
	}

	return eris.Wrap(file.Write(w), "export: write xlsx")
}
