package source

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// directoryScraper is the shared scraping core behind the HTML-backed
// adapters. Each adapter contributes its page URLs, card selector, and host
// to exclude when hunting for the member's own website link.
type directoryScraper struct {
	client       *fetch.Client
	source       string
	baseHost     string
	cardSelector string
	nameSelector string
}

// scrapePages walks the given directory pages and extracts one raw record
// per member card, deduplicated by (name, country) within this fetch. It
// stops at the cap and checks ctx between pages. Per-page failures are
// logged and skipped; the last one is returned only when no page succeeded.
func (d *directoryScraper) scrapePages(ctx context.Context, pages []countryPage, limit int) ([]model.RawRecord, error) {
	log := zap.L().With(zap.String("source", d.source))
	if limit <= 0 {
		limit = 2000
	}

	var records []model.RawRecord
	seen := make(map[[2]string]struct{})
	var lastErr error
	succeeded := false

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		body, err := d.client.Get(ctx, page.url)
		if err != nil {
			log.Debug("page fetch failed", zap.String("url", page.url), zap.Error(err))
			lastErr = err
			continue
		}
		succeeded = true

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			log.Debug("page parse failed", zap.String("url", page.url), zap.Error(err))
			lastErr = err
			continue
		}

		doc.Find(d.cardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
			rec, ok := d.recordFromCard(card, page)
			if !ok {
				return true
			}
			key := [2]string{rec.Name, rec.Country}
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}
			records = append(records, rec)
			return len(records) < limit
		})
		if len(records) >= limit {
			break
		}
	}

	if !succeeded && lastErr != nil {
		return nil, eris.Wrapf(lastErr, "source %s: all pages failed", d.source)
	}
	return records, nil
}

func (d *directoryScraper) recordFromCard(card *goquery.Selection, page countryPage) (model.RawRecord, bool) {
	name := strings.TrimSpace(card.Find(d.nameSelector).First().Text())
	if name == "" || len([]rune(name)) < 2 {
		return model.RawRecord{}, false
	}

	rec := model.RawRecord{
		Name:      name,
		Country:   page.country,
		Source:    d.source,
		SourceURL: page.url,
		FreeText:  strings.TrimSpace(card.Text()),
	}

	// The member's own site is the first external link on the card.
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return true
		}
		if u, err := url.Parse(href); err == nil && !strings.Contains(u.Host, d.baseHost) {
			rec.Website = href
			return false
		}
		return true
	})

	// A detail link on the directory itself beats the listing page as
	// provenance.
	if detail, ok := card.Find("a[href*='member'], a[href*='partner'], a[href*='detail']").First().Attr("href"); ok {
		if abs := resolveRef(page.url, detail); abs != "" {
			rec.SourceURL = abs
		}
	}
	return rec, true
}

// countryPage pairs a directory page URL with the country it was queried for.
type countryPage struct {
	url     string
	country string
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

func withQuery(rawURL string, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
