package source

import (
	"context"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// EtherCATAdapter scans the EtherCAT Technology Group member and product
// directories. ETG membership is a strong EtherCAT signal by itself.
type EtherCATAdapter struct {
	scraper directoryScraper
}

// NewEtherCAT builds the ETG adapter.
func NewEtherCAT(client *fetch.Client) *EtherCATAdapter {
	return &EtherCATAdapter{scraper: directoryScraper{
		client:       client,
		source:       "ethercat",
		baseHost:     "ethercat.org",
		cardSelector: "div.card, div.member, li, tr, article",
		nameSelector: "a, strong, h3, h4, .name",
	}}
}

func (a *EtherCATAdapter) Name() string { return "ethercat" }

func (a *EtherCATAdapter) Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error) {
	bases := []string{
		"https://www.ethercat.org/en/members/members.html",
		"https://www.ethercat.org/en/products/products.html",
	}
	var pages []countryPage
	for _, country := range params.Countries {
		for _, base := range bases {
			pages = append(pages, countryPage{url: withQuery(base, "country", country), country: country})
		}
	}
	return a.scraper.scrapePages(ctx, pages, params.MaxPerSource)
}
