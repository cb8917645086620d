package source

import (
	"context"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// BeckhoffAdapter scans Beckhoff partner and global presence pages;
// membership implies the EtherCAT/TwinCAT stack.
type BeckhoffAdapter struct {
	scraper directoryScraper
}

// NewBeckhoff builds the Beckhoff partner adapter.
func NewBeckhoff(client *fetch.Client) *BeckhoffAdapter {
	return &BeckhoffAdapter{scraper: directoryScraper{
		client:       client,
		source:       "beckhoff",
		baseHost:     "beckhoff.com",
		cardSelector: ".card, .partner, li, article, tr",
		nameSelector: "h3, h4, .title, .name, a, strong",
	}}
}

func (a *BeckhoffAdapter) Name() string { return "beckhoff" }

func (a *BeckhoffAdapter) Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error) {
	var pages []countryPage
	for _, country := range params.Countries {
		pages = append(pages,
			countryPage{url: withQuery("https://www.beckhoff.com/en-en/company/partners/", "country", country), country: country},
			countryPage{url: "https://www.beckhoff.com/en-en/contact/global-presence/", country: country},
		)
	}
	return a.scraper.scrapePages(ctx, pages, params.MaxPerSource)
}
