package source

import (
	"context"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// SiemensAdapter scans the Siemens partner finder. Listed partners are
// integrators in the PROFINET/TIA ecosystem.
type SiemensAdapter struct {
	scraper directoryScraper
}

// NewSiemens builds the Siemens partner finder adapter.
func NewSiemens(client *fetch.Client) *SiemensAdapter {
	return &SiemensAdapter{scraper: directoryScraper{
		client:       client,
		source:       "siemens",
		baseHost:     "siemens.com",
		cardSelector: ".partner, .card, li, tr, article",
		nameSelector: "h3, h4, .title, .name, a",
	}}
}

func (a *SiemensAdapter) Name() string { return "siemens" }

func (a *SiemensAdapter) Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error) {
	var pages []countryPage
	for _, country := range params.Countries {
		pages = append(pages, countryPage{
			url:     withQuery("https://partnerfinder.siemens.com/", "country", country),
			country: country,
		})
	}
	return a.scraper.scrapePages(ctx, pages, params.MaxPerSource)
}
