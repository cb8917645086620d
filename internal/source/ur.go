package source

import (
	"context"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// URAdapter scans the Universal Robots distributor and UR+ partner
// directories; listings are mostly system integrators.
type URAdapter struct {
	scraper directoryScraper
}

// NewUR builds the Universal Robots adapter.
func NewUR(client *fetch.Client) *URAdapter {
	return &URAdapter{scraper: directoryScraper{
		client:       client,
		source:       "ur",
		baseHost:     "universal-robots.com",
		cardSelector: ".partner, .distributor, .card, li, article",
		nameSelector: "h3, h4, .title, .name, a",
	}}
}

func (a *URAdapter) Name() string { return "ur" }

func (a *URAdapter) Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error) {
	bases := []string{
		"https://www.universal-robots.com/find-a-distributor/",
		"https://www.universal-robots.com/ur-plus/all/",
	}
	var pages []countryPage
	for _, country := range params.Countries {
		for _, base := range bases {
			pages = append(pages, countryPage{url: withQuery(base, "country", country), country: country})
		}
	}
	return a.scraper.scrapePages(ctx, pages, params.MaxPerSource)
}
