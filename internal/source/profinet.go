package source

import (
	"context"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// PROFINETAdapter scans the PROFIBUS & PROFINET International member list
// and competence centers.
type PROFINETAdapter struct {
	scraper directoryScraper
}

// NewPROFINET builds the PI member list adapter.
func NewPROFINET(client *fetch.Client) *PROFINETAdapter {
	return &PROFINETAdapter{scraper: directoryScraper{
		client:       client,
		source:       "profinet",
		baseHost:     "profibus.com",
		cardSelector: ".member, .partner, .card, li, tr, article",
		nameSelector: "h3, h4, .title, .name, a, strong",
	}}
}

func (a *PROFINETAdapter) Name() string { return "profinet" }

func (a *PROFINETAdapter) Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error) {
	var pages []countryPage
	for _, country := range params.Countries {
		pages = append(pages,
			countryPage{url: withQuery("https://www.profibus.com/community/members", "country", country), country: country},
			countryPage{url: "https://www.profibus.com/technology/pi-competence-centers", country: country},
		)
	}
	return a.scraper.scrapePages(ctx, pages, params.MaxPerSource)
}
