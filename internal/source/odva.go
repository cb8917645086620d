package source

import (
	"context"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// ODVAAdapter scans the ODVA member roster for the EtherNet/IP ecosystem.
// The roster is not country-filterable, so every country sees the same page
// and the normalizer sorts membership out by website domain.
type ODVAAdapter struct {
	scraper directoryScraper
}

// NewODVA builds the ODVA member adapter.
func NewODVA(client *fetch.Client) *ODVAAdapter {
	return &ODVAAdapter{scraper: directoryScraper{
		client:       client,
		source:       "odva",
		baseHost:     "odva.org",
		cardSelector: ".member, .card, li, tr, article",
		nameSelector: "h3, h4, .title, .name, a, strong",
	}}
}

func (a *ODVAAdapter) Name() string { return "odva" }

func (a *ODVAAdapter) Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error) {
	pages := []countryPage{{url: "https://www.odva.org/subscriptions-services/member-directory/"}}
	return a.scraper.scrapePages(ctx, pages, params.MaxPerSource)
}
