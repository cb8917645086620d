package source

import (
	"context"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

// ROS2Adapter scans the ROS-Industrial consortium member pages. Listings
// skew toward research groups and robotics integrators.
type ROS2Adapter struct {
	scraper directoryScraper
}

// NewROS2 builds the ROS-Industrial adapter.
func NewROS2(client *fetch.Client) *ROS2Adapter {
	return &ROS2Adapter{scraper: directoryScraper{
		client:       client,
		source:       "ros2",
		baseHost:     "rosindustrial.org",
		cardSelector: ".member, .card, li, article",
		nameSelector: "h3, h4, .title, .name, a",
	}}
}

func (a *ROS2Adapter) Name() string { return "ros2" }

func (a *ROS2Adapter) Fetch(ctx context.Context, params FetchParams) ([]model.RawRecord, error) {
	pages := []countryPage{
		{url: "https://rosindustrial.org/ric/current-members/"},
	}
	return a.scraper.scrapePages(ctx, pages, params.MaxPerSource)
}
