// Package enrich augments merged leads with signals harvested from their
// own websites. Enrichment is a pluggable capability: the pipeline only
// depends on the Enricher contract.
package enrich

import (
	"context"

	"github.com/reson-group/lead-radar/internal/model"
)

// Enricher augments a lead in place. Implementations must keep the
// monotonic-union invariant: never remove tags, emails, phones, or source
// URLs, and never overwrite non-empty scalar fields.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, lead *model.Lead) error
}

// Noop is the disabled enricher.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Enrich(context.Context, *model.Lead) error { return nil }
