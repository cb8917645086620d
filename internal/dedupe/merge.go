package dedupe

import (
	"strings"
	"time"

	"github.com/reson-group/lead-radar/internal/model"
	"github.com/reson-group/lead-radar/internal/normalize"
)

// Merge folds a normalized record into an existing lead, or creates a new
// lead when existing is nil. The returned lead satisfies the monotonic-union
// invariant: tags, emails, phones, and source URLs never shrink, and scalar
// identity fields keep their existing value when already set. Merge is
// commutative and associative on all set-valued fields.
//
// Records sharing a key are merged even when they plausibly describe
// different companies behind one generic domain; that over-merge risk is
// accepted rather than special-cased.
func Merge(existing *model.Lead, rec *normalize.Record, seenAt time.Time) *model.Lead {
	key := Key(rec)

	if existing == nil {
		lead := &model.Lead{
			IdentityKey: key,
			Company:     rec.Company,
			ContactName: rec.ContactName,
			Website:     rec.Website,
			Country:     rec.Country,
			Segment:     rec.Segment,
			FirstSeenAt: seenAt,
			LastSeenAt:  seenAt,
		}
		lead.Emails = appendUniqueEmails(nil, rec.Emails)
		lead.Phones = appendUniquePhones(nil, rec.Phones)
		lead.Tags = appendUnique(nil, rec.Tags)
		if rec.SourceURL != "" {
			lead.SourceURLs = []string{rec.SourceURL}
		}
		if rec.Source != "" {
			lead.Sources = []string{rec.Source}
		}
		return lead
	}

	// IdentityKey is immutable; the caller routes records here by key, so a
	// mismatch would be a routing bug, not data to absorb.
	lead := existing

	lead.Company = fillGap(lead.Company, rec.Company)
	lead.ContactName = fillGap(lead.ContactName, rec.ContactName)
	lead.Website = fillGap(lead.Website, rec.Website)
	lead.Country = fillGap(lead.Country, rec.Country)
	if lead.Segment == "" {
		lead.Segment = rec.Segment
	}

	lead.Emails = appendUniqueEmails(lead.Emails, rec.Emails)
	lead.Phones = appendUniquePhones(lead.Phones, rec.Phones)
	lead.Tags = appendUnique(lead.Tags, rec.Tags)
	if rec.SourceURL != "" {
		lead.SourceURLs = appendUnique(lead.SourceURLs, []string{rec.SourceURL})
	}
	if rec.Source != "" {
		lead.Sources = appendUnique(lead.Sources, []string{rec.Source})
	}

	if seenAt.Before(lead.FirstSeenAt) {
		lead.FirstSeenAt = seenAt
	}
	if seenAt.After(lead.LastSeenAt) {
		lead.LastSeenAt = seenAt
	}
	return lead
}

// fillGap keeps the existing value when non-empty; incoming only fills
// gaps. Existing data may already be curated, so it wins on conflict.
func fillGap(existing, incoming string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return incoming
}

func appendUnique(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	for _, s := range incoming {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		existing = append(existing, s)
	}
	return existing
}

func appendUniqueEmails(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[strings.ToLower(e)] = struct{}{}
	}
	for _, e := range incoming {
		k := strings.ToLower(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		existing = append(existing, e)
	}
	return existing
}

func appendUniquePhones(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seen[digits(p)] = struct{}{}
	}
	for _, p := range incoming {
		k := digits(p)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		existing = append(existing, p)
	}
	return existing
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
