package model

import "time"

// Segment classifies what kind of company a lead is.
type Segment string

const (
	SegmentOEM         Segment = "OEM"
	SegmentIntegrator  Segment = "SI"
	SegmentDistributor Segment = "Distributor"
	SegmentRnD         Segment = "R&D"
	SegmentUniversity  Segment = "University"
	SegmentOther       Segment = "Other"
)

// PriorityBand buckets leads by score for outreach triage.
type PriorityBand string

const (
	BandHot  PriorityBand = "HOT"
	BandWarm PriorityBand = "WARM"
	BandCold PriorityBand = "COLD"
)

// Contact is a person harvested during enrichment.
type Contact struct {
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	PageURL  string `json:"page_url,omitempty"`
}

// Lead is a deduplicated company record accumulated across sources and runs.
//
// Set-valued fields (Tags, SourceURLs, Emails, Phones) only ever grow; scalar
// identity fields are gap-filled, never overwritten. Score and PriorityBand
// are derived from the current tags/attributes and recomputed on every
// scoring pass.
type Lead struct {
	IdentityKey string `json:"identity_key"`

	Company     string  `json:"company"`
	ContactName string  `json:"contact_name,omitempty"`
	Website     string  `json:"website,omitempty"`
	Country     string  `json:"country,omitempty"`
	Region      string  `json:"region,omitempty"`
	Segment     Segment `json:"segment,omitempty"`

	// Emails and Phones keep first-seen order across merges.
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`

	Tags       []string  `json:"tags,omitempty"`
	SourceURLs []string  `json:"source_urls,omitempty"`
	Sources    []string  `json:"sources,omitempty"`
	Contacts   []Contact `json:"contacts,omitempty"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`

	Score      int          `json:"score"`
	Band       PriorityBand `json:"priority_band,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	Reason     string       `json:"reason,omitempty"`

	// Version supports optimistic read-merge-write across concurrent jobs.
	// Zero means the lead has never been persisted.
	Version int64 `json:"-"`
}

// Contactable reports whether the lead has at least one direct channel.
func (l *Lead) Contactable() bool {
	return len(l.Emails) > 0 || len(l.Phones) > 0
}

// HasTag reports whether the lead carries the given canonical tag.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LeadFilter narrows ListLeads results.
type LeadFilter struct {
	Band     PriorityBand `json:"band,omitempty"`
	Country  string       `json:"country,omitempty"`
	Tag      string       `json:"tag,omitempty"`
	MinScore int          `json:"min_score,omitempty"`
	Limit    int          `json:"limit,omitempty"`
	Offset   int          `json:"offset,omitempty"`
}
