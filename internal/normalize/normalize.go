// Package normalize maps adapter-shaped raw records into the canonical lead
// shape: field cleaning, email/phone extraction, country inference, and tag
// detection against the configured vocabulary.
package normalize

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/model"
)

// ErrMalformed marks a raw record that cannot yield a usable lead. Callers
// drop the record and count it; the batch continues.
var ErrMalformed = eris.New("normalize: malformed record")

// Record is a normalized raw record, canonical in shape but not yet
// identity-keyed.
type Record struct {
	Company     string
	ContactName string
	Website     string
	Country     string
	Segment     model.Segment
	Emails      []string
	Phones      []string
	Tags        []string
	Source      string
	SourceURL   string
}

// sourceSeed is what membership in a source directory implies by itself.
type sourceSeed struct {
	tags    []string
	segment model.Segment
}

var sourceSeeds = map[string]sourceSeed{
	"ethercat": {tags: []string{"EtherCAT"}, segment: model.SegmentOEM},
	"beckhoff": {tags: []string{"EtherCAT", "TwinCAT"}, segment: model.SegmentOEM},
	"siemens":  {tags: []string{"PROFINET", "TIA"}, segment: model.SegmentIntegrator},
	"profinet": {tags: []string{"PROFINET"}, segment: model.SegmentOEM},
	"odva":     {tags: []string{"EtherNet_IP"}, segment: model.SegmentOEM},
	"ur":       {tags: []string{"UR"}, segment: model.SegmentIntegrator},
	"ros2":     {tags: []string{"ROS2"}, segment: model.SegmentRnD},
}

// Normalizer holds the tag vocabulary and extraction machinery. Construct
// once per pipeline; safe for concurrent use.
type Normalizer struct {
	tags *TagMatcher
}

// New builds a Normalizer from the configured tag vocabulary.
func New(cfg config.TagsConfig) *Normalizer {
	return &Normalizer{tags: NewTagMatcher(cfg)}
}

// Normalize coerces a raw record into the canonical shape. It returns
// ErrMalformed when no usable company name survives cleaning.
func (n *Normalizer) Normalize(raw model.RawRecord) (*Record, error) {
	name := CleanText(raw.Name)
	if name == "" || len([]rune(name)) < 2 {
		return nil, eris.Wrapf(ErrMalformed, "source %s", raw.Source)
	}

	rec := &Record{
		Company:   name,
		Website:   cleanWebsite(raw.Website),
		Source:    raw.Source,
		SourceURL: strings.TrimSpace(raw.SourceURL),
	}

	text := raw.FreeText
	rec.Emails = ExtractEmails(text)
	rec.Phones = ExtractPhones(text)
	rec.Country = InferCountry(raw, rec.Emails)
	rec.Tags = n.tags.Match(text)

	if seed, ok := sourceSeeds[strings.ToLower(raw.Source)]; ok {
		rec.Tags = unionStrings(rec.Tags, seed.tags)
		rec.Segment = seed.segment
	}
	if seg := raw.Meta["segment"]; seg != "" {
		rec.Segment = model.Segment(seg)
	}
	if contact := CleanText(raw.Meta["contact_name"]); contact != "" {
		rec.ContactName = contact
	}

	return rec, nil
}

// CleanText collapses whitespace (including NBSP) and trims.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func cleanWebsite(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	return strings.TrimRight(s, "/")
}

func unionStrings(existing, incoming []string) []string {
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
