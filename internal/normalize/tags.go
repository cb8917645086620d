package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/reson-group/lead-radar/internal/config"
)

var (
	fieldbusRe = regexp.MustCompile(`(?i)\bindustrial\s+(ethernet|networks?)\b|\breal[-\s]?time\s+ethernet\b|\bfield\s*bus\b|\bfieldbus\b`)
	motionRe   = regexp.MustCompile(`(?i)\bmotion\s+control\b|\bPLC\b|\bIEC\s*61131\b|\bCODESYS\b|\bOPC\s*UA\b|\bTSN\b`)
)

// TagMatcher maps free text onto the canonical tag vocabulary. Matching is
// case-insensitive substring over configured synonyms; unmatched text
// contributes nothing — tags are never invented.
type TagMatcher struct {
	tags            []tagEntry
	fieldbusImplies []string
	motionImplies   []string
}

type tagEntry struct {
	canonical string
	synonyms  []string
	// short synonyms ("eip") match on word boundaries only; as bare
	// substrings they surface inside unrelated words.
	shortRes []*regexp.Regexp
}

// NewTagMatcher compiles the vocabulary for repeated matching. Canonical
// tags are ordered deterministically so extraction output is stable.
func NewTagMatcher(cfg config.TagsConfig) *TagMatcher {
	vocab := cfg.Vocabulary
	if vocab == nil {
		vocab = config.DefaultTagVocabulary()
	}
	names := make([]string, 0, len(vocab))
	for tag := range vocab {
		names = append(names, tag)
	}
	sort.Strings(names)

	m := &TagMatcher{
		fieldbusImplies: cfg.FieldbusImplies,
		motionImplies:   cfg.MotionImplies,
	}
	for _, tag := range names {
		// Only configured synonyms match; short canonical names like "UR"
		// would false-positive as bare substrings.
		entry := tagEntry{canonical: tag}
		for _, syn := range vocab[tag] {
			syn = strings.ToLower(syn)
			if len(syn) < 4 {
				entry.shortRes = append(entry.shortRes,
					regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(syn)+`\b`))
				continue
			}
			entry.synonyms = append(entry.synonyms, syn)
		}
		m.tags = append(m.tags, entry)
	}
	return m
}

// Match returns the canonical tags detected in text, each at most once.
func (m *TagMatcher) Match(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var out []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	for _, entry := range m.tags {
		matched := false
		for _, syn := range entry.synonyms {
			if strings.Contains(lower, syn) {
				matched = true
				break
			}
		}
		if !matched {
			for _, re := range entry.shortRes {
				if re.MatchString(text) {
					matched = true
					break
				}
			}
		}
		if matched {
			add(entry.canonical)
		}
	}

	// Generic fieldbus or motion/PLC phrasing implies the broader stacks
	// even when no product is named outright.
	if fieldbusRe.MatchString(text) {
		for _, tag := range m.fieldbusImplies {
			add(tag)
		}
	}
	if motionRe.MatchString(text) {
		for _, tag := range m.motionImplies {
			add(tag)
		}
	}
	return out
}
