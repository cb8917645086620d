// Package score turns a lead's accumulated tags and attributes into a
// numeric score and priority band. Scoring is a pure function of the lead:
// deterministic, idempotent, and recomputable at any time.
package score

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/model"
)

// sourceStrength rates how strong a listing signal each source family is.
// Protocol consortium rosters are curated; marketplace listings less so.
var sourceStrength = map[string]float64{
	"ethercat": 0.90,
	"siemens":  0.90,
	"beckhoff": 0.90,
	"profinet": 0.90,
	"odva":     0.85,
	"ur":       0.85,
	"ros2":     0.80,
}

const defaultSourceStrength = 0.75

// Scorer computes scores from a weight configuration. Construct once;
// safe for concurrent use.
type Scorer struct {
	cfg config.ScoreConfig
}

// New builds a Scorer, falling back to built-in weights when the config
// carries none.
func New(cfg config.ScoreConfig) *Scorer {
	if cfg.TagWeights == nil {
		cfg.TagWeights = config.DefaultTagWeights()
	}
	if cfg.HotThreshold == 0 {
		cfg.HotThreshold = 70
	}
	if cfg.WarmThreshold == 0 {
		cfg.WarmThreshold = 45
	}
	return &Scorer{cfg: cfg}
}

// Score computes the numeric score and priority band for a lead without
// mutating it.
func (s *Scorer) Score(lead *model.Lead) (int, model.PriorityBand) {
	raw := s.cfg.BaseScore

	raw += int(math.Round(s.signal(lead) * float64(s.cfg.SignalWeight)))

	tagPoints, recognized := s.tagPoints(lead)
	raw += tagPoints

	if lead.Contactable() {
		raw += s.cfg.ContactBonus
	}

	// Without a single recognized tag the lead is generic no matter how
	// contactable it is.
	if !recognized && raw > s.cfg.GenericCeiling {
		raw = s.cfg.GenericCeiling
	}

	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}

	return raw, s.band(raw)
}

// Apply recomputes and stores score, band, confidence, and reason on the
// lead. Recomputing after a no-op merge leaves all of them unchanged.
func (s *Scorer) Apply(lead *model.Lead, now time.Time) {
	lead.Score, lead.Band = s.Score(lead)
	lead.Confidence = s.Confidence(lead, now)
	lead.Reason = s.reason(lead)
}

// Confidence combines the tag-weight sum with recency decay of LastSeenAt.
// It breaks ties between equal-score leads, descending.
func (s *Scorer) Confidence(lead *model.Lead, now time.Time) float64 {
	points, _ := s.tagPoints(lead)
	halfLife := s.cfg.RecencyHalfLifeDays
	if halfLife <= 0 {
		halfLife = 180
	}
	ageDays := now.Sub(lead.LastSeenAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	decay := math.Pow(0.5, ageDays/float64(halfLife))
	return math.Round(float64(points)*decay*100) / 100
}

func (s *Scorer) band(score int) model.PriorityBand {
	switch {
	case score >= s.cfg.HotThreshold:
		return model.BandHot
	case score >= s.cfg.WarmThreshold:
		return model.BandWarm
	default:
		return model.BandCold
	}
}

func (s *Scorer) signal(lead *model.Lead) float64 {
	var best float64
	for _, src := range lead.Sources {
		strength, ok := sourceStrength[strings.ToLower(src)]
		if !ok {
			strength = defaultSourceStrength
		}
		if strength > best {
			best = strength
		}
	}
	return best
}

func (s *Scorer) tagPoints(lead *model.Lead) (points int, recognized bool) {
	for _, tag := range lead.Tags {
		if w, ok := s.cfg.TagWeights[tag]; ok && w > 0 {
			points += w
			recognized = true
		}
	}
	return points, recognized
}

// reason summarizes which signals produced the score, for operators
// triaging the export.
func (s *Scorer) reason(lead *model.Lead) string {
	var parts []string

	var weighted []string
	for _, tag := range lead.Tags {
		if w, ok := s.cfg.TagWeights[tag]; ok && w > 0 {
			weighted = append(weighted, tag)
		}
	}
	if len(weighted) > 0 {
		parts = append(parts, "stack: "+strings.Join(weighted, ", "))
	}

	if len(lead.Sources) > 0 {
		srcs := append([]string(nil), lead.Sources...)
		sort.Strings(srcs)
		parts = append(parts, "listed on "+strings.Join(srcs, ", "))
	}
	if lead.Contactable() {
		parts = append(parts, "contactable")
	}
	if len(parts) == 0 {
		return "generic match"
	}
	return strings.Join(parts, "; ")
}
