package config

import (
	"sort"
	"strings"
)

// Macro region tokens accepted anywhere a country list is taken.
var (
	euCountries = []string{
		"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR",
		"HU", "IE", "IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK",
		"SI", "ES", "SE",
	}
	eeaExtra = []string{"NO", "IS", "LI"}
	ukCH     = []string{"UK", "GB", "CH"}
)

var regionExpansions = map[string][]string{
	"EU":          euCountries,
	"EEA":         append(append([]string{}, euCountries...), eeaExtra...),
	"EU_EEA_PLUS": append(append(append([]string{}, euCountries...), eeaExtra...), ukCH...),
	"DACH":        {"DE", "AT", "CH"},
	"NORDICS":     {"DK", "SE", "NO", "FI", "IS"},
	"BENELUX":     {"BE", "NL", "LU"},
	"IBERIA":      {"ES", "PT"},
	"CEE":         {"PL", "CZ", "SK", "HU", "RO", "BG", "SI", "HR", "LT", "LV", "EE"},
}

// ExpandCountries resolves macro region tokens into ISO-2 country codes and
// returns a sorted, deduplicated list. Unknown tokens pass through uppercased
// so a plain country code is always accepted.
func ExpandCountries(tokens []string) []string {
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		cu := strings.ToUpper(strings.TrimSpace(tok))
		if cu == "" {
			continue
		}
		if expanded, ok := regionExpansions[cu]; ok {
			for _, c := range expanded {
				seen[c] = struct{}{}
			}
			continue
		}
		seen[cu] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
