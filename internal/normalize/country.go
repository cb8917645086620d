package normalize

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/reson-group/lead-radar/internal/model"
)

// countryNames maps common English country names to ISO-2 codes. Directory
// pages mix codes and names freely; this covers the markets the sources span.
var countryNames = map[string]string{
	"germany": "DE", "austria": "AT", "switzerland": "CH", "denmark": "DK",
	"sweden": "SE", "norway": "NO", "finland": "FI", "iceland": "IS",
	"netherlands": "NL", "belgium": "BE", "luxembourg": "LU", "france": "FR",
	"italy": "IT", "spain": "ES", "portugal": "PT", "poland": "PL",
	"czech republic": "CZ", "czechia": "CZ", "slovakia": "SK", "hungary": "HU",
	"romania": "RO", "bulgaria": "BG", "slovenia": "SI", "croatia": "HR",
	"lithuania": "LT", "latvia": "LV", "estonia": "EE", "ireland": "IE",
	"greece": "GR", "united kingdom": "GB", "great britain": "GB",
	"united states": "US", "usa": "US", "japan": "JP", "china": "CN",
	"south korea": "KR", "korea": "KR", "taiwan": "TW", "india": "IN",
	"canada": "CA", "brazil": "BR", "mexico": "MX", "turkey": "TR",
	"australia": "AU",
}

// genericTLDs are never country evidence.
var genericTLDs = map[string]struct{}{
	"com": {}, "org": {}, "net": {}, "eu": {}, "io": {}, "ai": {}, "co": {},
	"info": {}, "biz": {}, "dev": {},
}

// InferCountry resolves the record's country to an ISO-style code where
// possible. Resolution order: explicit field, locale hint in metadata,
// country-code TLD of the website or an email domain. An unresolvable
// explicit value is kept raw rather than discarded.
func InferCountry(raw model.RawRecord, emails []string) string {
	if c := strings.TrimSpace(raw.Country); c != "" {
		if len(c) == 2 {
			return strings.ToUpper(c)
		}
		if iso, ok := countryNames[strings.ToLower(c)]; ok {
			return iso
		}
		return c
	}

	for _, key := range []string{"locale", "lang", "language"} {
		if hint := raw.Meta[key]; hint != "" {
			if iso := regionFromLocale(hint); iso != "" {
				return iso
			}
		}
	}

	if iso := countryFromTLD(hostOf(raw.Website)); iso != "" {
		return iso
	}
	for _, email := range emails {
		if _, domain, ok := strings.Cut(email, "@"); ok {
			if iso := countryFromTLD(domain); iso != "" {
				return iso
			}
		}
	}
	return ""
}

// regionFromLocale parses a BCP 47 tag ("de-DE", "sv_SE") and returns its
// region when the tag carries one explicitly.
func regionFromLocale(hint string) string {
	hint = strings.ReplaceAll(strings.TrimSpace(hint), "_", "-")
	tag, err := language.Parse(hint)
	if err != nil {
		return ""
	}
	region, conf := tag.Region()
	if conf < language.High || !region.IsCountry() {
		return ""
	}
	return region.String()
}

func countryFromTLD(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	idx := strings.LastIndex(host, ".")
	if idx < 0 {
		return ""
	}
	tld := host[idx+1:]
	if len(tld) != 2 {
		return ""
	}
	if _, generic := genericTLDs[tld]; generic {
		return ""
	}
	if tld == "uk" {
		return "GB"
	}
	return strings.ToUpper(tld)
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
