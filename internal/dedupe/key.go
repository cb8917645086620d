// Package dedupe derives stable identity keys for leads and merges records
// sharing a key across sources and runs. Merging is a monotonic union: set
// fields only grow, scalar fields gap-fill with existing values winning.
package dedupe

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/reson-group/lead-radar/internal/normalize"
)

// legalSuffixRe strips trailing corporate forms so "ACME GmbH" and
// "Acme gmbh & co. kg" key identically.
var legalSuffixRe = regexp.MustCompile(`(?i)[\s,]+(gmbh(\s*&\s*co\.?\s*kg)?|ag|kg|ug|e\.?v\.?|s\.?r\.?l\.?|s\.?p\.?a\.?|s\.?r\.?o\.?|sp\.?\s*z\s*o\.?o\.?|d\.?o\.?o\.?|b\.?v\.?|n\.?v\.?|s\.?a\.?s?|a/s|aps|oy(j)?|ab|as|kft|ltd\.?|limited|llc|inc\.?|corp\.?|co\.?)\.?\s*$`)

// Key derives the identity key for a normalized record. A domain extracted
// from the website or an email is the stronger signal and is preferred over
// the company name; both variants are combined with the normalized country.
func Key(rec *normalize.Record) string {
	country := strings.ToUpper(strings.TrimSpace(rec.Country))

	if domain := primaryDomain(rec); domain != "" {
		return hashKey("d", domain, country)
	}

	name := NormalizeCompany(rec.Company)
	if name == "" {
		return FallbackKey(rec.Company, country)
	}
	return hashKey("n", name, country)
}

// FallbackKey builds a key from raw company text when no stable key can be
// derived. Records are retained under it rather than discarded.
func FallbackKey(rawName, country string) string {
	raw := strings.ToLower(strings.TrimSpace(rawName))
	if raw == "" {
		raw = "unknown"
	}
	return hashKey("f", raw, strings.ToUpper(strings.TrimSpace(country)))
}

// NormalizeCompany casefolds, strips legal suffixes, and collapses
// whitespace. Used for both keying and display-name comparison.
func NormalizeCompany(name string) string {
	name = normalize.CleanText(name)
	name = legalSuffixRe.ReplaceAllString(name, "")
	name = strings.ToLower(normalize.CleanText(name))
	return name
}

// primaryDomain extracts a registrable-looking host from the record's
// website or, failing that, from the first email address.
func primaryDomain(rec *normalize.Record) string {
	if d := domainOf(rec.Website); d != "" {
		return d
	}
	for _, email := range rec.Emails {
		if _, d, ok := strings.Cut(email, "@"); ok {
			return strings.ToLower(d)
		}
	}
	return ""
}

func domainOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Host
	if host == "" {
		host = u.Path
	}
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}

func hashKey(kind, value, country string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s", kind, value, country)))
	return hex.EncodeToString(sum[:])[:16]
}
