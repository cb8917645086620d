package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)

	// emailObfRe recovers "name [at] example [dot] com" style obfuscation.
	emailObfRe = regexp.MustCompile(`(?i)([A-Z0-9._%+-]+)\s*(?:\[at\]|\(at\)|\sat\s)\s*([A-Z0-9.-]+)\s*(?:\[dot\]|\(dot\)|\sdot\s)\s*([A-Z]{2,})`)

	phoneRe = regexp.MustCompile(`\+\d{1,3}[\s.\-/]?(?:\(?\d{1,4}\)?[\s.\-/]?)?\d[\d\s.\-/]{5,16}\d`)
)

// ExtractEmails pulls every email address out of free text, including
// common textual obfuscations, deduplicated in first-seen order.
func ExtractEmails(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	add := func(email string) {
		email = strings.ToLower(strings.TrimRight(email, "."))
		if _, ok := seen[email]; ok {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}

	for _, m := range emailRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range emailObfRe.FindAllStringSubmatch(text, -1) {
		add(fmt.Sprintf("%s@%s.%s", m[1], m[2], m[3]))
	}
	return out
}

// ExtractPhones pulls international-format phone numbers out of free text,
// deduplicated by digit sequence in first-seen order. Only numbers with an
// explicit country prefix are accepted; bare digit runs produce too many
// false positives in address blocks.
func ExtractPhones(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, m := range phoneRe.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		key := digitsOnly(m)
		if len(key) < 7 || len(key) > 15 {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
