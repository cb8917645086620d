package enrich

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
	"github.com/reson-group/lead-radar/internal/normalize"
)

var contactLinkRe = regexp.MustCompile(`(?i)(contact|kontakt|contacts|impressum|contatti|contato|about)`)

// WebsiteEnricher fetches a lead's website (or its directory detail page)
// and harvests additional tags, emails, and phones. At most one extra hop
// is taken, to an obvious contact page.
type WebsiteEnricher struct {
	client        *fetch.Client
	tags          *normalize.TagMatcher
	followContact bool
	now           func() time.Time
}

// NewWebsite builds the website enricher.
func NewWebsite(client *fetch.Client, tagsCfg config.TagsConfig, enrichCfg config.EnrichConfig) *WebsiteEnricher {
	return &WebsiteEnricher{
		client:        client,
		tags:          normalize.NewTagMatcher(tagsCfg),
		followContact: enrichCfg.FollowContactPage,
		now:           time.Now,
	}
}

func (e *WebsiteEnricher) Name() string { return "website" }

// Enrich is best-effort: an unreachable site returns an error for counting,
// but any signals harvested before the failure stay on the lead.
func (e *WebsiteEnricher) Enrich(ctx context.Context, lead *model.Lead) error {
	pageURL := e.pickURL(lead)
	if pageURL == "" {
		return nil
	}

	body, err := e.client.Get(ctx, pageURL)
	if err != nil {
		return eris.Wrapf(err, "enrich: fetch %s", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return eris.Wrapf(err, "enrich: parse %s", pageURL)
	}

	e.absorb(lead, doc.Text())

	if e.followContact {
		if contactURL := findContactLink(doc, pageURL); contactURL != "" {
			if body, err := e.client.Get(ctx, contactURL); err == nil {
				lead.SourceURLs = union(lead.SourceURLs, contactURL)
				e.absorb(lead, string(body))
				e.absorbContacts(lead, string(body), contactURL)
			} else {
				zap.L().Debug("enrich: contact page fetch failed",
					zap.String("url", contactURL), zap.Error(err))
			}
		}
	}

	lead.LastSeenAt = e.now().UTC()
	return nil
}

// absorb merges tags and contact channels found in text into the lead.
func (e *WebsiteEnricher) absorb(lead *model.Lead, text string) {
	for _, tag := range e.tags.Match(text) {
		lead.Tags = union(lead.Tags, tag)
	}
	for _, email := range normalize.ExtractEmails(text) {
		if !containsFold(lead.Emails, email) {
			lead.Emails = append(lead.Emails, email)
		}
	}
	for _, phone := range normalize.ExtractPhones(text) {
		if !containsDigits(lead.Phones, phone) {
			lead.Phones = append(lead.Phones, phone)
		}
	}
}

// absorbContacts records people found on a contact page. Email is the only
// channel reliably extractable from free text; the page URL is kept as
// provenance.
func (e *WebsiteEnricher) absorbContacts(lead *model.Lead, text, pageURL string) {
	for _, email := range normalize.ExtractEmails(text) {
		if hasContactEmail(lead.Contacts, email) {
			continue
		}
		lead.Contacts = append(lead.Contacts, model.Contact{Email: email, PageURL: pageURL})
	}
}

func hasContactEmail(contacts []model.Contact, email string) bool {
	for _, c := range contacts {
		if strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

// pickURL prefers the company's own website over directory detail pages.
func (e *WebsiteEnricher) pickURL(lead *model.Lead) string {
	if lead.Website != "" {
		return lead.Website
	}
	if len(lead.SourceURLs) > 0 {
		return lead.SourceURLs[0]
	}
	return ""
}

func findContactLink(doc *goquery.Document, base string) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		label := strings.TrimSpace(a.Text())
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		if contactLinkRe.MatchString(href) || contactLinkRe.MatchString(label) {
			found = resolveRef(base, href)
			return false
		}
		return true
	})
	return found
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

func union(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func containsDigits(set []string, v string) bool {
	key := digitsOnly(v)
	for _, s := range set {
		if digitsOnly(s) == key {
			return true
		}
	}
	return false
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
