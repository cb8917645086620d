package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/model"
)

func newTestEnricher(follow bool) *WebsiteEnricher {
	client := fetch.NewClient(config.FetchConfig{
		UserAgent:  "lead-radar-test/0.1",
		PerHostRPS: 1000,
		MaxRetries: 1,
	})
	e := NewWebsite(client, config.TagsConfig{Vocabulary: config.DefaultTagVocabulary()}, config.EnrichConfig{
		FollowContactPage: follow,
	})
	e.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEnrich_HarvestsSignals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h1>Turnkey EtherCAT and TwinCAT 3 retrofits</h1>
			<p>Write sales@acme.dk or call +45 12 34 56 78.</p>
		</body></html>`))
	}))
	defer srv.Close()

	lead := &model.Lead{Company: "Acme", Website: srv.URL, Tags: []string{"UR"}}
	require.NoError(t, newTestEnricher(false).Enrich(context.Background(), lead))

	assert.ElementsMatch(t, []string{"UR", "EtherCAT", "TwinCAT"}, lead.Tags)
	assert.Equal(t, []string{"sales@acme.dk"}, lead.Emails)
	require.Len(t, lead.Phones, 1)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), lead.LastSeenAt)
}

func TestEnrich_FollowsContactPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<p>PROFINET commissioning partner.</p>
			<a href="/kontakt">Kontakt</a>
		</body></html>`))
	})
	mux.HandleFunc("/kontakt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Mail office@acme.de</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	lead := &model.Lead{Company: "Acme", Website: srv.URL}
	require.NoError(t, newTestEnricher(true).Enrich(context.Background(), lead))

	assert.Contains(t, lead.Tags, "PROFINET")
	assert.Equal(t, []string{"office@acme.de"}, lead.Emails)
	assert.Contains(t, lead.SourceURLs, srv.URL+"/kontakt")
	require.Len(t, lead.Contacts, 1)
	assert.Equal(t, model.Contact{Email: "office@acme.de", PageURL: srv.URL + "/kontakt"}, lead.Contacts[0])
}

func TestEnrich_ContactPageFailureIsSoft(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<p>EtherCAT systems, ask info@acme.se.</p>
			<a href="/contact">Contact</a>
		</body></html>`))
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	lead := &model.Lead{Company: "Acme", Website: srv.URL}
	require.NoError(t, newTestEnricher(true).Enrich(context.Background(), lead))

	assert.Contains(t, lead.Tags, "EtherCAT")
	assert.Equal(t, []string{"info@acme.se"}, lead.Emails)
	assert.NotContains(t, lead.SourceURLs, srv.URL+"/contact")
}

func TestEnrich_NeverRemoves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>nothing relevant here</body></html>`))
	}))
	defer srv.Close()

	lead := &model.Lead{
		Company: "Acme",
		Website: srv.URL,
		Tags:    []string{"EtherCAT"},
		Emails:  []string{"sales@acme.dk"},
		Phones:  []string{"+45 12 34 56 78"},
	}
	require.NoError(t, newTestEnricher(false).Enrich(context.Background(), lead))

	assert.Equal(t, []string{"EtherCAT"}, lead.Tags)
	assert.Equal(t, []string{"sales@acme.dk"}, lead.Emails)
	assert.Equal(t, []string{"+45 12 34 56 78"}, lead.Phones)
}

func TestEnrich_DedupesAgainstExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Contact SALES@acme.dk or +45 1234 5678.</body></html>`))
	}))
	defer srv.Close()

	lead := &model.Lead{
		Company: "Acme",
		Website: srv.URL,
		Emails:  []string{"sales@acme.dk"},
		Phones:  []string{"+45 12 34 56 78"},
	}
	require.NoError(t, newTestEnricher(false).Enrich(context.Background(), lead))

	assert.Equal(t, []string{"sales@acme.dk"}, lead.Emails, "case-variant email must not duplicate")
	assert.Equal(t, []string{"+45 12 34 56 78"}, lead.Phones, "same digits must not duplicate")
}

func TestEnrich_NoURLIsNoop(t *testing.T) {
	lead := &model.Lead{Company: "Acme"}
	require.NoError(t, newTestEnricher(true).Enrich(context.Background(), lead))
	assert.True(t, lead.LastSeenAt.IsZero())
}

func TestEnrich_FallsBackToSourceURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>ROS 2 driver maintained here.</body></html>`))
	}))
	defer srv.Close()

	lead := &model.Lead{Company: "Acme", SourceURLs: []string{srv.URL + "/detail"}}
	require.NoError(t, newTestEnricher(false).Enrich(context.Background(), lead))
	assert.Contains(t, lead.Tags, "ROS2")
}

func TestEnrich_UnreachableSite(t *testing.T) {
	lead := &model.Lead{Company: "Acme", Website: "http://127.0.0.1:1/"}
	err := newTestEnricher(false).Enrich(context.Background(), lead)
	require.Error(t, err)
	assert.True(t, lead.LastSeenAt.IsZero(), "a failed fetch must not refresh recency")
}

func TestNoop(t *testing.T) {
	lead := &model.Lead{Company: "Acme"}
	require.NoError(t, Noop{}.Enrich(context.Background(), lead))
	assert.Equal(t, "noop", Noop{}.Name())
}
