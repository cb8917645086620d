package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reson-group/lead-radar/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testLead(key, company string) *model.Lead {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &model.Lead{
		IdentityKey: key,
		Company:     company,
		Website:     "https://" + company + ".example.com",
		Country:     "DK",
		Segment:     model.SegmentIntegrator,
		Emails:      []string{"sales@" + company + ".example.com"},
		Tags:        []string{"EtherCAT", "UR"},
		Sources:     []string{"ethercat"},
		SourceURLs:  []string{"https://www.ethercat.org/en/members.html"},
		FirstSeenAt: now,
		LastSeenAt:  now,
		Score:       75,
		Band:        model.BandHot,
	}
}

// --- Leads ---

func TestSQLite_UpsertLead_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	lead := testLead("d:abc123", "acme-robotics")
	require.NoError(t, st.UpsertLead(ctx, lead))
	assert.Equal(t, int64(1), lead.Version)

	got, err := st.GetLead(ctx, "d:abc123")
	require.NoError(t, err)
	assert.Equal(t, lead.Company, got.Company)
	assert.Equal(t, lead.Country, got.Country)
	assert.Equal(t, model.SegmentIntegrator, got.Segment)
	assert.Equal(t, lead.Emails, got.Emails)
	assert.Equal(t, lead.Tags, got.Tags)
	assert.Equal(t, model.BandHot, got.Band)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.FirstSeenAt.Equal(lead.FirstSeenAt))
	assert.True(t, got.LastSeenAt.Equal(lead.LastSeenAt))
}

func TestSQLite_GetLead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLead(context.Background(), "d:nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpsertLead_InsertRace(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := testLead("d:race", "acme")
	require.NoError(t, st.UpsertLead(ctx, first))

	// A second writer that never saw the row loses the insert race.
	second := testLead("d:race", "acme")
	require.ErrorIs(t, st.UpsertLead(ctx, second), ErrVersionConflict)
	assert.Equal(t, int64(0), second.Version)
}

func TestSQLite_UpsertLead_StaleVersion(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	lead := testLead("d:stale", "acme")
	require.NoError(t, st.UpsertLead(ctx, lead))

	stale := *lead
	lead.Tags = append(lead.Tags, "PROFINET")
	require.NoError(t, st.UpsertLead(ctx, lead))
	assert.Equal(t, int64(2), lead.Version)

	stale.Score = 99
	require.ErrorIs(t, st.UpsertLead(ctx, &stale), ErrVersionConflict)

	// The winning write is intact.
	got, err := st.GetLead(ctx, "d:stale")
	require.NoError(t, err)
	assert.Contains(t, got.Tags, "PROFINET")
	assert.Equal(t, 75, got.Score)
	assert.Equal(t, int64(2), got.Version)
}

func TestSQLite_ListLeads_FiltersAndOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	hot := testLead("d:hot", "hot-co")
	hot.Score = 90
	hot.Band = model.BandHot
	warm := testLead("d:warm", "warm-co")
	warm.Score = 50
	warm.Band = model.BandWarm
	warm.Country = "DE"
	warm.Tags = []string{"PROFINET"}
	cold := testLead("d:cold", "cold-co")
	cold.Score = 10
	cold.Band = model.BandCold
	cold.Tags = nil

	for _, l := range []*model.Lead{warm, cold, hot} {
		require.NoError(t, st.UpsertLead(ctx, l))
	}

	all, err := st.ListLeads(ctx, model.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "hot-co", all[0].Company)
	assert.Equal(t, "cold-co", all[2].Company)

	hots, err := st.ListLeads(ctx, model.LeadFilter{Band: model.BandHot})
	require.NoError(t, err)
	require.Len(t, hots, 1)
	assert.Equal(t, "hot-co", hots[0].Company)

	de, err := st.ListLeads(ctx, model.LeadFilter{Country: "DE"})
	require.NoError(t, err)
	require.Len(t, de, 1)
	assert.Equal(t, "warm-co", de[0].Company)

	tagged, err := st.ListLeads(ctx, model.LeadFilter{Tag: "EtherCAT"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "hot-co", tagged[0].Company)

	scored, err := st.ListLeads(ctx, model.LeadFilter{MinScore: 45})
	require.NoError(t, err)
	assert.Len(t, scored, 2)

	count, err := st.CountLeads(ctx, model.LeadFilter{MinScore: 45})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLite_ListLeads_LimitOffset(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, name := range []string{"a-co", "b-co", "c-co"} {
		l := testLead("d:page"+name, name)
		l.Score = 90 - i*10
		require.NoError(t, st.UpsertLead(ctx, l))
	}

	page, err := st.ListLeads(ctx, model.LeadFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b-co", page[0].Company)
	assert.Equal(t, "c-co", page[1].Company)
}

// --- Jobs ---

func TestSQLite_SaveJob_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	finished := created.Add(time.Minute)

	job := &model.ScanJob{
		JobID: "job-1",
		Params: model.ScanParams{
			Sources:      []string{"ethercat", "ur"},
			Countries:    []string{"DK", "DE"},
			MaxPerSource: 50,
		},
		State:     model.JobPending,
		CreatedAt: created,
	}
	require.NoError(t, st.SaveJob(ctx, job))

	job.State = model.JobDone
	job.StartedAt = &started
	job.FinishedAt = &finished
	job.PerSource = map[string]model.SourceResult{
		"ethercat": {Fetched: 40, Merged: 35, Dropped: 5},
		"ur":       {Error: "all pages failed"},
	}
	require.NoError(t, st.SaveJob(ctx, job))

	got, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobDone, got.State)
	assert.Equal(t, []string{"ethercat", "ur"}, got.Params.Sources)
	assert.Equal(t, 50, got.Params.MaxPerSource)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
	assert.Equal(t, 35, got.PerSource["ethercat"].Merged)
	assert.Equal(t, "all pages failed", got.PerSource["ur"].Error)
}

func TestSQLite_GetJob_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListJobs_StateFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for i, state := range []model.JobState{model.JobDone, model.JobFailed, model.JobDone} {
		job := &model.ScanJob{
			JobID:     "job-" + string(rune('a'+i)),
			Params:    model.ScanParams{Sources: []string{"ALL"}},
			State:     state,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, st.SaveJob(ctx, job))
	}

	done, err := st.ListJobs(ctx, JobFilter{State: model.JobDone})
	require.NoError(t, err)
	require.Len(t, done, 2)
	// Newest first.
	assert.Equal(t, "job-c", done[0].JobID)

	all, err := st.ListJobs(ctx, JobFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
