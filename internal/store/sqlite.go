package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reson-group/lead-radar/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	identity_key  TEXT PRIMARY KEY,
	company       TEXT NOT NULL,
	contact_name  TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	segment       TEXT NOT NULL DEFAULT '',
	emails        TEXT NOT NULL DEFAULT '[]',
	phones        TEXT NOT NULL DEFAULT '[]',
	tags          TEXT NOT NULL DEFAULT '[]',
	source_urls   TEXT NOT NULL DEFAULT '[]',
	sources       TEXT NOT NULL DEFAULT '[]',
	contacts      TEXT NOT NULL DEFAULT '[]',
	first_seen_at DATETIME NOT NULL,
	last_seen_at  DATETIME NOT NULL,
	score         INTEGER NOT NULL DEFAULT 0,
	band          TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	reason        TEXT NOT NULL DEFAULT '',
	version       INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS scan_jobs (
	job_id      TEXT PRIMARY KEY,
	params      TEXT NOT NULL,
	state       TEXT NOT NULL DEFAULT 'pending',
	per_source  TEXT,
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	started_at  DATETIME,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_leads_band ON leads(band);
CREATE INDEX IF NOT EXISTS idx_leads_country ON leads(country);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score DESC);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_state ON scan_jobs(state);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_created_at ON scan_jobs(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteLeadColumns = `identity_key, company, contact_name, website, country, region, segment,
	emails, phones, tags, source_urls, sources, contacts,
	first_seen_at, last_seen_at, score, band, confidence, reason, version`

func (s *SQLiteStore) GetLead(ctx context.Context, identityKey string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE identity_key = ?`,
		identityKey,
	)
	return scanLead(row)
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	cols, err := leadJSONColumns(lead)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}

	if lead.Version == 0 {
		// First write wins; a concurrent insert surfaces as a conflict so
		// the caller can re-read and merge.
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO leads (`+sqliteLeadColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
			 ON CONFLICT(identity_key) DO NOTHING`,
			lead.IdentityKey, lead.Company, lead.ContactName, lead.Website,
			lead.Country, lead.Region, string(lead.Segment),
			cols.emails, cols.phones, cols.tags, cols.sourceURLs, cols.sources, cols.contacts,
			lead.FirstSeenAt.UTC(), lead.LastSeenAt.UTC(),
			lead.Score, string(lead.Band), lead.Confidence, lead.Reason,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert lead %s", lead.IdentityKey)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return eris.Wrap(err, "sqlite: rows affected")
		}
		if n == 0 {
			return ErrVersionConflict
		}
		lead.Version = 1
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET
			company = ?, contact_name = ?, website = ?, country = ?, region = ?, segment = ?,
			emails = ?, phones = ?, tags = ?, source_urls = ?, sources = ?, contacts = ?,
			first_seen_at = ?, last_seen_at = ?, score = ?, band = ?, confidence = ?, reason = ?,
			version = version + 1
		 WHERE identity_key = ? AND version = ?`,
		lead.Company, lead.ContactName, lead.Website, lead.Country, lead.Region, string(lead.Segment),
		cols.emails, cols.phones, cols.tags, cols.sourceURLs, cols.sources, cols.contacts,
		lead.FirstSeenAt.UTC(), lead.LastSeenAt.UTC(),
		lead.Score, string(lead.Band), lead.Confidence, lead.Reason,
		lead.IdentityKey, lead.Version,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", lead.IdentityKey)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrVersionConflict
	}
	lead.Version++
	return nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + sqliteLeadColumns + ` FROM leads WHERE 1=1`
	query, args := sqliteLeadWhere(query, nil, filter)
	query += ` ORDER BY score DESC, company ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeads(ctx context.Context, filter model.LeadFilter) (int, error) {
	query, args := sqliteLeadWhere(`SELECT COUNT(*) FROM leads WHERE 1=1`, nil, filter)
	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count leads")
}

func sqliteLeadWhere(query string, args []any, filter model.LeadFilter) (string, []any) {
	if filter.Band != "" {
		query += ` AND band = ?`
		args = append(args, string(filter.Band))
	}
	if filter.Country != "" {
		query += ` AND country = ?`
		args = append(args, filter.Country)
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(leads.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	return query, args
}

func (s *SQLiteStore) SaveJob(ctx context.Context, job *model.ScanJob) error {
	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal params")
	}
	var perSourceJSON sql.NullString
	if job.PerSource != nil {
		b, err := json.Marshal(job.PerSource)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal per-source results")
		}
		perSourceJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_jobs (job_id, params, state, per_source, error, created_at, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
			state = excluded.state, per_source = excluded.per_source, error = excluded.error,
			started_at = excluded.started_at, finished_at = excluded.finished_at`,
		job.JobID, string(paramsJSON), string(job.State), perSourceJSON, job.Error,
		job.CreatedAt.UTC(), nullTime(job.StartedAt), nullTime(job.FinishedAt),
	)
	return eris.Wrapf(err, "sqlite: save job %s", job.JobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.ScanJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, params, state, per_source, error, created_at, started_at, finished_at
		 FROM scan_jobs WHERE job_id = ?`,
		jobID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.ScanJob, error) {
	query := `SELECT job_id, params, state, per_source, error, created_at, started_at, finished_at
	          FROM scan_jobs WHERE 1=1`
	var args []any

	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.ScanJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

// helpers

type leadJSON struct {
	emails, phones, tags, sourceURLs, sources, contacts string
}

func leadJSONColumns(lead *model.Lead) (leadJSON, error) {
	var cols leadJSON
	for _, f := range []struct {
		dst *string
		val any
	}{
		{&cols.emails, lead.Emails},
		{&cols.phones, lead.Phones},
		{&cols.tags, lead.Tags},
		{&cols.sourceURLs, lead.SourceURLs},
		{&cols.sources, lead.Sources},
		{&cols.contacts, lead.Contacts},
	} {
		b, err := json.Marshal(f.val)
		if err != nil {
			return leadJSON{}, err
		}
		if string(b) == "null" {
			b = []byte("[]")
		}
		*f.dst = string(b)
	}
	return cols, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var segment, band string
	var cols leadJSON

	err := row.Scan(
		&l.IdentityKey, &l.Company, &l.ContactName, &l.Website, &l.Country, &l.Region, &segment,
		&cols.emails, &cols.phones, &cols.tags, &cols.sourceURLs, &cols.sources, &cols.contacts,
		&l.FirstSeenAt, &l.LastSeenAt, &l.Score, &band, &l.Confidence, &l.Reason, &l.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}
	l.Segment = model.Segment(segment)
	l.Band = model.PriorityBand(band)

	for _, f := range []struct {
		src string
		dst any
	}{
		{cols.emails, &l.Emails},
		{cols.phones, &l.Phones},
		{cols.tags, &l.Tags},
		{cols.sourceURLs, &l.SourceURLs},
		{cols.sources, &l.Sources},
		{cols.contacts, &l.Contacts},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead field")
		}
	}
	l.FirstSeenAt = l.FirstSeenAt.UTC()
	l.LastSeenAt = l.LastSeenAt.UTC()
	return &l, nil
}

func scanJob(row scannable) (*model.ScanJob, error) {
	var j model.ScanJob
	var paramsJSON string
	var perSourceJSON sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(&j.JobID, &paramsJSON, &j.State, &perSourceJSON, &j.Error,
		&j.CreatedAt, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	if err := json.Unmarshal([]byte(paramsJSON), &j.Params); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal params")
	}
	if perSourceJSON.Valid {
		if err := json.Unmarshal([]byte(perSourceJSON.String), &j.PerSource); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal per-source results")
		}
	}
	j.CreatedAt = j.CreatedAt.UTC()
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		j.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		j.FinishedAt = &t
	}
	return &j, nil
}
