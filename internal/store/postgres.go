package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reson-group/lead-radar/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_lead":    `SELECT ` + pgLeadColumns + ` FROM leads WHERE identity_key = $1`,
	"insert_lead": pgInsertLead,
	"update_lead": pgUpdateLead,
	"get_job":     `SELECT job_id, params, state, per_source, error, created_at, started_at, finished_at FROM scan_jobs WHERE job_id = $1`,
	"save_job":    pgSaveJob,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, for tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	identity_key  TEXT PRIMARY KEY,
	company       TEXT NOT NULL,
	contact_name  TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	segment       TEXT NOT NULL DEFAULT '',
	emails        JSONB NOT NULL DEFAULT '[]',
	phones        JSONB NOT NULL DEFAULT '[]',
	tags          JSONB NOT NULL DEFAULT '[]',
	source_urls   JSONB NOT NULL DEFAULT '[]',
	sources       JSONB NOT NULL DEFAULT '[]',
	contacts      JSONB NOT NULL DEFAULT '[]',
	first_seen_at TIMESTAMPTZ NOT NULL,
	last_seen_at  TIMESTAMPTZ NOT NULL,
	score         INTEGER NOT NULL DEFAULT 0,
	band          TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	reason        TEXT NOT NULL DEFAULT '',
	version       BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS scan_jobs (
	job_id      TEXT PRIMARY KEY,
	params      JSONB NOT NULL,
	state       TEXT NOT NULL DEFAULT 'pending',
	per_source  JSONB,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	started_at  TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_leads_band ON leads(band);
CREATE INDEX IF NOT EXISTS idx_leads_country ON leads(country);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score DESC);
CREATE INDEX IF NOT EXISTS idx_leads_tags ON leads USING GIN (tags);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_state ON scan_jobs(state);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_created_at ON scan_jobs(created_at DESC);
`

const pgLeadColumns = `identity_key, company, contact_name, website, country, region, segment,
	emails, phones, tags, source_urls, sources, contacts,
	first_seen_at, last_seen_at, score, band, confidence, reason, version`

const pgInsertLead = `INSERT INTO leads (identity_key, company, contact_name, website, country, region, segment,
	emails, phones, tags, source_urls, sources, contacts,
	first_seen_at, last_seen_at, score, band, confidence, reason, version)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1)
 ON CONFLICT (identity_key) DO NOTHING`

const pgUpdateLead = `UPDATE leads SET
	company = $1, contact_name = $2, website = $3, country = $4, region = $5, segment = $6,
	emails = $7, phones = $8, tags = $9, source_urls = $10, sources = $11, contacts = $12,
	first_seen_at = $13, last_seen_at = $14, score = $15, band = $16, confidence = $17, reason = $18,
	version = version + 1
 WHERE identity_key = $19 AND version = $20`

const pgSaveJob = `INSERT INTO scan_jobs (job_id, params, state, per_source, error, created_at, started_at, finished_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
 ON CONFLICT (job_id) DO UPDATE SET
	state = EXCLUDED.state, per_source = EXCLUDED.per_source, error = EXCLUDED.error,
	started_at = EXCLUDED.started_at, finished_at = EXCLUDED.finished_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, identityKey string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLeadColumns+` FROM leads WHERE identity_key = $1`,
		identityKey,
	)
	l, err := scanPgLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", identityKey)
	}
	return l, nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	cols, err := pgLeadJSON(lead)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}

	if lead.Version == 0 {
		tag, err := s.pool.Exec(ctx, pgInsertLead,
			lead.IdentityKey, lead.Company, lead.ContactName, lead.Website,
			lead.Country, lead.Region, string(lead.Segment),
			cols.emails, cols.phones, cols.tags, cols.sourceURLs, cols.sources, cols.contacts,
			lead.FirstSeenAt.UTC(), lead.LastSeenAt.UTC(),
			lead.Score, string(lead.Band), lead.Confidence, lead.Reason,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert lead %s", lead.IdentityKey)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		lead.Version = 1
		return nil
	}

	tag, err := s.pool.Exec(ctx, pgUpdateLead,
		lead.Company, lead.ContactName, lead.Website, lead.Country, lead.Region, string(lead.Segment),
		cols.emails, cols.phones, cols.tags, cols.sourceURLs, cols.sources, cols.contacts,
		lead.FirstSeenAt.UTC(), lead.LastSeenAt.UTC(),
		lead.Score, string(lead.Band), lead.Confidence, lead.Reason,
		lead.IdentityKey, lead.Version,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", lead.IdentityKey)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	lead.Version++
	return nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + pgLeadColumns + ` FROM leads WHERE true`
	query, args, argIdx, err := pgLeadWhere(query, nil, 1, filter)
	if err != nil {
		return nil, err
	}
	query += ` ORDER BY score DESC, company ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeads(ctx context.Context, filter model.LeadFilter) (int, error) {
	query, args, _, err := pgLeadWhere(`SELECT COUNT(*) FROM leads WHERE true`, nil, 1, filter)
	if err != nil {
		return 0, err
	}
	var count int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, eris.Wrap(err, "postgres: count leads")
}

func pgLeadWhere(query string, args []any, argIdx int, filter model.LeadFilter) (string, []any, int, error) {
	if filter.Band != "" {
		query += fmt.Sprintf(` AND band = $%d`, argIdx)
		args = append(args, string(filter.Band))
		argIdx++
	}
	if filter.Country != "" {
		query += fmt.Sprintf(` AND country = $%d`, argIdx)
		args = append(args, filter.Country)
		argIdx++
	}
	if filter.Tag != "" {
		tagJSON, err := json.Marshal([]string{filter.Tag})
		if err != nil {
			return "", nil, 0, eris.Wrap(err, "postgres: marshal tag filter")
		}
		query += fmt.Sprintf(` AND tags @> $%d`, argIdx)
		args = append(args, tagJSON)
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	return query, args, argIdx, nil
}

func (s *PostgresStore) SaveJob(ctx context.Context, job *model.ScanJob) error {
	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal params")
	}
	var perSourceJSON []byte
	if job.PerSource != nil {
		perSourceJSON, err = json.Marshal(job.PerSource)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal per-source results")
		}
	}

	_, err = s.pool.Exec(ctx, pgSaveJob,
		job.JobID, paramsJSON, string(job.State), perSourceJSON, job.Error,
		job.CreatedAt.UTC(), pgTimePtr(job.StartedAt), pgTimePtr(job.FinishedAt),
	)
	return eris.Wrapf(err, "postgres: save job %s", job.JobID)
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.ScanJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT job_id, params, state, per_source, error, created_at, started_at, finished_at
		 FROM scan_jobs WHERE job_id = $1`,
		jobID,
	)
	j, err := scanPgJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.ScanJob, error) {
	query := `SELECT job_id, params, state, per_source, error, created_at, started_at, finished_at
	          FROM scan_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.State != "" {
		query += fmt.Sprintf(` AND state = $%d`, argIdx)
		args = append(args, string(filter.State))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.ScanJob
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

// helpers

type pgLeadCols struct {
	emails, phones, tags, sourceURLs, sources, contacts []byte
}

func pgLeadJSON(lead *model.Lead) (pgLeadCols, error) {
	var cols pgLeadCols
	for _, f := range []struct {
		dst *[]byte
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
			return pgLeadCols{}, err
		}
		if string(b) == "null" {
			b = []byte("[]")
		}
		*f.dst = b
	}
	return cols, nil
}

func pgTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var segment, band string
	var cols pgLeadCols

	err := row.Scan(
		&l.IdentityKey, &l.Company, &l.ContactName, &l.Website, &l.Country, &l.Region, &segment,
		&cols.emails, &cols.phones, &cols.tags, &cols.sourceURLs, &cols.sources, &cols.contacts,
		&l.FirstSeenAt, &l.LastSeenAt, &l.Score, &band, &l.Confidence, &l.Reason, &l.Version,
	)
	if err != nil {
		return nil, err
	}
	l.Segment = model.Segment(segment)
	l.Band = model.PriorityBand(band)

	for _, f := range []struct {
		src []byte
		dst any
	}{
		{cols.emails, &l.Emails},
		{cols.phones, &l.Phones},
		{cols.tags, &l.Tags},
		{cols.sourceURLs, &l.SourceURLs},
		{cols.sources, &l.Sources},
		{cols.contacts, &l.Contacts},
	} {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead field")
		}
	}
	l.FirstSeenAt = l.FirstSeenAt.UTC()
	l.LastSeenAt = l.LastSeenAt.UTC()
	return &l, nil
}

func scanPgJob(row pgx.Row) (*model.ScanJob, error) {
	var j model.ScanJob
	var paramsJSON []byte
	var perSourceJSON []byte
	var startedAt, finishedAt *time.Time

	err := row.Scan(&j.JobID, &paramsJSON, &j.State, &perSourceJSON, &j.Error,
		&j.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(paramsJSON, &j.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal params")
	}
	if len(perSourceJSON) > 0 {
		if err := json.Unmarshal(perSourceJSON, &j.PerSource); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal per-source results")
		}
	}
	j.CreatedAt = j.CreatedAt.UTC()
	if startedAt != nil {
		t := startedAt.UTC()
		j.StartedAt = &t
	}
	if finishedAt != nil {
		t := finishedAt.UTC()
		j.FinishedAt = &t
	}
	return &j, nil
}
