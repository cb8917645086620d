// Package store persists leads and scan jobs. Two backends are provided:
// SQLite for single-node use and PostgreSQL for shared deployments.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/model"
)

// ErrNotFound is returned when a lead or job does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrVersionConflict is returned by UpsertLead when the lead changed
// underneath the caller. The caller re-reads, re-merges, and retries.
var ErrVersionConflict = eris.New("store: version conflict")

// JobFilter specifies criteria for listing scan jobs.
type JobFilter struct {
	State  model.JobState `json:"state,omitempty"`
	Limit  int            `json:"limit,omitempty"`
	Offset int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Leads
	GetLead(ctx context.Context, identityKey string) (*model.Lead, error)
	// UpsertLead writes the lead if its Version still matches the stored
	// row (Version zero means "must not exist yet"). On success the
	// lead's Version is advanced in place; on a lost race it returns
	// ErrVersionConflict and writes nothing.
	UpsertLead(ctx context.Context, lead *model.Lead) error
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error)
	CountLeads(ctx context.Context, filter model.LeadFilter) (int, error)

	// Jobs
	SaveJob(ctx context.Context, job *model.ScanJob) error
	GetJob(ctx context.Context, jobID string) (*model.ScanJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.ScanJob, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the configured backend and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "lead-radar.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
