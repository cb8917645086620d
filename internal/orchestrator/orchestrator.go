// Package orchestrator drives scan jobs through fetch, normalize, merge,
// enrich, and score. Jobs run asynchronously; callers poll status by job ID.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/enrich"
	"github.com/reson-group/lead-radar/internal/model"
	"github.com/reson-group/lead-radar/internal/normalize"
	"github.com/reson-group/lead-radar/internal/score"
	"github.com/reson-group/lead-radar/internal/source"
	"github.com/reson-group/lead-radar/internal/store"
)

// ErrUnknownJob is returned for job IDs the orchestrator has never seen.
var ErrUnknownJob = eris.New("orchestrator: unknown job")

// Orchestrator owns the scan pipeline and the in-flight job table.
type Orchestrator struct {
	cfg        *config.Config
	store      store.Store
	registry   *source.Registry
	normalizer *normalize.Normalizer
	scorer     *score.Scorer
	enricher   enrich.Enricher

	mu       sync.Mutex
	jobs     map[string]*jobHandle
	keyLocks map[string]*sync.Mutex

	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// jobHandle tracks a running job. cancelFetch aborts only the fetch phase;
// everything already fetched is still processed and persisted.
type jobHandle struct {
	mu          sync.Mutex
	job         *model.ScanJob
	cancelFetch context.CancelFunc
	done        chan struct{}
}

// New wires the orchestrator. Pass enrich.Noop{} to disable enrichment.
func New(cfg *config.Config, st store.Store, registry *source.Registry, enricher enrich.Enricher) *Orchestrator {
	if enricher == nil {
		enricher = enrich.Noop{}
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      st,
		registry:   registry,
		normalizer: normalize.New(cfg.Tags),
		scorer:     score.New(cfg.Score),
		enricher:   enricher,
		jobs:       make(map[string]*jobHandle),
		now:        time.Now,
	}
}

// Submit validates params, persists a pending job, and starts it in the
// background. The returned snapshot is safe to hand out.
func (o *Orchestrator) Submit(ctx context.Context, params model.ScanParams) (*model.ScanJob, error) {
	sources, err := o.resolveSources(params.Sources)
	if err != nil {
		return nil, err
	}
	params.Sources = sources
	params.Countries = config.ExpandCountries(params.Countries)
	if params.MaxPerSource <= 0 {
		params.MaxPerSource = o.cfg.Scan.MaxPerSource
	}
	if params.SinceMonths <= 0 {
		params.SinceMonths = o.cfg.Scan.SinceMonths
	}

	job := &model.ScanJob{
		JobID:     uuid.New().String(),
		Params:    params,
		State:     model.JobPending,
		PerSource: make(map[string]model.SourceResult, len(sources)),
		CreatedAt: o.now().UTC(),
	}
	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithCancel(context.Background())
	h := &jobHandle{
		job:         job,
		cancelFetch: cancel,
		done:        make(chan struct{}),
	}
	o.mu.Lock()
	o.jobs[job.JobID] = h
	o.mu.Unlock()

	go o.run(fetchCtx, h)

	return h.snapshot(), nil
}

// Status returns a snapshot of the job, falling back to the store for jobs
// from earlier process lifetimes.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*model.ScanJob, error) {
	o.mu.Lock()
	h, ok := o.jobs[jobID]
	o.mu.Unlock()
	if ok {
		return h.snapshot(), nil
	}
	job, err := o.store.GetJob(ctx, jobID)
	if eris.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownJob
	}
	return job, err
}

// Cancel aborts the fetch phase of a running job. Records already fetched
// still flow through merge, enrich, and score; the job finishes normally.
// Cancelling a terminal job is a no-op.
func (o *Orchestrator) Cancel(jobID string) error {
	o.mu.Lock()
	h, ok := o.jobs[jobID]
	o.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	h.cancelFetch()
	return nil
}

// Wait blocks until the job reaches a terminal state or ctx expires.
func (o *Orchestrator) Wait(ctx context.Context, jobID string) (*model.ScanJob, error) {
	o.mu.Lock()
	h, ok := o.jobs[jobID]
	o.mu.Unlock()
	if !ok {
		return nil, ErrUnknownJob
	}
	select {
	case <-h.done:
		return h.snapshot(), nil
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "orchestrator: wait")
	}
}

func (o *Orchestrator) resolveSources(requested []string) ([]string, error) {
	available := o.registry.Names()
	if len(requested) == 0 {
		return available, nil
	}
	known := make(map[string]struct{}, len(available))
	for _, name := range available {
		known[name] = struct{}{}
	}

	var sources []string
	seen := make(map[string]struct{})
	for _, name := range requested {
		if name == "ALL" || name == "all" {
			return available, nil
		}
		if _, ok := known[name]; !ok {
			return nil, eris.Errorf("orchestrator: unknown source %q", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	return sources, nil
}

func (h *jobHandle) snapshot() *model.ScanJob {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.Clone()
}

func (h *jobHandle) update(fn func(*model.ScanJob)) {
	h.mu.Lock()
	fn(h.job)
	h.mu.Unlock()
}

func (o *Orchestrator) persistJob(h *jobHandle) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.SaveJob(ctx, h.snapshot()); err != nil {
		zap.L().Warn("orchestrator: persist job failed",
			zap.String("job_id", h.job.JobID), zap.Error(err))
		return err
	}
	return nil
}
