package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reson-group/lead-radar/internal/dedupe"
	"github.com/reson-group/lead-radar/internal/enrich"
	"github.com/reson-group/lead-radar/internal/model"
	"github.com/reson-group/lead-radar/internal/normalize"
	"github.com/reson-group/lead-radar/internal/source"
	"github.com/reson-group/lead-radar/internal/store"
)

// maxMergeRetries bounds the optimistic read-merge-write loop. Conflicts
// come only from concurrent jobs touching the same lead, so a handful of
// retries clears any realistic contention.
const maxMergeRetries = 5

// run executes the job pipeline. fetchCtx governs the fetch phase only;
// everything after the fetch barrier runs to completion on its own context
// so cancellation never drops data already in hand.
func (o *Orchestrator) run(fetchCtx context.Context, h *jobHandle) {
	defer close(h.done)
	defer h.cancelFetch()

	log := zap.L().With(zap.String("job_id", h.job.JobID))
	started := o.now().UTC()
	h.update(func(j *model.ScanJob) {
		j.State = model.JobRunning
		j.StartedAt = &started
	})
	o.persistJob(h) //nolint:errcheck // mid-flight snapshot; the terminal persist is checked

	params := h.snapshot().Params
	log.Info("scan started",
		zap.Strings("sources", params.Sources),
		zap.Strings("countries", params.Countries))

	fetched := o.fetchAll(fetchCtx, h, params)

	// Fetch barrier: from here on the job is not cancellable.
	bgCtx := context.Background()

	touched, mergeErr := o.mergeAll(bgCtx, h, params, fetched)
	if mergeErr == nil {
		o.enrichAll(bgCtx, log, touched)
	}

	finished := o.now().UTC()
	h.update(func(j *model.ScanJob) {
		j.FinishedAt = &finished
		switch {
		case mergeErr != nil:
			// A store failure mid-merge means the persisted lead set is
			// incomplete; the job must not report partial silent success.
			j.State = model.JobFailed
			j.Error = mergeErr.Error()
		case anySourceSucceeded(j.PerSource):
			j.State = model.JobDone
		default:
			j.State = model.JobFailed
			j.Error = "all sources failed"
		}
	})
	if err := o.persistJob(h); err != nil {
		h.update(func(j *model.ScanJob) {
			j.State = model.JobFailed
			j.Error = "persist job: " + err.Error()
		})
	}

	final := h.snapshot()
	log.Info("scan finished",
		zap.String("state", string(final.State)),
		zap.Int("leads_touched", len(touched)),
		zap.Duration("elapsed", finished.Sub(started)))
}

// fetchAll fans out across source adapters with bounded concurrency and an
// overall deadline. Each source fails independently; failures are recorded
// on the job rather than aborting siblings.
func (o *Orchestrator) fetchAll(ctx context.Context, h *jobHandle, params model.ScanParams) map[string][]model.RawRecord {
	timeout := time.Duration(o.cfg.Scan.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := o.cfg.Scan.MaxConcurrentSources
	if limit <= 0 {
		limit = 4
	}

	fetched := make(map[string][]model.RawRecord, len(params.Sources))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(limit)
	for _, name := range params.Sources {
		g.Go(func() error {
			adapter := o.registry.Get(name)
			if adapter == nil {
				h.update(func(j *model.ScanJob) {
					j.PerSource[name] = model.SourceResult{Error: "adapter not registered"}
				})
				return nil
			}

			records, err := adapter.Fetch(ctx, source.FetchParams{
				Countries:    params.Countries,
				MaxPerSource: params.MaxPerSource,
				SinceMonths:  params.SinceMonths,
			})
			if err != nil {
				zap.L().Warn("source fetch failed",
					zap.String("job_id", h.job.JobID),
					zap.String("source", name), zap.Error(err))
				h.update(func(j *model.ScanJob) {
					j.PerSource[name] = model.SourceResult{Error: err.Error()}
				})
				return nil
			}

			mu.Lock()
			fetched[name] = records
			mu.Unlock()
			h.update(func(j *model.ScanJob) {
				j.PerSource[name] = model.SourceResult{Fetched: len(records)}
			})
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors
	return fetched
}

// mergeAll normalizes every fetched record and folds it into the lead store,
// serialized per identity key. Sources are processed in request order so the
// scalar gap-fill is deterministic for a given job. Returns the set of keys
// written this run; a store error aborts the pass and fails the job.
func (o *Orchestrator) mergeAll(ctx context.Context, h *jobHandle, params model.ScanParams, fetched map[string][]model.RawRecord) (map[string]struct{}, error) {
	touched := make(map[string]struct{})

	for _, name := range params.Sources {
		records, ok := fetched[name]
		if !ok {
			continue
		}
		var merged, dropped int
		var storeErr error
		for _, raw := range records {
			rec, err := o.normalizer.Normalize(raw)
			if err != nil {
				if !eris.Is(err, normalize.ErrMalformed) {
					zap.L().Debug("normalize failed",
						zap.String("source", name), zap.Error(err))
				}
				dropped++
				continue
			}
			key, err := o.mergeRecord(ctx, rec)
			if err != nil {
				storeErr = eris.Wrapf(err, "merge %q from %s", rec.Company, name)
				break
			}
			touched[key] = struct{}{}
			merged++
		}
		h.update(func(j *model.ScanJob) {
			r := j.PerSource[name]
			r.Merged = merged
			r.Dropped = dropped
			j.PerSource[name] = r
		})
		if storeErr != nil {
			zap.L().Error("merge pass aborted",
				zap.String("job_id", h.job.JobID),
				zap.String("source", name), zap.Error(storeErr))
			return touched, storeErr
		}
	}
	return touched, nil
}

// mergeRecord performs one serialized read-merge-score-write cycle. A
// version conflict means another job updated the lead between our read and
// write; re-reading and re-merging is always safe because merge only grows
// sets and fills gaps.
func (o *Orchestrator) mergeRecord(ctx context.Context, rec *normalize.Record) (string, error) {
	key := dedupe.Key(rec)
	unlock := o.lockKey(key)
	defer unlock()

	for attempt := 0; attempt < maxMergeRetries; attempt++ {
		existing, err := o.store.GetLead(ctx, key)
		if err != nil && !eris.Is(err, store.ErrNotFound) {
			return "", err
		}
		lead := dedupe.Merge(existing, rec, o.now().UTC())
		o.scorer.Apply(lead, o.now().UTC())

		err = o.store.UpsertLead(ctx, lead)
		if eris.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		return key, nil
	}
	return "", eris.Errorf("orchestrator: merge contention on %s", key)
}

// enrichAll runs the configured enricher over the highest-scoring leads
// written this run. Enrichment is best-effort: a failed lead keeps whatever
// it had and the job still completes.
func (o *Orchestrator) enrichAll(ctx context.Context, log *zap.Logger, touched map[string]struct{}) {
	if !o.cfg.Enrich.Enabled {
		return
	}
	if _, isNoop := o.enricher.(enrich.Noop); isNoop {
		return
	}

	leads := make([]*model.Lead, 0, len(touched))
	for key := range touched {
		lead, err := o.store.GetLead(ctx, key)
		if err != nil {
			log.Debug("enrich: load failed", zap.String("key", key), zap.Error(err))
			continue
		}
		leads = append(leads, lead)
	}
	sort.Slice(leads, func(i, j int) bool {
		if leads[i].Score != leads[j].Score {
			return leads[i].Score > leads[j].Score
		}
		return leads[i].Company < leads[j].Company
	})
	if n := o.cfg.Enrich.MaxLeads; n > 0 && len(leads) > n {
		leads = leads[:n]
	}

	for _, lead := range leads {
		if err := o.enrichLead(ctx, lead.IdentityKey); err != nil {
			log.Debug("enrich failed",
				zap.String("key", lead.IdentityKey),
				zap.String("company", lead.Company), zap.Error(err))
		}
	}
}

// enrichLead re-reads the lead under its key lock, enriches it, re-scores,
// and writes it back with the same optimistic retry as merging.
func (o *Orchestrator) enrichLead(ctx context.Context, key string) error {
	unlock := o.lockKey(key)
	defer unlock()

	for attempt := 0; attempt < maxMergeRetries; attempt++ {
		lead, err := o.store.GetLead(ctx, key)
		if err != nil {
			return err
		}
		if err := o.enricher.Enrich(ctx, lead); err != nil {
			return err
		}
		o.scorer.Apply(lead, o.now().UTC())

		err = o.store.UpsertLead(ctx, lead)
		if eris.Is(err, store.ErrVersionConflict) {
			continue
		}
		return err
	}
	return eris.Errorf("orchestrator: enrich contention on %s", key)
}

func anySourceSucceeded(results map[string]model.SourceResult) bool {
	for _, r := range results {
		if r.Error == "" {
			return true
		}
	}
	return false
}

// lockKey serializes writers of one identity key within this process. The
// store's version check covers cross-process races.
func (o *Orchestrator) lockKey(key string) func() {
	o.mu.Lock()
	if o.keyLocks == nil {
		o.keyLocks = make(map[string]*sync.Mutex)
	}
	m, ok := o.keyLocks[key]
	if !ok {
		m = &sync.Mutex{}
		o.keyLocks[key] = m
	}
	o.mu.Unlock()

	m.Lock()
	return m.Unlock
}
