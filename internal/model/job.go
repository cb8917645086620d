package model

import "time"

// JobState tracks a scan job through its lifecycle.
// Transitions: pending -> running -> done | failed. Terminal states are
// never left; a new scan over the same sources is a new job.
type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// ScanParams is the immutable input of a scan job.
type ScanParams struct {
	// Sources names the adapters to run; "ALL" expands to every registered one.
	Sources []string `json:"sources"`
	// Countries accepts ISO-2 codes and macro region tokens (EU, DACH, ...).
	Countries []string `json:"countries"`
	// MaxPerSource caps records retrieved per source. Zero means config default.
	MaxPerSource int `json:"max_per_source,omitempty"`
	// SinceMonths is the recency cutoff hint passed to adapters.
	SinceMonths int `json:"since_months,omitempty"`
}

// SourceResult reports per-source outcome counts for one job.
type SourceResult struct {
	Fetched int    `json:"fetched"`
	Merged  int    `json:"merged"`
	Dropped int    `json:"dropped"`
	Error   string `json:"error,omitempty"`
}

// ScanJob is one invocation of the scan pipeline.
type ScanJob struct {
	JobID      string                  `json:"job_id"`
	Params     ScanParams              `json:"params"`
	State      JobState                `json:"state"`
	PerSource  map[string]SourceResult `json:"per_source_results,omitempty"`
	Error      string                  `json:"error,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	StartedAt  *time.Time              `json:"started_at,omitempty"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
}

// Clone returns a deep copy safe to hand out while the job is mutating.
func (j *ScanJob) Clone() *ScanJob {
	cp := *j
	if j.PerSource != nil {
		cp.PerSource = make(map[string]SourceResult, len(j.PerSource))
		for k, v := range j.PerSource {
			cp.PerSource[k] = v
		}
	}
	cp.Params.Sources = append([]string(nil), j.Params.Sources...)
	cp.Params.Countries = append([]string(nil), j.Params.Countries...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
