package backup

import (
	"iter"
	"math"
	"strings"

	"github.com/rpggio/techtrace/internal/domain/job"
)

// Classification is the outcome for one incoming record.
type Classification string

const (
	Created   Classification = "created"
	Updated   Classification = "updated"
	Unchanged Classification = "unchanged"
	Skipped   Classification = "skipped"
)

// Step is a progress event for one incoming record. For Unchanged, Job is
// the existing record that was kept. For Skipped, Err explains why.
type Step struct {
	Index          int
	Total          int
	Classification Classification
	Job            job.Job
	Err            *MalformedRecordError
}

// MergeResult is the outcome of reconciling incoming jobs with current ones.
type MergeResult struct {
	Merged    []job.Job              `json:"merged"`
	Created   []job.Job              `json:"created"`
	Updated   []job.Job              `json:"updated"`
	Unchanged []job.Job              `json:"unchanged"`
	Skipped   []MalformedRecordError `json:"skipped"`
}

// Counts summarizes the classification sizes.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// Counts returns the size of each classification and of the merged set.
func (r MergeResult) Counts() Counts {
	return Counts{
		Created:   len(r.Created),
		Updated:   len(r.Updated),
		Unchanged: len(r.Unchanged),
		Skipped:   len(r.Skipped),
		Total:     len(r.Merged),
	}
}

// Engine reconciles job collections by id. Equal effective times keep the
// existing record. It holds no state and is safe for concurrent use.
type Engine struct{}

// NewEngine returns a merge engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Steps classifies incoming records lazily, one event per record, in
// incoming order. Neither slice is modified or retained past iteration.
func (e *Engine) Steps(current, incoming []job.Job) iter.Seq[Step] {
	return func(yield func(Step) bool) {
		existing := indexByID(current)
		seen := make(map[string]struct{}, len(incoming))
		total := len(incoming)

		for i, in := range incoming {
			step := Step{Index: i, Total: total}

			if reason := malformedReason(in); reason != "" {
				step.Classification = Skipped
				step.Job = in.Clone()
				step.Err = &MalformedRecordError{Index: i, ID: in.ID, Reason: reason}
				if !yield(step) {
					return
				}
				continue
			}
			if _, dup := seen[in.ID]; dup {
				step.Classification = Skipped
				step.Job = in.Clone()
				step.Err = &MalformedRecordError{Index: i, ID: in.ID, Reason: "duplicate id in incoming jobs"}
				if !yield(step) {
					return
				}
				continue
			}
			seen[in.ID] = struct{}{}

			cur, ok := existing[in.ID]
			switch {
			case !ok:
				step.Classification = Created
				step.Job = normalized(in)
			case in.EffectiveTime().After(cur.EffectiveTime()):
				step.Classification = Updated
				step.Job = normalized(in)
			default:
				step.Classification = Unchanged
				step.Job = cur.Clone()
			}
			if !yield(step) {
				return
			}
		}
	}
}

// Merge applies Steps and assembles the merged collection: current order
// with replacements applied, then created records in incoming order.
// Current records absent from incoming are kept.
func (e *Engine) Merge(current, incoming []job.Job) MergeResult {
	result := MergeResult{
		Created:   []job.Job{},
		Updated:   []job.Job{},
		Unchanged: []job.Job{},
		Skipped:   []MalformedRecordError{},
	}
	replacements := make(map[string]job.Job)

	for step := range e.Steps(current, incoming) {
		switch step.Classification {
		case Created:
			result.Created = append(result.Created, step.Job)
		case Updated:
			result.Updated = append(result.Updated, step.Job)
			replacements[step.Job.ID] = step.Job
		case Unchanged:
			result.Unchanged = append(result.Unchanged, step.Job)
		case Skipped:
			result.Skipped = append(result.Skipped, *step.Err)
		}
	}

	result.Merged = make([]job.Job, 0, len(current)+len(result.Created))
	placed := make(map[string]struct{}, len(current))
	for _, cur := range current {
		if _, dup := placed[cur.ID]; dup {
			continue
		}
		placed[cur.ID] = struct{}{}
		if repl, ok := replacements[cur.ID]; ok {
			result.Merged = append(result.Merged, repl.Clone())
			continue
		}
		result.Merged = append(result.Merged, cur.Clone())
	}
	for _, created := range result.Created {
		result.Merged = append(result.Merged, created.Clone())
	}
	return result
}

// indexByID keeps the first record for each id.
func indexByID(jobs []job.Job) map[string]job.Job {
	out := make(map[string]job.Job, len(jobs))
	for _, j := range jobs {
		if _, ok := out[j.ID]; ok {
			continue
		}
		out[j.ID] = j
	}
	return out
}

func malformedReason(j job.Job) string {
	switch {
	case strings.TrimSpace(j.ID) == "":
		return "missing id"
	case j.DateCreated.IsZero():
		return "missing dateCreated"
	case j.AWValue < 0 || math.IsNaN(j.AWValue) || math.IsInf(j.AWValue, 0):
		return "invalid awValue"
	}
	return ""
}

func normalized(j job.Job) job.Job {
	out := j.Clone()
	out.Recompute()
	return out
}
