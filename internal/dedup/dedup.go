// Package dedup collapses canonical jobs that share an identity key within
// one batch. Deduplication across runs is left to the store's upsert.
package dedup

import "github.com/amishk599/jobsync/internal/model"

// Batch accumulates jobs with last-wins semantics per identity key. Jobs
// come back in the order each key was first seen, so the result depends
// only on the order of Add calls.
type Batch struct {
	order []string
	jobs  map[string]model.CanonicalJob
}

// NewBatch returns an empty batch sized for roughly n jobs.
func NewBatch(n int) *Batch {
	return &Batch{
		order: make([]string, 0, n),
		jobs:  make(map[string]model.CanonicalJob, n),
	}
}

// Add stores job, replacing any earlier job with the same identity key.
// It reports whether the key was new to the batch.
func (b *Batch) Add(job model.CanonicalJob) bool {
	if b.jobs == nil {
		b.jobs = make(map[string]model.CanonicalJob)
	}
	_, exists := b.jobs[job.IdentityKey]
	if !exists {
		b.order = append(b.order, job.IdentityKey)
	}
	b.jobs[job.IdentityKey] = job
	return !exists
}

// Len is the number of distinct identity keys.
func (b *Batch) Len() int { return len(b.order) }

// Jobs returns one job per identity key.
func (b *Batch) Jobs() []model.CanonicalJob {
	out := make([]model.CanonicalJob, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, b.jobs[key])
	}
	return out
}

// Reset empties the batch for reuse.
func (b *Batch) Reset() {
	b.order = b.order[:0]
	clear(b.jobs)
}

// Dedupe collapses jobs into one per identity key, later jobs winning.
func Dedupe(jobs []model.CanonicalJob) map[string]model.CanonicalJob {
	out := make(map[string]model.CanonicalJob, len(jobs))
	for _, j := range jobs {
		out[j.IdentityKey] = j
	}
	return out
}
