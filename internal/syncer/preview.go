package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/dedup"
	"github.com/amishk599/jobsync/internal/model"
)

// Preview is what a sync would write, computed without writing.
type Preview struct {
	Jobs        []model.CanonicalJob
	New         map[string]bool // identity keys the store does not hold yet
	Raw         int
	Rejected    int // failed validation
	Duplicates  int
	PagesFailed int
}

// Preview collects everything from c, canonicalizes and deduplicates it, and
// checks which identity keys are new. Neither the store nor the ledger is
// written.
func (e *Engine) Preview(ctx context.Context, c model.Collector) (Preview, error) {
	var p Preview
	batch := dedup.NewBatch(e.cfg.BatchSize)

	for raw, err := range c.Collect(ctx, "") {
		if err != nil {
			var pageErr *model.PageError
			if errors.As(err, &pageErr) {
				p.PagesFailed++
				e.logger.Debug("page failed, continuing", zap.Error(err))
				continue
			}
			return p, fmt.Errorf("collecting from %s: %w", c.Name(), err)
		}
		p.Raw++

		job := e.canon.Canonicalize(raw)
		if err := e.validate.Struct(job); err != nil {
			p.Rejected++
			continue
		}
		if !batch.Add(job) {
			p.Duplicates++
		}
	}

	p.Jobs = batch.Jobs()
	p.New = make(map[string]bool, len(p.Jobs))
	for _, j := range p.Jobs {
		_, err := e.jobs.GetJob(ctx, j.IdentityKey)
		switch {
		case errors.Is(err, model.ErrNotFound):
			p.New[j.IdentityKey] = true
		case err != nil:
			return p, fmt.Errorf("looking up %s: %w", j.IdentityKey, err)
		}
	}
	return p, nil
}
