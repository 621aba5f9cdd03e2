// Package incrementer derives the identifying parameters of the next run.
package incrementer

import (
	"context"
	"fmt"
	"sync/atomic"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// MaxRunIDSource reports the highest run id already used.
type MaxRunIDSource interface {
	GetMaxRunID(ctx context.Context) (int64, error)
}

// RunIDIncrementer is an implementation of JobParametersIncrementer that
// stores a strictly increasing value under "run.id". It is safe for
// concurrent use; two launches never receive the same id.
type RunIDIncrementer struct {
	name string
	last atomic.Int64
}

// NewRunIDIncrementer creates an incrementer whose first id is seed+1.
func NewRunIDIncrementer(seed int64) *RunIDIncrementer {
	i := &RunIDIncrementer{name: model.RunIDKey}
	i.last.Store(seed)
	return i
}

// NewRunIDIncrementerFromRepository seeds the incrementer with the highest
// run id recorded in source, so that re-runs never collide with previous
// executions.
func NewRunIDIncrementerFromRepository(ctx context.Context, source MaxRunIDSource) (*RunIDIncrementer, error) {
	maxRunID, err := source.GetMaxRunID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed RunIDIncrementer: %w", err)
	}
	logger.Debugf("RunIDIncrementer seeded with run.id %d.", maxRunID)
	return NewRunIDIncrementer(maxRunID), nil
}

// Next reserves and returns the next run id.
func (i *RunIDIncrementer) Next() int64 {
	return i.last.Add(1)
}

// GetNext returns a copy of params with "run.id" set to the next id. A run id
// already present in params is honoured as a lower bound.
func (i *RunIDIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	next := params.Copy()
	if current, ok := params.GetInt(i.name); ok {
		i.raiseTo(int64(current))
	}
	runID := i.Next()
	next.Put(i.name, runID)
	logger.Debugf("RunIDIncrementer: assigned %s=%d.", i.name, runID)
	return next
}

// raiseTo moves the counter up to at least floor.
func (i *RunIDIncrementer) raiseTo(floor int64) {
	for {
		cur := i.last.Load()
		if cur >= floor || i.last.CompareAndSwap(cur, floor) {
			return
		}
	}
}

// String returns the string representation of RunIDIncrementer.
func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s, last=%d]", i.name, i.last.Load())
}

// Ensure RunIDIncrementer implements port.JobParametersIncrementer
var _ port.JobParametersIncrementer = (*RunIDIncrementer)(nil)
