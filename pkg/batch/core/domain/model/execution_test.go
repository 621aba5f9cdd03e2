package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

func newTestJobExecution() *model.JobExecution {
	params := model.NewJobParameters()
	params.Put(model.RunIDKey, 7)
	return model.NewJobExecution(model.NewJobInstance("testJob", params))
}

func TestJobExecution_Lifecycle(t *testing.T) {
	je := newTestJobExecution()
	assert.Equal(t, model.BatchStatusReady, je.Status)
	assert.Equal(t, int64(7), je.RunID)

	je.MarkAsStarted()
	assert.Equal(t, model.BatchStatusExecuting, je.Status)
	assert.False(t, je.StartTime.IsZero())

	je.MarkAsCompleted()
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
	require.NotNil(t, je.EndTime)
}

func TestJobExecution_InvalidTransitions(t *testing.T) {
	je := newTestJobExecution()
	assert.Error(t, je.TransitionTo(model.BatchStatusCompleted), "READY cannot complete without executing")

	je.MarkAsStarted()
	je.MarkAsStopped()
	assert.Error(t, je.TransitionTo(model.BatchStatusExecuting), "terminal states are final")

	// Marking a finished execution again keeps the first outcome.
	je.MarkAsFailed(errors.New("late"))
	assert.Equal(t, model.BatchStatusStopped, je.Status)
	assert.Equal(t, model.ExitStatusStopped, je.ExitStatus)
}

func TestJobExecution_ReadyMayFailDirectly(t *testing.T) {
	je := newTestJobExecution()
	je.MarkAsFailed(errors.New("no such step"))
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Len(t, je.Failures, 1)
}

func TestStepExecution_AttachesToJob(t *testing.T) {
	je := newTestJobExecution()
	se := model.NewStepExecution(je, "step01")

	assert.Equal(t, je.ID, se.JobExecutionID)
	assert.Same(t, je, se.JobExecution)
	require.Len(t, je.StepExecutions, 1)
	assert.Same(t, se, je.StepExecutions[0])
}

func TestStepExecution_FailureDeduplication(t *testing.T) {
	se := model.NewStepExecution(nil, "step")
	se.MarkAsStarted()
	se.AddFailure(errors.New("disk full"))
	se.AddFailure(errors.New("disk full"))
	se.MarkAsFailed(errors.New("disk full"))

	assert.Len(t, se.Failures, 1)
	assert.Equal(t, model.ExitStatusFailed, se.ExitStatus)
	assert.EqualError(t, se.LastFailure(), "disk full")
}

func TestStepExecution_CustomExitStatusSurvivesCompletion(t *testing.T) {
	se := model.NewStepExecution(nil, "decide")
	se.MarkAsStarted()
	se.SetExitStatus("EVEN")
	se.MarkAsCompleted()

	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatus("EVEN"), se.ExitStatus)
}

func TestStepExecution_StopOverridesCustomExit(t *testing.T) {
	se := model.NewStepExecution(nil, "s")
	se.MarkAsStarted()
	se.SetExitStatus("CUSTOM")
	se.MarkAsStopped()
	assert.Equal(t, model.ExitStatusStopped, se.ExitStatus)
}

func TestNewJobExecutionResult(t *testing.T) {
	je := newTestJobExecution()
	je.MarkAsStarted()
	a := model.NewStepExecution(je, "A")
	a.MarkAsStarted()
	a.ReadCount, a.WriteCount, a.CommitCount = 3, 2, 1
	a.MarkAsFailed(errors.New("boom"))
	c := model.NewStepExecution(je, "C")
	c.MarkAsStarted()
	c.MarkAsCompleted()
	je.MarkAsCompleted()

	res := model.NewJobExecutionResult(je)
	assert.Equal(t, []string{"A", "C"}, res.StepNames())
	stepA, ok := res.Step("A")
	require.True(t, ok)
	assert.Equal(t, model.BatchStatusFailed, stepA.Status)
	assert.Equal(t, 3, stepA.ReadCount)
	assert.EqualError(t, stepA.Err, "boom")
	_, ok = res.Step("B")
	assert.False(t, ok)
}

func TestContinueIf(t *testing.T) {
	assert.Equal(t, model.RepeatStatusContinuable, model.ContinueIf(true))
	assert.Equal(t, model.RepeatStatusFinished, model.ContinueIf(false))
	assert.True(t, model.RepeatStatusContinuable.IsContinuable())
}
