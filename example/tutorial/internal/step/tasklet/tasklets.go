// Package tasklet holds the single-task steps of the tutorial jobs.
package tasklet

import (
	"context"
	"fmt"
	"math/rand/v2"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// CountKey is the ExecutionContext key the counting tasklets keep their count under.
const CountKey = "greeting.count"

// GreetingTasklet logs a greeting and finishes.
type GreetingTasklet struct{}

func NewGreetingTasklet() *GreetingTasklet { return &GreetingTasklet{} }

func (t *GreetingTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	logger.Infof("----------------------- Task Execute -----------------------")
	logger.Infof("GreetingTask: step %s (execution %s)", stepExecution.StepName, stepExecution.ID)
	return model.RepeatStatusFinished, nil
}

// increment bumps the count kept in the step's ExecutionContext, so every
// execution starts from zero.
func increment(stepExecution *model.StepExecution) int {
	count, _ := stepExecution.ExecutionContext.GetInt(CountKey)
	count++
	stepExecution.ExecutionContext.Put(CountKey, count)
	logger.Infof("Count : %d", count)
	return count
}

// CounterTasklet repeats until it has run Limit times.
type CounterTasklet struct {
	Limit int
}

// NewCounterTasklet creates a CounterTasklet that runs ten times.
func NewCounterTasklet() *CounterTasklet { return &CounterTasklet{Limit: 10} }

func (t *CounterTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	count := increment(stepExecution)
	return model.ContinueIf(count < t.Limit), nil
}

// ExceptionTasklet counts like CounterTasklet but fails on FailAt.
type ExceptionTasklet struct {
	Limit  int
	FailAt int
}

// NewExceptionTasklet creates an ExceptionTasklet that fails on its seventh run.
func NewExceptionTasklet() *ExceptionTasklet { return &ExceptionTasklet{Limit: 10, FailAt: 7} }

func (t *ExceptionTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	count := increment(stepExecution)
	if count == t.FailAt {
		return model.RepeatStatusFinished, exception.NewBusinessRuleError("exception_tasklet", fmt.Sprintf("Tasklet Error : count is %d", count))
	}
	return model.ContinueIf(count < t.Limit), nil
}

// LooperTasklet never finishes on its own. Its step must bound it with
// WithMaxIterations or be stopped.
type LooperTasklet struct{}

func NewLooperTasklet() *LooperTasklet { return &LooperTasklet{} }

func (t *LooperTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	if err := ctx.Err(); err != nil {
		return model.RepeatStatusFinished, nil
	}
	increment(stepExecution)
	return model.RepeatStatusContinuable, nil
}

// OddEvenTasklet draws a number below 1000 and fails when it is odd. Flow
// transitions route on the resulting FAILED or COMPLETED exit status.
type OddEvenTasklet struct {
	draw func() int
}

// NewOddEvenTasklet creates the tasklet. draw defaults to a random number in [0, 1000).
func NewOddEvenTasklet(draw func() int) *OddEvenTasklet {
	if draw == nil {
		draw = func() int { return rand.IntN(1000) }
	}
	return &OddEvenTasklet{draw: draw}
}

func (t *OddEvenTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	logger.Infof("Execute %s Tasklet ...", stepExecution.StepName)
	value := t.draw()
	stepExecution.ExecutionContext.Put("oddEven.value", value)
	if value%2 != 0 {
		return model.RepeatStatusFinished, exception.NewBusinessRuleError("odd_even_tasklet", fmt.Sprintf("Error This value is Odd: %d", value))
	}
	return model.RepeatStatusFinished, nil
}

// PrintTasklet logs a fixed message and finishes.
type PrintTasklet struct {
	message string
}

func NewPrintTasklet(message string) *PrintTasklet { return &PrintTasklet{message: message} }

func (t *PrintTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	logger.Infof("%s", t.message)
	return model.RepeatStatusFinished, nil
}

var (
	_ port.Tasklet = (*GreetingTasklet)(nil)
	_ port.Tasklet = (*CounterTasklet)(nil)
	_ port.Tasklet = (*ExceptionTasklet)(nil)
	_ port.Tasklet = (*LooperTasklet)(nil)
	_ port.Tasklet = (*OddEvenTasklet)(nil)
	_ port.Tasklet = (*PrintTasklet)(nil)
)
