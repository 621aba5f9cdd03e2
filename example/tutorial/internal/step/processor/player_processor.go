package processor

import (
	"context"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/domain/entity"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// PlayerAgeIncrement makes every player one year older and keeps the player
// count and the age sum in an AggregateState.
type PlayerAgeIncrement struct {
	aggregate *model.AggregateState
}

func NewPlayerAgeIncrement(aggregate *model.AggregateState) *PlayerAgeIncrement {
	return &PlayerAgeIncrement{aggregate: aggregate}
}

func (p *PlayerAgeIncrement) Process(ctx context.Context, player *entity.Player) (*entity.Player, error) {
	player.Age++
	p.aggregate.Add(TotalPlayers, 1)
	p.aggregate.Add(TotalAges, int64(player.Age))
	return player, nil
}

// AggregateListener resets an AggregateState before each execution of its
// step and publishes the totals into the step's ExecutionContext afterwards.
type AggregateListener struct {
	aggregate *model.AggregateState
}

func NewAggregateListener(aggregate *model.AggregateState) *AggregateListener {
	return &AggregateListener{aggregate: aggregate}
}

func (l *AggregateListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.aggregate.Reset()
}

func (l *AggregateListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.aggregate.PublishTo(stepExecution.ExecutionContext)
}

var (
	_ port.ItemProcessor[*entity.Player, *entity.Player] = (*PlayerAgeIncrement)(nil)
	_ port.StepExecutionListener                          = (*AggregateListener)(nil)
)
