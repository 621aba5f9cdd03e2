// Package processor holds the item processors of the tutorial jobs.
package processor

import (
	"context"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/domain/entity"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/item"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// Aggregate counter names printed in file footers.
const (
	TotalPlayers   = "TOTAL_PLAYERS"
	TotalCustomers = "TOTAL_CUSTOMERS"
	TotalAges      = "TOTAL_AGES"
)

func customerStage(apply func(c *entity.Customer)) port.ItemProcessor[*entity.Customer, *entity.Customer] {
	return item.ProcessorFunc[*entity.Customer, *entity.Customer](func(ctx context.Context, c *entity.Customer) (*entity.Customer, error) {
		apply(c)
		return c, nil
	})
}

// AddOneAge increments the age of every customer.
func AddOneAge() port.ItemProcessor[*entity.Customer, *entity.Customer] {
	return customerStage(func(c *entity.Customer) {
		before := c.Age
		c.AddOneAge()
		logger.Debugf("%s: age %d -> %d", c.Name, before, c.Age)
	})
}

// AssignGrade sets the grade from the age.
func AssignGrade() port.ItemProcessor[*entity.Customer, *entity.Customer] {
	return customerStage((*entity.Customer).AssignGrade)
}

// LowerCaseName lower-cases the name.
func LowerCaseName() port.ItemProcessor[*entity.Customer, *entity.Customer] {
	return customerStage((*entity.Customer).NameToLowerCase)
}

// After20Years adds twenty years to the age.
func After20Years() port.ItemProcessor[*entity.Customer, *entity.Customer] {
	return customerStage((*entity.Customer).After20Years)
}

// CustomerTotals counts customers and sums their ages into aggregate.
func CustomerTotals(aggregate *model.AggregateState) port.ItemProcessor[*entity.Customer, *entity.Customer] {
	return customerStage(func(c *entity.Customer) {
		aggregate.Add(TotalCustomers, 1)
		aggregate.Add(TotalAges, int64(c.Age))
	})
}

// ToRecord converts a customer to its export record.
func ToRecord() port.ItemProcessor[*entity.Customer, entity.CustomerRecord] {
	return item.ProcessorFunc[*entity.Customer, entity.CustomerRecord](func(ctx context.Context, c *entity.Customer) (entity.CustomerRecord, error) {
		return c.ToRecord(), nil
	})
}
