package writer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Azure/go-asynctask"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/domain/entity"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// HighBonusThreshold is the bonus above which a customer is reported.
const HighBonusThreshold = 15000

// BonusItemWriter looks up the bonus of every customer of a chunk
// concurrently and prints the customers with a high bonus. An unavailable
// bonus service degrades the chunk instead of failing it.
type BonusItemWriter struct {
	client      BonusClient
	concurrency int
	out         io.Writer

	highBonus   int
	unavailable int
	ec          model.ExecutionContext
}

// NewBonusItemWriter creates the writer. concurrency bounds the lookups in
// flight; out defaults to stdout.
func NewBonusItemWriter(client BonusClient, concurrency int, out io.Writer) (*BonusItemWriter, error) {
	if client == nil {
		return nil, exception.NewConfigurationError("BonusItemWriter", "bonus client is required")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if out == nil {
		out = os.Stdout
	}
	return &BonusItemWriter{client: client, concurrency: concurrency, out: out, ec: model.NewExecutionContext()}, nil
}

func (w *BonusItemWriter) Open(ctx context.Context, ec model.ExecutionContext) error {
	w.highBonus, w.unavailable = 0, 0
	w.ec = model.NewExecutionContext()
	return nil
}

// Write implements port.ItemWriter. Only a cancelled context fails the chunk.
func (w *BonusItemWriter) Write(ctx context.Context, _ tx.Tx, items []*entity.Customer) error {
	sem := make(chan struct{}, w.concurrency)
	tasks := make([]*asynctask.Task[BonusResponse], len(items))
	for i, customer := range items {
		tasks[i] = asynctask.Start(ctx, func(ctx context.Context) (*BonusResponse, error) {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			defer func() { <-sem }()
			resp, err := w.client.GetBonus(ctx, customer)
			if err != nil {
				return nil, err
			}
			return &resp, nil
		})
	}

	for i, task := range tasks {
		resp, err := task.Result(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return exception.NewRemoteServiceError("BonusItemWriter", "bonus lookups cancelled", ctxErr)
		}
		if err != nil || resp == nil || resp.Code != http.StatusOK {
			w.unavailable++
			logger.Errorf("api server connection is not available: %v", unavailableError(items[i], resp, err))
			continue
		}
		if resp.Bonus > HighBonusThreshold {
			w.highBonus++
			fmt.Fprintf(w.out, "High-bonus customer: %s\n", items[i].Name)
		}
	}
	w.ec.Put("bonus.highBonus", w.highBonus)
	w.ec.Put("bonus.unavailable", w.unavailable)
	return nil
}

func unavailableError(customer *entity.Customer, resp *BonusResponse, err error) error {
	code := http.StatusServiceUnavailable
	if resp != nil {
		code = resp.Code
	}
	return exception.NewRemoteServiceError("BonusItemWriter", fmt.Sprintf("bonus of customer %d answered %d", customer.ID, code), err)
}

func (w *BonusItemWriter) Close(ctx context.Context) error {
	logger.Infof("BonusItemWriter: %d high-bonus customers, %d lookups unavailable.", w.highBonus, w.unavailable)
	return nil
}

// GetExecutionContext implements port.ExecutionContextAware.
func (w *BonusItemWriter) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return w.ec.Copy(), nil
}

var (
	_ port.ItemWriter[*entity.Customer] = (*BonusItemWriter)(nil)
	_ port.ExecutionContextAware        = (*BonusItemWriter)(nil)
)
