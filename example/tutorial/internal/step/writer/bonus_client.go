// Package writer holds the item writers specific to the tutorial jobs.
package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/domain/entity"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// BonusResponse is the answer of the bonus service. Code follows HTTP status codes.
type BonusResponse struct {
	Code  int `json:"code"`
	Bonus int `json:"bonus"`
}

// BonusClient looks up the bonus of a customer.
type BonusClient interface {
	GetBonus(ctx context.Context, customer *entity.Customer) (BonusResponse, error)
}

// StubBonusClient answers locally: 20000 for grade A customers, 10000 otherwise.
type StubBonusClient struct{}

func NewStubBonusClient() *StubBonusClient { return &StubBonusClient{} }

func (StubBonusClient) GetBonus(ctx context.Context, customer *entity.Customer) (BonusResponse, error) {
	if err := ctx.Err(); err != nil {
		return BonusResponse{}, err
	}
	bonus := 10000
	if customer.Grade == entity.GradeA {
		bonus = 20000
	}
	return BonusResponse{Code: http.StatusOK, Bonus: bonus}, nil
}

// bonusRequest is the JSON body posted to the bonus endpoint.
type bonusRequest struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Grade string `json:"grade"`
}

// HTTPBonusClient posts the customer to an HTTP endpoint and decodes the
// JSON answer. A non-2xx status is returned as the response code, not as an error.
type HTTPBonusClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPBonusClient creates a client for endpoint. Requests are traced
// through the global OpenTelemetry provider.
func NewHTTPBonusClient(endpoint string, timeout time.Duration) *HTTPBonusClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPBonusClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *HTTPBonusClient) GetBonus(ctx context.Context, customer *entity.Customer) (BonusResponse, error) {
	body, err := json.Marshal(bonusRequest{ID: customer.ID, Name: customer.Name, Age: customer.Age, Grade: string(customer.Grade)})
	if err != nil {
		return BonusResponse{}, exception.NewValidationError("bonus_client", "failed to encode bonus request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return BonusResponse{}, exception.NewConfigurationError("bonus_client", fmt.Sprintf("invalid bonus endpoint '%s': %v", c.endpoint, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return BonusResponse{}, exception.NewRemoteServiceError("bonus_client", "bonus request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return BonusResponse{Code: resp.StatusCode}, nil
	}
	var out BonusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return BonusResponse{}, exception.NewRemoteServiceError("bonus_client", "failed to decode bonus response", err)
	}
	if out.Code == 0 {
		out.Code = resp.StatusCode
	}
	return out, nil
}

var (
	_ BonusClient = (*StubBonusClient)(nil)
	_ BonusClient = (*HTTPBonusClient)(nil)
)
