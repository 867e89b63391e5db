package httpbal

import (
	"bmon/fetch"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const driverName = "http"

// Driver fetches the balance from an HTTP+JSON endpoint.
type Driver struct{}

func (d *Driver) DisplayOrder() int {
	return 0
}

func (d *Driver) DisplayName() string {
	return "HTTP"
}

func (d *Driver) DisplayDescription() string {
	return "Fetch the balance from an HTTP JSON endpoint"
}

func (d *Driver) Open(addr string) (fetch.Service, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("http: parse endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("http: unsupported scheme '%s'", u.Scheme)
	}

	return &Service{
		endpoint: u.String(),
		client:   &http.Client{},
	}, nil
}

type Service struct {
	endpoint string
	client   *http.Client
}

// wire shape of the balance endpoint response:
type balanceResponse struct {
	Balance string    `json:"balance"`
	AsOf    time.Time `json:"as_of"`
}

func (s *Service) Fetch(ctx context.Context) (fetch.Balance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return fetch.Balance{}, fmt.Errorf("http: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	rsp, err := s.client.Do(req)
	if err != nil {
		return fetch.Balance{}, fmt.Errorf("http: fetch balance: %w", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return fetch.Balance{}, fmt.Errorf("http: unexpected status %s", rsp.Status)
	}

	var body balanceResponse
	if err := json.NewDecoder(rsp.Body).Decode(&body); err != nil {
		return fetch.Balance{}, fmt.Errorf("http: decode balance response: %w", err)
	}

	value, err := decimal.NewFromString(body.Balance)
	if err != nil {
		return fetch.Balance{}, fmt.Errorf("http: parse balance '%s': %w", body.Balance, err)
	}

	asOf := body.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	return fetch.Balance{Value: value, AsOf: asOf}, nil
}

func (s *Service) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func init() {
	fetch.Register(driverName, &Driver{})
}
