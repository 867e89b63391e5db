package mock

import (
	"bmon/fetch"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const driverName = "mock"

// Driver produces a scripted balance source for testing and offline use.
type Driver struct{}

func (d *Driver) DisplayOrder() int {
	return 1000
}

func (d *Driver) DisplayName() string {
	return "Mock Source"
}

func (d *Driver) DisplayDescription() string {
	return "Connect to a mock balance source for testing"
}

func (d *Driver) Open(addr string) (fetch.Service, error) {
	return &Service{balance: decimal.New(10000, -2)}, nil
}

// Service returns a balance that grows by one cent per fetch. FailNext forces
// the next fetch to fail.
type Service struct {
	mu       sync.Mutex
	balance  decimal.Decimal
	failNext bool
	isClosed bool
}

func (s *Service) FailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *Service) Fetch(ctx context.Context) (fetch.Balance, error) {
	<-time.After(time.Millisecond * 2)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed {
		return fetch.Balance{}, fmt.Errorf("mock: service is closed")
	}
	if s.failNext {
		s.failNext = false
		return fetch.Balance{}, fmt.Errorf("mock: scripted failure")
	}

	s.balance = s.balance.Add(decimal.New(1, -2))
	return fetch.Balance{
		Value: s.balance,
		AsOf:  time.Now(),
	}, nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isClosed = true
	return nil
}

func init() {
	fetch.Register(driverName, &Driver{})
}
