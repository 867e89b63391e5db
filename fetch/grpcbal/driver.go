package grpcbal

import (
	"bmon/fetch"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	driverName = "grpc"

	getBalanceMethod = "/bmon.BalanceService/GetBalance"
)

// Driver fetches the balance from a gRPC balance service.
type Driver struct{}

func (d *Driver) DisplayOrder() int {
	return 1
}

func (d *Driver) DisplayName() string {
	return "gRPC"
}

func (d *Driver) DisplayDescription() string {
	return "Fetch the balance from a gRPC balance service"
}

func (d *Driver) Open(addr string) (fetch.Service, error) {
	cc, err := grpc.Dial(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc: dial '%s': %w", addr, err)
	}

	return &Service{cc: cc}, nil
}

type Service struct {
	cc *grpc.ClientConn
}

type getBalanceRequest struct{}

type getBalanceResponse struct {
	Balance string    `json:"balance"`
	AsOf    time.Time `json:"as_of"`
}

func (s *Service) Fetch(ctx context.Context) (fetch.Balance, error) {
	var rsp getBalanceResponse
	err := s.cc.Invoke(ctx, getBalanceMethod, &getBalanceRequest{}, &rsp)
	if err != nil {
		return fetch.Balance{}, fmt.Errorf("grpc: get balance: %w", err)
	}

	value, err := decimal.NewFromString(rsp.Balance)
	if err != nil {
		return fetch.Balance{}, fmt.Errorf("grpc: parse balance '%s': %w", rsp.Balance, err)
	}

	asOf := rsp.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	return fetch.Balance{Value: value, AsOf: asOf}, nil
}

// IsTerminalError reports whether the service is unlikely to recover without
// reopening the connection.
func IsTerminalError(err error) bool {
	if st, ok := status.FromError(err); ok {
		if st.Code() == codes.Unknown {
			return true
		}
		if st.Code() == codes.Internal {
			return true
		}
		if st.Code() == codes.Unimplemented {
			return true
		}
	}
	return false
}

func (s *Service) Close() error {
	return s.cc.Close()
}

func init() {
	fetch.Register(driverName, &Driver{})
}
