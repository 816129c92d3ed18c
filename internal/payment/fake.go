package payment

import (
	"context"
	"fmt"
	"sync"
)

// FakeGateway records orders in memory. It backs local development when no gateway keys
// are configured and is used by tests.
type FakeGateway struct {
	Key string
	Err error

	mu     sync.Mutex
	seq    int
	Orders []GatewayOrder
}

func (f *FakeGateway) KeyID() string {
	if f.Key == "" {
		return "rzp_test_fake"
	}
	return f.Key
}

func (f *FakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	order := GatewayOrder{
		ID:       fmt.Sprintf("order_fake%06d", f.seq),
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	f.Orders = append(f.Orders, order)
	return &order, nil
}
