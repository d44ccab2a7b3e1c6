package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/passportpix/passportpix/internal/domain"
)

var ErrOrderNotFound = errors.New("order not found")

type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: make(map[string]domain.Order),
	}
}

func (s *MemoryOrderStore) Create(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order
	return nil
}

func (s *MemoryOrderStore) Get(_ context.Context, orderID string) (domain.Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	return order, ok, nil
}

func (s *MemoryOrderStore) SetEmail(_ context.Context, orderID, email string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}

	order.Email = email
	order.UpdatedAt = time.Now().UTC()
	s.orders[orderID] = order
	return order, nil
}
