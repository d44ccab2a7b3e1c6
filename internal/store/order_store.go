package store

import (
	"context"

	"github.com/passportpix/passportpix/internal/domain"
)

type OrderStore interface {
	Create(ctx context.Context, order domain.Order) error
	Get(ctx context.Context, orderID string) (domain.Order, bool, error)
	SetEmail(ctx context.Context, orderID, email string) (domain.Order, error)
}
