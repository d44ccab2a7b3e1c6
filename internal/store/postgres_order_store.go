package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/passportpix/passportpix/internal/domain"
)

const orderSchemaSQL = `
CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	photo_id TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	verified BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(ctx context.Context, dsn string) (*PostgresOrderStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresOrderStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresOrderStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, orderSchemaSQL); err != nil {
		return fmt.Errorf("ensure orders schema: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) Close() error {
	return s.db.Close()
}

func (s *PostgresOrderStore) Create(ctx context.Context, order domain.Order) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO orders (order_id, photo_id, email, verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (order_id) DO UPDATE
		 SET photo_id = EXCLUDED.photo_id, verified = EXCLUDED.verified, updated_at = EXCLUDED.updated_at`,
		order.OrderID,
		order.PhotoID,
		order.Email,
		order.Verified,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (s *PostgresOrderStore) Get(ctx context.Context, orderID string) (domain.Order, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT order_id, photo_id, email, verified, created_at, updated_at
		 FROM orders
		 WHERE order_id = $1`,
		orderID,
	)

	var order domain.Order
	if err := row.Scan(
		&order.OrderID,
		&order.PhotoID,
		&order.Email,
		&order.Verified,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, fmt.Errorf("query order: %w", err)
	}

	return order, true, nil
}

func (s *PostgresOrderStore) SetEmail(ctx context.Context, orderID, email string) (domain.Order, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE orders
		 SET email = $1, updated_at = $2
		 WHERE order_id = $3`,
		email,
		now,
		orderID,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order email: %w", err)
	}

	order, ok, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}

	return order, nil
}
