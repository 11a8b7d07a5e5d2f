package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gemilang/stone-orders/internal/orders"
)

type CustomOrderStore struct{ DB *DB }

func (s *CustomOrderStore) Insert(ctx context.Context, co *orders.CustomOrder) error {
	err := s.DB.q(ctx).QueryRow(ctx, `
		INSERT INTO custom_orders(customer_id, stone_type, description, size_mm, qty, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		co.CustomerID, co.StoneType, co.Description, co.SizeMM, co.Qty, co.Status, co.CreatedAt,
	).Scan(&co.ID)
	if err != nil {
		return fmt.Errorf("insert custom order: %w", err)
	}
	return nil
}

func (s *CustomOrderStore) Get(ctx context.Context, id int64) (*orders.CustomOrder, error) {
	var co orders.CustomOrder
	err := s.DB.q(ctx).QueryRow(ctx, `
		SELECT id, customer_id, stone_type, description, size_mm, qty, status, linked_order_id, created_at
		FROM custom_orders WHERE id=$1`, id,
	).Scan(&co.ID, &co.CustomerID, &co.StoneType, &co.Description, &co.SizeMM, &co.Qty, &co.Status, &co.LinkedOrderID, &co.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get custom order: %w", err)
	}
	return &co, nil
}

func (s *CustomOrderStore) UpdateStatus(ctx context.Context, id int64, from, to orders.CustomStatus) (bool, error) {
	ct, err := s.DB.q(ctx).Exec(ctx,
		`UPDATE custom_orders SET status=$3 WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("update custom order status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// SetConverted only lands on non-terminal rows; the converted row keeps a
// permanent link to the new order and is never deleted.
func (s *CustomOrderStore) SetConverted(ctx context.Context, id, orderID int64) (bool, error) {
	ct, err := s.DB.q(ctx).Exec(ctx, `
		UPDATE custom_orders SET status=$2, linked_order_id=$3
		WHERE id=$1 AND status IN ($4, $5)`,
		id, orders.CustomConverted, orderID, orders.CustomPending, orders.CustomApproved)
	if err != nil {
		return false, fmt.Errorf("mark custom order converted: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
