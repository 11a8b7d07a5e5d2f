package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gemilang/stone-orders/internal/orders"
)

type StoneStore struct{ DB *DB }

func (s *StoneStore) GetStone(ctx context.Context, id int64) (*orders.Stone, error) {
	var st orders.Stone
	err := s.DB.q(ctx).QueryRow(ctx, `
		SELECT id, name, type, description, price_cents, stock, created_at, updated_at
		FROM stones WHERE id=$1`, id,
	).Scan(&st.ID, &st.Name, &st.Type, &st.Description, &st.PriceCents, &st.Stock, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stone: %w", err)
	}
	return &st, nil
}

// GetForUpdate locks the stone row for the ambient transaction so the
// read-check-decrement sequence is serialized per stone.
func (s *StoneStore) GetForUpdate(ctx context.Context, id int64) (*orders.Stone, error) {
	var st orders.Stone
	err := s.DB.q(ctx).QueryRow(ctx, `
		SELECT id, name, type, description, price_cents, stock, created_at, updated_at
		FROM stones WHERE id=$1 FOR UPDATE`, id,
	).Scan(&st.ID, &st.Name, &st.Type, &st.Description, &st.PriceCents, &st.Stock, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stone: %w", err)
	}
	return &st, nil
}

// Decrement is guarded in SQL: the update only lands when stock covers qty,
// so a losing concurrent caller sees the shortage instead of negative stock.
func (s *StoneStore) Decrement(ctx context.Context, id, qty int64) error {
	q := s.DB.q(ctx)
	ct, err := q.Exec(ctx, `
		UPDATE stones SET stock = stock - $2, updated_at = now()
		WHERE id=$1 AND stock >= $2`, id, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var avail int64
	err = q.QueryRow(ctx, `SELECT stock FROM stones WHERE id=$1`, id).Scan(&avail)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}
	return &orders.StockShortageError{StoneID: id, Required: qty, Available: avail}
}

func (s *StoneStore) Increment(ctx context.Context, id, qty int64) error {
	ct, err := s.DB.q(ctx).Exec(ctx, `
		UPDATE stones SET stock = stock + $2, updated_at = now()
		WHERE id=$1`, id, qty)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (s *StoneStore) List(ctx context.Context) ([]orders.Stone, error) {
	rows, err := s.DB.q(ctx).Query(ctx, `
		SELECT id, name, type, description, price_cents, stock, created_at, updated_at
		FROM stones ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stones: %w", err)
	}
	defer rows.Close()

	var out []orders.Stone
	for rows.Next() {
		var st orders.Stone
		if err := rows.Scan(&st.ID, &st.Name, &st.Type, &st.Description, &st.PriceCents, &st.Stock, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stone: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
