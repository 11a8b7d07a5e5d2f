package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gemilang/stone-orders/internal/orders"
)

type OrderStore struct{ DB *DB }

func (s *OrderStore) Insert(ctx context.Context, o *orders.Order) error {
	q := s.DB.q(ctx)
	err := q.QueryRow(ctx, `
		INSERT INTO orders(customer_id, employee_id, status, total_cents, order_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		o.CustomerID, o.EmployeeID, o.Status, o.TotalCents, o.OrderDate,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i := range o.Lines {
		l := &o.Lines[i]
		l.OrderID = o.ID
		err := q.QueryRow(ctx, `
			INSERT INTO order_lines(order_id, stone_id, qty, unit_price_cents)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			l.OrderID, l.StoneID, l.Qty, l.UnitPriceCents,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id int64) (*orders.Order, error) {
	q := s.DB.q(ctx)
	var o orders.Order
	err := q.QueryRow(ctx, `
		SELECT id, customer_id, employee_id, status, total_cents, order_date
		FROM orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.EmployeeID, &o.Status, &o.TotalCents, &o.OrderDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, stone_id, qty, unit_price_cents
		FROM order_lines WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l orders.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.StoneID, &l.Qty, &l.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	return &o, nil
}

// UpdateStatus is conditional on the current status so racing transitions
// cannot both touch the row.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, from, to orders.Status) (bool, error) {
	ct, err := s.DB.q(ctx).Exec(ctx,
		`UPDATE orders SET status=$3 WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// AssignEmployee is guarded in SQL so a completion landing concurrently can
// never gain an assignment afterwards.
func (s *OrderStore) AssignEmployee(ctx context.Context, id, employeeID int64) error {
	q := s.DB.q(ctx)
	ct, err := q.Exec(ctx,
		`UPDATE orders SET employee_id=$2 WHERE id=$1 AND status <> $3`,
		id, employeeID, orders.StatusCompleted)
	if err != nil {
		return fmt.Errorf("assign employee: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var st orders.Status
	err = q.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&st)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read order status: %w", err)
	}
	return orders.ErrOrderReadOnly
}

func (s *OrderStore) Delete(ctx context.Context, id int64) error {
	q := s.DB.q(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM order_lines WHERE order_id=$1`, id); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	ct, err := q.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}
