package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gemilang/stone-orders/internal/orders"
)

type EmployeeDirectory struct{ DB *DB }

func (d *EmployeeDirectory) GetEmployee(ctx context.Context, id int64) (*orders.Employee, error) {
	var e orders.Employee
	err := d.DB.q(ctx).QueryRow(ctx,
		`SELECT id, name, email, role FROM employees WHERE id=$1`, id,
	).Scan(&e.ID, &e.Name, &e.Email, &e.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}
