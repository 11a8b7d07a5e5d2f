package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gemilang/stone-orders/internal/orders"
)

type CustomerDirectory struct{ DB *DB }

func (d *CustomerDirectory) GetContact(ctx context.Context, id int64) (*orders.CustomerContact, error) {
	var c orders.CustomerContact
	err := d.DB.q(ctx).QueryRow(ctx,
		`SELECT id, name, email FROM customers WHERE id=$1`, id,
	).Scan(&c.ID, &c.Name, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer contact: %w", err)
	}
	return &c, nil
}
