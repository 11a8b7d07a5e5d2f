package orders

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CustomOrderService handles the request/approval flow and the atomic
// conversion of a custom order into a real order.
type CustomOrderService struct {
	customs CustomOrderStore
	orders  OrderStore
	tx      TxManager
}

func NewCustomOrderService(cs CustomOrderStore, os OrderStore, tx TxManager) *CustomOrderService {
	return &CustomOrderService{customs: cs, orders: os, tx: tx}
}

// Submit files a customer request for a non-catalog stone. Starts Pending.
func (s *CustomOrderService) Submit(ctx context.Context, customerID int64, in CustomOrderInput) (int64, error) {
	if customerID <= 0 {
		return 0, fmt.Errorf("%w: customer id required", ErrValidation)
	}
	if strings.TrimSpace(in.StoneType) == "" {
		return 0, fmt.Errorf("%w: stone type required", ErrValidation)
	}
	if in.Qty <= 0 {
		return 0, fmt.Errorf("%w: qty must be positive", ErrValidation)
	}
	co := &CustomOrder{
		CustomerID:  customerID,
		StoneType:   in.StoneType,
		Description: in.Description,
		SizeMM:      in.SizeMM,
		Qty:         in.Qty,
		Status:      CustomPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.customs.Insert(ctx, co); err != nil {
		return 0, fmt.Errorf("insert custom order: %w", err)
	}
	return co.ID, nil
}

func (s *CustomOrderService) Get(ctx context.Context, id int64) (*CustomOrder, error) {
	return s.customs.Get(ctx, id)
}

// Approve: Pending -> Approved only.
func (s *CustomOrderService) Approve(ctx context.Context, id int64) error {
	return s.transition(ctx, id, CustomApproved)
}

// Reject: Pending -> Rejected only.
func (s *CustomOrderService) Reject(ctx context.Context, id int64) error {
	return s.transition(ctx, id, CustomRejected)
}

func (s *CustomOrderService) transition(ctx context.Context, id int64, to CustomStatus) error {
	co, err := s.customs.Get(ctx, id)
	if err != nil {
		return err
	}
	if co.Status != CustomPending {
		return fmt.Errorf("%w: custom order is %s", ErrInvalidTransition, co.Status)
	}
	ok, err := s.customs.UpdateStatus(ctx, id, CustomPending, to)
	if err != nil {
		return fmt.Errorf("update custom order status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: custom order is no longer pending", ErrInvalidTransition)
	}
	return nil
}

// Convert materializes a non-terminal custom order as an order shell: new
// order for the same customer with no lines, Pending, employee unassigned.
// The order insert and the Converted mark commit together or not at all.
func (s *CustomOrderService) Convert(ctx context.Context, id int64) (int64, error) {
	var orderID int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		co, err := s.customs.Get(ctx, id)
		if err != nil {
			return err
		}
		if co.Status == CustomConverted || co.Status == CustomRejected {
			return fmt.Errorf("%w: custom order is %s", ErrInvalidTransition, co.Status)
		}
		o := &Order{
			CustomerID: co.CustomerID,
			Status:     StatusPending,
			OrderDate:  time.Now().UTC(),
		}
		if err := s.orders.Insert(ctx, o); err != nil {
			return fmt.Errorf("insert order shell: %w", err)
		}
		ok, err := s.customs.SetConverted(ctx, id, o.ID)
		if err != nil {
			return fmt.Errorf("mark converted: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: custom order turned terminal", ErrInvalidTransition)
		}
		orderID = o.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}
