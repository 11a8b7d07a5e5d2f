package orders

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CompletionNotifier is invoked fire-and-forget after a transition into
// Completed commits. Implementations must not block the caller.
type CompletionNotifier interface {
	OrderCompleted(ctx context.Context, orderID int64, c CustomerContact)
}

// Service is the order lifecycle engine: creation with stock decrement,
// the status state machine, cancellation with stock restore.
type Service struct {
	orders    OrderStore
	stones    StoneStore
	customers CustomerDirectory
	tx        TxManager
	notifier  CompletionNotifier
	log       *zap.Logger
}

func NewService(os OrderStore, ss StoneStore, cd CustomerDirectory, tx TxManager, n CompletionNotifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{orders: os, stones: ss, customers: cd, tx: tx, notifier: n, log: log}
}

// CreateOrder locks each stone, snapshots its price, decrements stock and
// inserts the order with its lines, all in one transaction. A shortage on any
// line aborts the whole thing.
func (s *Service) CreateOrder(ctx context.Context, customerID int64, lines []LineInput, employeeID *int64) (int64, error) {
	if customerID <= 0 {
		return 0, fmt.Errorf("%w: customer id required", ErrValidation)
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("%w: order needs at least one line", ErrValidation)
	}
	for _, in := range lines {
		if in.StoneID <= 0 || in.Qty <= 0 {
			return 0, fmt.Errorf("%w: line stone=%d qty=%d", ErrValidation, in.StoneID, in.Qty)
		}
	}

	var orderID int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o := &Order{
			CustomerID: customerID,
			EmployeeID: employeeID,
			Status:     StatusPending,
			OrderDate:  time.Now().UTC(),
		}
		for _, in := range lines {
			st, err := s.stones.GetForUpdate(ctx, in.StoneID)
			if err != nil {
				return err
			}
			if st.Stock < in.Qty {
				return &StockShortageError{StoneID: in.StoneID, Required: in.Qty, Available: st.Stock}
			}
			if err := s.stones.Decrement(ctx, in.StoneID, in.Qty); err != nil {
				return err
			}
			o.Lines = append(o.Lines, OrderLine{
				StoneID:        in.StoneID,
				Qty:            in.Qty,
				UnitPriceCents: st.PriceCents,
			})
			o.TotalCents += in.Qty * st.PriceCents
		}
		if err := s.orders.Insert(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID = o.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// CreateCustomerOrder: same contract, employee always unassigned.
func (s *Service) CreateCustomerOrder(ctx context.Context, customerID int64, lines []LineInput) (int64, error) {
	return s.CreateOrder(ctx, customerID, lines, nil)
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	return s.orders.Get(ctx, orderID)
}

// UpdateStatus enforces the transition table. The store update is conditional
// on the observed status, so two racing callers cannot both transition the
// same row; the loser re-reads and retries against the fresh status until its
// write lands or the transition is no longer legal. Success always means the
// caller's own write happened.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, to Status) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	for {
		o, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := checkTransition(o.Status, to); err != nil {
			return err
		}
		ok, err := s.orders.UpdateStatus(ctx, orderID, o.Status, to)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			// lost the race, status moved; the order only walks forward
			// through a finite table so this terminates
			continue
		}
		if to == StatusCompleted {
			s.dispatchCompleted(ctx, o)
		}
		return nil
	}
}

func checkTransition(from, to Status) error {
	if from == StatusCompleted {
		return ErrOrderReadOnly
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// dispatchCompleted runs after the status write committed. Failure here is
// logged only; the transition stands.
func (s *Service) dispatchCompleted(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}
	contact, err := s.customers.GetContact(ctx, o.CustomerID)
	if err != nil {
		s.log.Error("completion notification skipped: contact lookup failed",
			zap.Int64("order_id", o.ID),
			zap.Int64("customer_id", o.CustomerID),
			zap.Error(err))
		return
	}
	s.notifier.OrderCompleted(ctx, o.ID, *contact)
}

// CancelOrder is the customer-facing compensation: only the owner, only from
// Pending, and stock for every line is put back from the order's own lines.
func (s *Service) CancelOrder(ctx context.Context, orderID, requestingCustomerID int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if o.CustomerID != requestingCustomerID {
			return ErrNotOwner
		}
		if o.Status != StatusPending {
			return fmt.Errorf("%w: only pending orders can be canceled (current %s)", ErrInvalidTransition, o.Status)
		}
		ok, err := s.orders.UpdateStatus(ctx, orderID, StatusPending, StatusCanceled)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: order is no longer pending", ErrInvalidTransition)
		}
		for _, l := range o.Lines {
			if err := s.stones.Increment(ctx, l.StoneID, l.Qty); err != nil {
				return fmt.Errorf("restore stock for stone %d: %w", l.StoneID, err)
			}
		}
		return nil
	})
}

// AssignEmployee overwrites the assignment while the order is not completed;
// reassignment is allowed any number of times. The store write carries the
// not-completed condition itself, so a rival completion cannot slip in
// between a check and the update.
func (s *Service) AssignEmployee(ctx context.Context, orderID, employeeID int64) error {
	if employeeID <= 0 {
		return fmt.Errorf("%w: employee id required", ErrValidation)
	}
	return s.orders.AssignEmployee(ctx, orderID, employeeID)
}

// DeleteOrder is an administrative purge: order and lines are removed, stock
// is NOT restored. Cancellation owns the compensation path; deleting a
// canceled order must not restore twice.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.orders.Get(ctx, orderID); err != nil {
			return err
		}
		if err := s.orders.Delete(ctx, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}

func (s *Service) ListStones(ctx context.Context) ([]Stone, error) {
	return s.stones.List(ctx)
}
