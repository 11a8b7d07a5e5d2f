package orders

import (
	"context"
	"fmt"
)

type LookupKind string

const (
	LookupOrder    LookupKind = "order"
	LookupEmployee LookupKind = "employee"
	LookupStone    LookupKind = "stone"
)

// LookupResult is a tagged union: Kind says which pointer is set, the other
// two are nil.
type LookupResult struct {
	Kind     LookupKind
	Order    *Order
	Employee *Employee
	Stone    *Stone
}

// LookupService is the admin quick-lookup: one entry point, three record
// kinds, dispatched by an explicit kind instead of inspecting the result.
type LookupService struct {
	orders    OrderStore
	stones    StoneStore
	employees EmployeeDirectory
}

func NewLookupService(os OrderStore, ss StoneStore, ed EmployeeDirectory) *LookupService {
	return &LookupService{orders: os, stones: ss, employees: ed}
}

func (s *LookupService) Lookup(ctx context.Context, kind LookupKind, id int64) (*LookupResult, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: bad id", ErrValidation)
	}
	switch kind {
	case LookupOrder:
		o, err := s.orders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &LookupResult{Kind: kind, Order: o}, nil
	case LookupEmployee:
		e, err := s.employees.GetEmployee(ctx, id)
		if err != nil {
			return nil, err
		}
		return &LookupResult{Kind: kind, Employee: e}, nil
	case LookupStone:
		st, err := s.stones.GetStone(ctx, id)
		if err != nil {
			return nil, err
		}
		return &LookupResult{Kind: kind, Stone: st}, nil
	default:
		return nil, fmt.Errorf("%w: unknown lookup kind %q", ErrValidation, kind)
	}
}
