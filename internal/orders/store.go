package orders

import "context"

// OrderStore persists orders and their lines. Implementations must honor the
// transaction carried in ctx by TxManager.WithTransaction.
type OrderStore interface {
	// Insert writes the order and all its lines, assigning IDs.
	Insert(ctx context.Context, o *Order) error
	// Get returns the order with its lines, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Order, error)
	// UpdateStatus flips status only if the current status is still `from`.
	// Returns false (and no error) when the row was not in `from` anymore.
	UpdateStatus(ctx context.Context, id int64, from, to Status) (bool, error)
	// AssignEmployee overwrites the assignment unless the order is completed;
	// a completed order yields ErrOrderReadOnly.
	AssignEmployee(ctx context.Context, id, employeeID int64) error
	// Delete removes the order and its lines.
	Delete(ctx context.Context, id int64) error
}

type CustomOrderStore interface {
	Insert(ctx context.Context, co *CustomOrder) error
	Get(ctx context.Context, id int64) (*CustomOrder, error)
	// UpdateStatus is conditional like OrderStore.UpdateStatus.
	UpdateStatus(ctx context.Context, id int64, from, to CustomStatus) (bool, error)
	// SetConverted marks the row Converted and links the new order. Returns
	// false when the row was already terminal.
	SetConverted(ctx context.Context, id, orderID int64) (bool, error)
}

// StoneStore is the inventory ledger. Decrement/Increment are read-modify-write
// against the stored quantity; implementations must serialize per row so two
// racing decrements cannot drive stock negative.
type StoneStore interface {
	// GetStone is a plain read, no lock.
	GetStone(ctx context.Context, id int64) (*Stone, error)
	// GetForUpdate locks the stone row for the current transaction.
	GetForUpdate(ctx context.Context, id int64) (*Stone, error)
	// Decrement fails with *StockShortageError when stock < qty.
	Decrement(ctx context.Context, id, qty int64) error
	Increment(ctx context.Context, id, qty int64) error
	List(ctx context.Context) ([]Stone, error)
}

// CustomerDirectory resolves notification recipients.
type CustomerDirectory interface {
	GetContact(ctx context.Context, id int64) (*CustomerContact, error)
}

type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
}

// TxManager scopes a transaction: everything fn writes through the stores is
// committed iff fn returns nil, rolled back on any other exit path.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
