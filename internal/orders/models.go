package orders

import "time"

type Stone struct {
	ID          int64
	Name        string
	Type        string
	Description string
	PriceCents  int64
	Stock       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID         int64
	CustomerID int64
	EmployeeID *int64 // nil = unassigned
	Status     Status // lihat status.go
	TotalCents int64
	OrderDate  time.Time
	Lines      []OrderLine
}

// OrderLine: unit price adalah snapshot saat order dibuat, immutable setelahnya.
type OrderLine struct {
	ID             int64
	OrderID        int64
	StoneID        int64
	Qty            int64
	UnitPriceCents int64
}

func (l OrderLine) SubtotalCents() int64 { return l.Qty * l.UnitPriceCents }

type CustomOrder struct {
	ID            int64
	CustomerID    int64
	StoneType     string
	Description   string
	SizeMM        int64
	Qty           int64
	Status        CustomStatus
	LinkedOrderID *int64 // set only on conversion
	CreatedAt     time.Time
}

// LineInput is what the caller sends: stone + qty. Harga diambil dari DB,
// jangan trust harga dari client.
type LineInput struct {
	StoneID int64 `json:"stone_id"`
	Qty     int64 `json:"qty"`
}

type CustomOrderInput struct {
	StoneType   string `json:"stone_type"`
	Description string `json:"description"`
	SizeMM      int64  `json:"size_mm"`
	Qty         int64  `json:"qty"`
}

// CustomerContact is the recipient of the order-completed notification.
type CustomerContact struct {
	ID    int64
	Name  string
	Email string
}

type Employee struct {
	ID    int64
	Name  string
	Email string
	Role  string
}
