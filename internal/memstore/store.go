// Package memstore is an in-memory implementation of the order, custom-order
// and stone stores with transactional semantics: WithTransaction snapshots
// the state and restores it when the function fails. Used by tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gemilang/stone-orders/internal/orders"
)

type Store struct {
	mu           sync.RWMutex
	nextStoneID  int64
	nextOrderID  int64
	nextLineID   int64
	nextCustomID int64

	stones    map[int64]orders.Stone
	ords      map[int64]orders.Order
	customs   map[int64]orders.CustomOrder
	contacts  map[int64]orders.CustomerContact
	employees map[int64]orders.Employee

	// FailSetConverted makes the next SetConverted call fail with this error
	// (consumed once). Lets tests force a failure between the two writes of a
	// conversion.
	FailSetConverted error
}

func New() *Store {
	return &Store{
		nextStoneID:  1,
		nextOrderID:  1,
		nextLineID:   1,
		nextCustomID: 1,
		stones:       make(map[int64]orders.Stone),
		ords:         make(map[int64]orders.Order),
		customs:      make(map[int64]orders.CustomOrder),
		contacts:     make(map[int64]orders.CustomerContact),
		employees:    make(map[int64]orders.Employee),
	}
}

var (
	_ orders.OrderStore        = (*Store)(nil)
	_ orders.StoneStore        = (*Store)(nil)
	_ orders.CustomOrderStore  = (*CustomOrders)(nil)
	_ orders.CustomerDirectory = (*Store)(nil)
	_ orders.EmployeeDirectory = (*Store)(nil)
	_ orders.TxManager         = (*Store)(nil)
)

// transaction marker: inside WithTransaction the store lock is already held,
// individual methods must not re-lock.
type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (m *Store) rlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RLock()
	}
}
func (m *Store) runlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *Store) wlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Lock()
	}
}
func (m *Store) wunlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Unlock()
	}
}

// WithTransaction holds the write lock for the whole function and restores a
// snapshot if it fails, so callers observe commit-or-nothing.
func (m *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	nextStoneID, nextOrderID, nextLineID, nextCustomID int64

	stones    map[int64]orders.Stone
	ords      map[int64]orders.Order
	customs   map[int64]orders.CustomOrder
	contacts  map[int64]orders.CustomerContact
	employees map[int64]orders.Employee
}

func (m *Store) snapshot() snapshotState {
	s := snapshotState{
		nextStoneID:  m.nextStoneID,
		nextOrderID:  m.nextOrderID,
		nextLineID:   m.nextLineID,
		nextCustomID: m.nextCustomID,
		stones:       make(map[int64]orders.Stone, len(m.stones)),
		ords:         make(map[int64]orders.Order, len(m.ords)),
		customs:      make(map[int64]orders.CustomOrder, len(m.customs)),
		contacts:     make(map[int64]orders.CustomerContact, len(m.contacts)),
		employees:    make(map[int64]orders.Employee, len(m.employees)),
	}
	for k, v := range m.stones {
		s.stones[k] = v
	}
	for k, v := range m.ords {
		s.ords[k] = copyOrder(v)
	}
	for k, v := range m.customs {
		s.customs[k] = v
	}
	for k, v := range m.contacts {
		s.contacts[k] = v
	}
	for k, v := range m.employees {
		s.employees[k] = v
	}
	return s
}

func (m *Store) restore(s snapshotState) {
	m.nextStoneID = s.nextStoneID
	m.nextOrderID = s.nextOrderID
	m.nextLineID = s.nextLineID
	m.nextCustomID = s.nextCustomID
	m.stones = s.stones
	m.ords = s.ords
	m.customs = s.customs
	m.contacts = s.contacts
	m.employees = s.employees
}

func copyOrder(o orders.Order) orders.Order {
	cp := o
	cp.Lines = append([]orders.OrderLine(nil), o.Lines...)
	if o.EmployeeID != nil {
		id := *o.EmployeeID
		cp.EmployeeID = &id
	}
	return cp
}

// ---- seeding helpers for tests ----

func (m *Store) SeedStone(name, typ string, priceCents, stock int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextStoneID
	m.nextStoneID++
	now := time.Now().UTC()
	m.stones[id] = orders.Stone{
		ID: id, Name: name, Type: typ,
		PriceCents: priceCents, Stock: stock,
		CreatedAt: now, UpdatedAt: now,
	}
	return id
}

func (m *Store) SeedCustomer(name, email string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.contacts) + 1)
	m.contacts[id] = orders.CustomerContact{ID: id, Name: name, Email: email}
	return id
}

func (m *Store) SeedEmployee(name, email, role string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.employees) + 1)
	m.employees[id] = orders.Employee{ID: id, Name: name, Email: email, Role: role}
	return id
}

// ---- OrderStore ----

func (m *Store) Insert(ctx context.Context, o *orders.Order) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	o.ID = m.nextOrderID
	m.nextOrderID++
	for i := range o.Lines {
		o.Lines[i].ID = m.nextLineID
		m.nextLineID++
		o.Lines[i].OrderID = o.ID
	}
	m.ords[o.ID] = copyOrder(*o)
	return nil
}

func (m *Store) Get(ctx context.Context, id int64) (*orders.Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	o, ok := m.ords[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (m *Store) UpdateStatus(ctx context.Context, id int64, from, to orders.Status) (bool, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	o, ok := m.ords[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	m.ords[id] = o
	return true, nil
}

func (m *Store) AssignEmployee(ctx context.Context, id, employeeID int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	o, ok := m.ords[id]
	if !ok {
		return orders.ErrNotFound
	}
	if o.Status == orders.StatusCompleted {
		return orders.ErrOrderReadOnly
	}
	o.EmployeeID = &employeeID
	m.ords[id] = o
	return nil
}

func (m *Store) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.ords[id]; !ok {
		return orders.ErrNotFound
	}
	delete(m.ords, id)
	return nil
}

// ---- StoneStore ----

func (m *Store) GetStone(ctx context.Context, id int64) (*orders.Stone, error) {
	return m.GetForUpdate(ctx, id)
}

func (m *Store) GetForUpdate(ctx context.Context, id int64) (*orders.Stone, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	st, ok := m.stones[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := st
	return &cp, nil
}

func (m *Store) Decrement(ctx context.Context, id, qty int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	st, ok := m.stones[id]
	if !ok {
		return orders.ErrNotFound
	}
	if st.Stock < qty {
		return &orders.StockShortageError{StoneID: id, Required: qty, Available: st.Stock}
	}
	st.Stock -= qty
	st.UpdatedAt = time.Now().UTC()
	m.stones[id] = st
	return nil
}

func (m *Store) Increment(ctx context.Context, id, qty int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	st, ok := m.stones[id]
	if !ok {
		return orders.ErrNotFound
	}
	st.Stock += qty
	st.UpdatedAt = time.Now().UTC()
	m.stones[id] = st
	return nil
}

func (m *Store) List(ctx context.Context) ([]orders.Stone, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]orders.Stone, 0, len(m.stones))
	for _, st := range m.stones {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- CustomOrderStore ----

// CustomOrders is the custom-order view of the store; a separate type because
// the method set collides with OrderStore on the same receiver.
type CustomOrders struct{ s *Store }

func (m *Store) CustomOrders() *CustomOrders { return &CustomOrders{s: m} }

func (c *CustomOrders) Insert(ctx context.Context, co *orders.CustomOrder) error {
	m := c.s
	m.wlock(ctx)
	defer m.wunlock(ctx)
	co.ID = m.nextCustomID
	m.nextCustomID++
	m.customs[co.ID] = *co
	return nil
}

func (c *CustomOrders) Get(ctx context.Context, id int64) (*orders.CustomOrder, error) {
	m := c.s
	m.rlock(ctx)
	defer m.runlock(ctx)
	co, ok := m.customs[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := co
	if co.LinkedOrderID != nil {
		lid := *co.LinkedOrderID
		cp.LinkedOrderID = &lid
	}
	return &cp, nil
}

func (c *CustomOrders) UpdateStatus(ctx context.Context, id int64, from, to orders.CustomStatus) (bool, error) {
	m := c.s
	m.wlock(ctx)
	defer m.wunlock(ctx)
	co, ok := m.customs[id]
	if !ok || co.Status != from {
		return false, nil
	}
	co.Status = to
	m.customs[id] = co
	return true, nil
}

func (c *CustomOrders) SetConverted(ctx context.Context, id, orderID int64) (bool, error) {
	m := c.s
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if err := m.FailSetConverted; err != nil {
		m.FailSetConverted = nil
		return false, err
	}
	co, ok := m.customs[id]
	if !ok || co.Status == orders.CustomConverted || co.Status == orders.CustomRejected {
		return false, nil
	}
	co.Status = orders.CustomConverted
	co.LinkedOrderID = &orderID
	m.customs[id] = co
	return true, nil
}

// ---- CustomerDirectory ----

func (m *Store) GetContact(ctx context.Context, id int64) (*orders.CustomerContact, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	c, ok := m.contacts[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := c
	return &cp, nil
}

// ---- EmployeeDirectory ----

func (m *Store) GetEmployee(ctx context.Context, id int64) (*orders.Employee, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	e, ok := m.employees[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := e
	return &cp, nil
}
