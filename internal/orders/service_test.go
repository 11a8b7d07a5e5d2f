package orders_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gemilang/stone-orders/internal/memstore"
	"github.com/gemilang/stone-orders/internal/orders"
)

type notifierStub struct {
	mu    sync.Mutex
	calls []notifierCall
}

type notifierCall struct {
	OrderID int64
	Contact orders.CustomerContact
}

func (n *notifierStub) OrderCompleted(ctx context.Context, orderID int64, c orders.CustomerContact) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{OrderID: orderID, Contact: c})
}

func (n *notifierStub) Calls() []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifierCall(nil), n.calls...)
}

func setup(t *testing.T) (*memstore.Store, *orders.Service, *notifierStub) {
	t.Helper()
	store := memstore.New()
	n := &notifierStub{}
	svc := orders.NewService(store, store, store, store, n, nil)
	return store, svc, n
}

func TestCreateOrder_TotalsAndStock(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stoneA := store.SeedStone("Amethyst", "quartz", 1000, 10)
	stoneB := store.SeedStone("Beryl", "beryl", 2500, 5)

	orderID, err := svc.CreateOrder(ctx, cust, []orders.LineInput{
		{StoneID: stoneA, Qty: 3},
		{StoneID: stoneB, Qty: 1},
	}, nil)
	require.NoError(t, err)

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusPending, o.Status)
	require.Nil(t, o.EmployeeID)
	require.Equal(t, int64(5500), o.TotalCents)
	require.Len(t, o.Lines, 2)

	var sum int64
	for _, l := range o.Lines {
		sum += l.SubtotalCents()
	}
	require.Equal(t, o.TotalCents, sum)

	a, err := store.GetForUpdate(ctx, stoneA)
	require.NoError(t, err)
	require.Equal(t, int64(7), a.Stock)
	b, err := store.GetForUpdate(ctx, stoneB)
	require.NoError(t, err)
	require.Equal(t, int64(4), b.Stock)
}

func TestCreateOrder_WithEmployee(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stone := store.SeedStone("Amethyst", "quartz", 1000, 10)

	emp := int64(7)
	orderID, err := svc.CreateOrder(ctx, cust, []orders.LineInput{{StoneID: stone, Qty: 1}}, &emp)
	require.NoError(t, err)

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, o.EmployeeID)
	require.Equal(t, int64(7), *o.EmployeeID)
}

func TestCreateOrder_Validation(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stone := store.SeedStone("Amethyst", "quartz", 1000, 10)

	_, err := svc.CreateOrder(ctx, cust, nil, nil)
	require.ErrorIs(t, err, orders.ErrValidation)

	_, err = svc.CreateOrder(ctx, cust, []orders.LineInput{{StoneID: stone, Qty: 0}}, nil)
	require.ErrorIs(t, err, orders.ErrValidation)

	_, err = svc.CreateOrder(ctx, cust, []orders.LineInput{{StoneID: stone, Qty: -2}}, nil)
	require.ErrorIs(t, err, orders.ErrValidation)

	_, err = svc.CreateOrder(ctx, 0, []orders.LineInput{{StoneID: stone, Qty: 1}}, nil)
	require.ErrorIs(t, err, orders.ErrValidation)
}

func TestCreateOrder_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stoneA := store.SeedStone("Amethyst", "quartz", 1000, 10)
	stoneB := store.SeedStone("Beryl", "beryl", 2500, 2)

	// second line is short: the first stone's decrement must not stick
	_, err := svc.CreateOrder(ctx, cust, []orders.LineInput{
		{StoneID: stoneA, Qty: 5},
		{StoneID: stoneB, Qty: 3},
	}, nil)
	require.ErrorIs(t, err, orders.ErrInsufficientStock)

	var shortage *orders.StockShortageError
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, stoneB, shortage.StoneID)
	require.Equal(t, int64(3), shortage.Required)
	require.Equal(t, int64(2), shortage.Available)

	a, err := store.GetForUpdate(ctx, stoneA)
	require.NoError(t, err)
	require.Equal(t, int64(10), a.Stock)
	b, err := store.GetForUpdate(ctx, stoneB)
	require.NoError(t, err)
	require.Equal(t, int64(2), b.Stock)
}

func TestCreateOrder_UnknownStone(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")

	_, err := svc.CreateOrder(ctx, cust, []orders.LineInput{{StoneID: 99, Qty: 1}}, nil)
	require.ErrorIs(t, err, orders.ErrNotFound)
}

func TestCreateOrder_ConcurrentSameStone(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stone := store.SeedStone("Amethyst", "quartz", 1000, 10)

	const callers = 8
	const qty = 3 // combined demand 24 > 10: at most 3 can win

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(ctx, cust, []orders.LineInput{{StoneID: stone, Qty: qty}}, nil)
		}(i)
	}
	wg.Wait()

	var wins int64
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, orders.ErrInsufficientStock)
		}
	}
	require.Equal(t, int64(3), wins)

	st, err := store.GetForUpdate(ctx, stone)
	require.NoError(t, err)
	require.Equal(t, int64(10-3*wins), st.Stock)
	require.GreaterOrEqual(t, st.Stock, int64(0))
}

func TestCreateCustomerOrder_AlwaysUnassigned(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stone := store.SeedStone("Amethyst", "quartz", 1000, 10)

	orderID, err := svc.CreateCustomerOrder(ctx, cust, []orders.LineInput{{StoneID: stone, Qty: 2}})
	require.NoError(t, err)
	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Nil(t, o.EmployeeID)
}

func createOrder(t *testing.T, store *memstore.Store, svc *orders.Service) (custID, orderID int64) {
	t.Helper()
	ctx := context.Background()
	custID = store.SeedCustomer("Intan", "intan@example.com")
	stone := store.SeedStone("Amethyst", "quartz", 1000, 10)
	orderID, err := svc.CreateOrder(ctx, custID, []orders.LineInput{{StoneID: stone, Qty: 2}}, nil)
	require.NoError(t, err)
	return custID, orderID
}

func TestUpdateStatus_HappyPath(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	_, orderID := createOrder(t, store, svc)

	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusProcessing))
	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusCompleted))

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCompleted, o.Status)
}

func TestUpdateStatus_BackwardsRejected(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	_, orderID := createOrder(t, store, svc)

	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusProcessing))
	err := svc.UpdateStatus(ctx, orderID, orders.StatusPending)
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	require.NotErrorIs(t, err, orders.ErrOrderReadOnly)
}

func TestUpdateStatus_SameStatusRejected(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	_, orderID := createOrder(t, store, svc)

	err := svc.UpdateStatus(ctx, orderID, orders.StatusPending)
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
}

func TestUpdateStatus_TerminalStates(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	_, orderID := createOrder(t, store, svc)

	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusCompleted))
	err := svc.UpdateStatus(ctx, orderID, orders.StatusProcessing)
	require.ErrorIs(t, err, orders.ErrOrderReadOnly)

	store2, svc2, _ := setup(t)
	_, orderID2 := createOrder(t, store2, svc2)
	require.NoError(t, svc2.UpdateStatus(ctx, orderID2, orders.StatusCanceled))
	err = svc2.UpdateStatus(ctx, orderID2, orders.StatusCompleted)
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	require.NotErrorIs(t, err, orders.ErrOrderReadOnly)
}

func TestUpdateStatus_UnknownOrderAndStatus(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	_, orderID := createOrder(t, store, svc)

	require.ErrorIs(t, svc.UpdateStatus(ctx, 999, orders.StatusProcessing), orders.ErrNotFound)
	require.ErrorIs(t, svc.UpdateStatus(ctx, orderID, orders.Status("SHIPPED")), orders.ErrValidation)
}

// rivalFirstStore commits one rival transition right before the caller's own
// conditional update, so the caller's first attempt always loses.
type rivalFirstStore struct {
	*memstore.Store
	rivalFrom, rivalTo orders.Status
	once               sync.Once
}

func (r *rivalFirstStore) UpdateStatus(ctx context.Context, id int64, from, to orders.Status) (bool, error) {
	r.once.Do(func() {
		_, _ = r.Store.UpdateStatus(ctx, id, r.rivalFrom, r.rivalTo)
	})
	return r.Store.UpdateStatus(ctx, id, from, to)
}

func setupRival(t *testing.T, rivalTo orders.Status) (*memstore.Store, *orders.Service, *notifierStub, int64) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	rs := &rivalFirstStore{Store: store, rivalFrom: orders.StatusPending, rivalTo: rivalTo}
	n := &notifierStub{}
	svc := orders.NewService(rs, store, store, store, n, nil)

	cust := store.SeedCustomer("Intan", "intan@example.com")
	stone := store.SeedStone("Amethyst", "quartz", 1000, 10)
	orderID, err := svc.CreateOrder(ctx, cust, []orders.LineInput{{StoneID: stone, Qty: 1}}, nil)
	require.NoError(t, err)
	return store, svc, n, orderID
}

func TestUpdateStatus_LostRaceRetries(t *testing.T) {
	ctx := context.Background()
	store, svc, n, orderID := setupRival(t, orders.StatusProcessing)

	// a rival commits Pending -> Processing first; success must mean our own
	// Processing -> Completed write landed, with its notification
	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusCompleted))

	o, err := store.Get(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCompleted, o.Status)
	require.Len(t, n.Calls(), 1)
	require.Equal(t, orderID, n.Calls()[0].OrderID)
}

func TestUpdateStatus_LostRaceToTerminal(t *testing.T) {
	ctx := context.Background()
	store, svc, n, orderID := setupRival(t, orders.StatusCanceled)

	err := svc.UpdateStatus(ctx, orderID, orders.StatusCompleted)
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	require.Empty(t, n.Calls())

	o, err := store.Get(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCanceled, o.Status)
}

func TestUpdateStatus_CompletedNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	store, svc, notifier := setup(t)
	custID, orderID := createOrder(t, store, svc)

	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusCompleted))

	calls := notifier.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, orderID, calls[0].OrderID)
	require.Equal(t, custID, calls[0].Contact.ID)
	require.Equal(t, "intan@example.com", calls[0].Contact.Email)

	// second attempt on the frozen order must not dispatch again
	require.Error(t, svc.UpdateStatus(ctx, orderID, orders.StatusCompleted))
	require.Len(t, notifier.Calls(), 1)
}

func TestUpdateStatus_NoNotificationForOtherTransitions(t *testing.T) {
	ctx := context.Background()
	store, svc, notifier := setup(t)
	_, orderID := createOrder(t, store, svc)

	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusProcessing))
	require.Empty(t, notifier.Calls())
}

func TestAssignEmployee(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	_, orderID := createOrder(t, store, svc)

	require.NoError(t, svc.AssignEmployee(ctx, orderID, 5))
	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, int64(5), *o.EmployeeID)

	// reassignment allowed while not completed
	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusProcessing))
	require.NoError(t, svc.AssignEmployee(ctx, orderID, 8))
	o, err = svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, int64(8), *o.EmployeeID)

	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusCompleted))
	err = svc.AssignEmployee(ctx, orderID, 9)
	require.ErrorIs(t, err, orders.ErrOrderReadOnly)
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stoneA := store.SeedStone("Amethyst", "quartz", 1000, 10)
	stoneB := store.SeedStone("Beryl", "beryl", 2500, 5)

	orderID, err := svc.CreateOrder(ctx, cust, []orders.LineInput{
		{StoneID: stoneA, Qty: 4},
		{StoneID: stoneB, Qty: 2},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(ctx, orderID, cust))

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCanceled, o.Status)

	a, err := store.GetForUpdate(ctx, stoneA)
	require.NoError(t, err)
	require.Equal(t, int64(10), a.Stock)
	b, err := store.GetForUpdate(ctx, stoneB)
	require.NoError(t, err)
	require.Equal(t, int64(5), b.Stock)
}

func TestCancelOrder_WrongCustomer(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	_, orderID := createOrder(t, store, svc)

	err := svc.CancelOrder(ctx, orderID, 999)
	require.ErrorIs(t, err, orders.ErrNotOwner)

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusPending, o.Status)
}

func TestCancelOrder_OnlyPending(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	custID, orderID := createOrder(t, store, svc)

	require.NoError(t, svc.UpdateStatus(ctx, orderID, orders.StatusProcessing))
	err := svc.CancelOrder(ctx, orderID, custID)
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
}

func TestDeleteOrder_KeepsStock(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := setup(t)
	cust := store.SeedCustomer("Intan", "intan@example.com")
	stone := store.SeedStone("Amethyst", "quartz", 1000, 10)

	orderID, err := svc.CreateOrder(ctx, cust, []orders.LineInput{{StoneID: stone, Qty: 4}}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, orderID))
	_, err = svc.GetOrder(ctx, orderID)
	require.ErrorIs(t, err, orders.ErrNotFound)

	// deletion is a purge: stock untouched
	st, err := store.GetForUpdate(ctx, stone)
	require.NoError(t, err)
	require.Equal(t, int64(6), st.Stock)

	require.ErrorIs(t, svc.DeleteOrder(ctx, orderID), orders.ErrNotFound)
}
