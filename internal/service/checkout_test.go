package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"farmmarket/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory CheckoutStore. Each unit runs under the store
// mutex, so concurrent units serialize like conflicting transactions, and a
// snapshot taken at unit start is restored whenever the unit fails — the
// same all-or-nothing contract the sqlx store provides.
type memStore struct {
	mu       sync.Mutex
	products map[int64]*memProduct
	carts    map[int64][]models.CartLine
	orders   map[int64]models.Order
	lines    map[int64][]models.OrderLine

	nextOrderID int64
	nextLineID  int64

	failCreateOrder   bool
	failAddLineAt     int // fail the Nth AddOrderLine call, 0 disables
	failReserveAt     int // fail the Nth ReserveStock call, 0 disables
	failClearCart     bool
	failCommit        bool
	staleAvailability bool // make CheckoutLines over-report availability
}

type memProduct struct {
	name     string
	price    int64
	quantity int
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]*memProduct),
		carts:    make(map[int64][]models.CartLine),
		orders:   make(map[int64]models.Order),
		lines:    make(map[int64][]models.OrderLine),
	}
}

func (m *memStore) addProduct(id int64, name string, price int64, quantity int) {
	m.products[id] = &memProduct{name: name, price: price, quantity: quantity}
}

func (m *memStore) addCartLine(userID, productID int64, quantity int) {
	m.carts[userID] = append(m.carts[userID], models.CartLine{
		UserID: userID, ProductID: productID, Quantity: quantity,
	})
}

type memSnapshot struct {
	products    map[int64]*memProduct
	carts       map[int64][]models.CartLine
	orders      map[int64]models.Order
	lines       map[int64][]models.OrderLine
	nextOrderID int64
	nextLineID  int64
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		products:    make(map[int64]*memProduct, len(m.products)),
		carts:       make(map[int64][]models.CartLine, len(m.carts)),
		orders:      make(map[int64]models.Order, len(m.orders)),
		lines:       make(map[int64][]models.OrderLine, len(m.lines)),
		nextOrderID: m.nextOrderID,
		nextLineID:  m.nextLineID,
	}
	for id, p := range m.products {
		cp := *p
		s.products[id] = &cp
	}
	for id, c := range m.carts {
		s.carts[id] = append([]models.CartLine(nil), c...)
	}
	for id, o := range m.orders {
		s.orders[id] = o
	}
	for id, l := range m.lines {
		s.lines[id] = append([]models.OrderLine(nil), l...)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.products = s.products
	m.carts = s.carts
	m.orders = s.orders
	m.lines = s.lines
	m.nextOrderID = s.nextOrderID
	m.nextLineID = s.nextLineID
}

func (m *memStore) WithinCheckout(ctx context.Context, fn func(tx CheckoutTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.snapshot()
	tx := &memTx{store: m}

	if err := fn(tx); err != nil {
		m.restore(before)
		return err
	}
	if m.failCommit {
		m.restore(before)
		return fmt.Errorf("injected commit failure")
	}
	return nil
}

type memTx struct {
	store       *memStore
	addLineCall int
	reserveCall int
}

func (t *memTx) CheckoutLines(ctx context.Context, userID int64) ([]models.CheckoutLine, error) {
	var lines []models.CheckoutLine
	for _, c := range t.store.carts[userID] {
		p, ok := t.store.products[c.ProductID]
		if !ok {
			continue
		}
		available := p.quantity
		if t.store.staleAvailability {
			available = c.Quantity // just enough to slip past the pre-check
		}
		lines = append(lines, models.CheckoutLine{
			ProductID: c.ProductID,
			Name:      p.name,
			Quantity:  c.Quantity,
			UnitPrice: p.price,
			Available: available,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	if t.store.failCreateOrder {
		return fmt.Errorf("injected create-order failure")
	}
	t.store.nextOrderID++
	order.ID = t.store.nextOrderID
	t.store.orders[order.ID] = *order
	return nil
}

func (t *memTx) AddOrderLine(ctx context.Context, line *models.OrderLine) error {
	t.addLineCall++
	if t.store.failAddLineAt > 0 && t.addLineCall == t.store.failAddLineAt {
		return fmt.Errorf("injected add-line failure")
	}
	t.store.nextLineID++
	line.ID = t.store.nextLineID
	t.store.lines[line.OrderID] = append(t.store.lines[line.OrderID], *line)
	return nil
}

func (t *memTx) ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	t.reserveCall++
	if t.store.failReserveAt > 0 && t.reserveCall == t.store.failReserveAt {
		return false, fmt.Errorf("injected reserve failure")
	}
	p, ok := t.store.products[productID]
	if !ok {
		return false, nil
	}
	if p.quantity < quantity {
		return false, nil
	}
	p.quantity -= quantity
	return true, nil
}

func (t *memTx) ClearCart(ctx context.Context, userID int64) error {
	if t.store.failClearCart {
		return fmt.Errorf("injected clear-cart failure")
	}
	delete(t.store.carts, userID)
	return nil
}

// capturePublisher records published OrderPlaced events.
type capturePublisher struct {
	mu     sync.Mutex
	events []*models.OrderPlacedEvent
}

func (p *capturePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newTestCheckout(ms *memStore, events OrderEventPublisher) *CheckoutService {
	return &CheckoutService{
		store:  ms,
		events: events,
		logger: zap.NewNop(),
	}
}

func TestPlaceOrderTotalAndPriceSnapshots(t *testing.T) {
	ms := newMemStore()
	ms.addProduct(1, "apples", 1000, 10)
	ms.addProduct(2, "honey", 500, 5)
	ms.addCartLine(7, 1, 2)
	ms.addCartLine(7, 2, 3)

	pub := &capturePublisher{}
	svc := newTestCheckout(ms, pub)

	orderID, err := svc.PlaceOrder(context.Background(), 7)
	require.NoError(t, err)
	require.NotZero(t, orderID)

	order := ms.orders[orderID]
	assert.Equal(t, int64(2*1000+3*500), order.Total)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, int64(7), order.UserID)

	lines := ms.lines[orderID]
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1000), lines[0].UnitPrice)
	assert.Equal(t, int64(500), lines[1].UnitPrice)

	// Later price changes must not touch the recorded snapshots.
	ms.products[1].price = 9999
	assert.Equal(t, int64(1000), ms.lines[orderID][0].UnitPrice)

	assert.Equal(t, 8, ms.products[1].quantity)
	assert.Equal(t, 2, ms.products[2].quantity)
	assert.Empty(t, ms.carts[7])

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	assert.Equal(t, orderID, event.OrderID)
	require.Len(t, event.Items, 2)
	assert.Equal(t, 8, event.Items[0].Remaining)
	assert.Equal(t, 2, event.Items[1].Remaining)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	ms := newMemStore()
	ms.addProduct(1, "apples", 1000, 10)

	svc := newTestCheckout(ms, nil)

	_, err := svc.PlaceOrder(context.Background(), 7)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, ms.orders)
	assert.Equal(t, 10, ms.products[1].quantity)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ms := newMemStore()
	ms.addProduct(1, "apples", 1000, 10)
	ms.addProduct(2, "honey", 500, 5)
	ms.addCartLine(7, 1, 2)
	ms.addCartLine(7, 2, 6) // more than available

	pub := &capturePublisher{}
	svc := newTestCheckout(ms, pub)

	_, err := svc.PlaceOrder(context.Background(), 7)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)

	// The whole commit rolled back: no order, no decrement, cart intact.
	assert.Empty(t, ms.orders)
	assert.Equal(t, 10, ms.products[1].quantity)
	assert.Equal(t, 5, ms.products[2].quantity)
	assert.Len(t, ms.carts[7], 2)
	assert.Empty(t, pub.events)
}

func TestPlaceOrderAuthoritativeGuard(t *testing.T) {
	// The step-2 pre-check is an optimization; the decrement-time guard is
	// authoritative. Feed the pre-check a stale availability and make sure
	// the guard still aborts the whole commit.
	ms := newMemStore()
	ms.addProduct(1, "apples", 1000, 1)
	ms.addCartLine(7, 1, 2)
	ms.staleAvailability = true

	svc := newTestCheckout(ms, nil)

	_, err := svc.PlaceOrder(context.Background(), 7)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.ProductID)

	assert.Empty(t, ms.orders)
	assert.Empty(t, ms.lines)
	assert.Equal(t, 1, ms.products[1].quantity)
	assert.Len(t, ms.carts[7], 1)
}

func TestPlaceOrderAtomicityUnderFaults(t *testing.T) {
	cases := []struct {
		name   string
		inject func(ms *memStore)
	}{
		{"create order fails", func(ms *memStore) { ms.failCreateOrder = true }},
		{"first order line fails", func(ms *memStore) { ms.failAddLineAt = 1 }},
		{"second order line fails", func(ms *memStore) { ms.failAddLineAt = 2 }},
		{"stock decrement fails", func(ms *memStore) { ms.failReserveAt = 1 }},
		{"cart clear fails", func(ms *memStore) { ms.failClearCart = true }},
		{"commit fails", func(ms *memStore) { ms.failCommit = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ms := newMemStore()
			ms.addProduct(1, "apples", 1000, 10)
			ms.addProduct(2, "honey", 500, 5)
			ms.addCartLine(7, 1, 2)
			ms.addCartLine(7, 2, 3)
			tc.inject(ms)

			pub := &capturePublisher{}
			svc := newTestCheckout(ms, pub)

			_, err := svc.PlaceOrder(context.Background(), 7)

			var storeErr *StorageError
			require.ErrorAs(t, err, &storeErr)

			// No new order, no new lines, unchanged quantities, cart intact.
			assert.Empty(t, ms.orders)
			assert.Empty(t, ms.lines)
			assert.Equal(t, 10, ms.products[1].quantity)
			assert.Equal(t, 5, ms.products[2].quantity)
			assert.Len(t, ms.carts[7], 2)
			assert.Empty(t, pub.events)
		})
	}
}

func TestPlaceOrderCartClearedExactlyOnce(t *testing.T) {
	ms := newMemStore()
	ms.addProduct(1, "apples", 1000, 10)
	ms.addCartLine(7, 1, 2)

	svc := newTestCheckout(ms, nil)

	first, err := svc.PlaceOrder(context.Background(), 7)
	require.NoError(t, err)
	require.NotZero(t, first)
	assert.Empty(t, ms.carts[7])

	_, err = svc.PlaceOrder(context.Background(), 7)
	assert.ErrorIs(t, err, ErrEmptyCart)

	assert.Len(t, ms.orders, 1)
	assert.Equal(t, 8, ms.products[1].quantity)
}

func TestPlaceOrderLastUnitRace(t *testing.T) {
	ms := newMemStore()
	ms.addProduct(1, "apples", 1000, 1)
	ms.addCartLine(7, 1, 1)
	ms.addCartLine(8, 1, 1)

	svc := newTestCheckout(ms, nil)

	results := make(chan error, 2)
	for _, buyer := range []int64{7, 8} {
		go func(id int64) {
			_, err := svc.PlaceOrder(context.Background(), id)
			results <- err
		}(buyer)
	}

	var successes, stockFailures int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		default:
			var stockErr *InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
			stockFailures++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockFailures)
	assert.Equal(t, 0, ms.products[1].quantity)
	assert.Len(t, ms.orders, 1)
}

func TestPlaceOrderConcurrentConservation(t *testing.T) {
	const (
		initial   = 50
		buyers    = 20
		perBuyer  = 5
		productID = int64(1)
	)

	ms := newMemStore()
	ms.addProduct(productID, "apples", 1000, initial)
	for i := 0; i < buyers; i++ {
		ms.addCartLine(int64(100+i), productID, perBuyer)
	}

	svc := newTestCheckout(ms, nil)

	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), buyer)
			if err != nil {
				var stockErr *InsufficientStockError
				if !errors.As(err, &stockErr) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(int64(100 + i))
	}
	wg.Wait()

	remaining := ms.products[productID].quantity
	assert.GreaterOrEqual(t, remaining, 0)

	var committed int
	for _, lines := range ms.lines {
		for _, l := range lines {
			committed += l.Quantity
		}
	}
	assert.Equal(t, initial, committed+remaining)
	assert.Len(t, ms.orders, initial/perBuyer)
}
