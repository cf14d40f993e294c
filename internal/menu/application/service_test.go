package application

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesafacil/comanda/internal/menu/domain"
	"github.com/mesafacil/comanda/pkg/apperr"
	"github.com/mesafacil/comanda/pkg/pagination"
)

const testRestaurant = "rest-1"

type memItems struct {
	items map[int64]*domain.Item
	adjs  []*domain.StockAdjustment
}

func newMemItems(items ...*domain.Item) *memItems {
	m := &memItems{items: map[int64]*domain.Item{}}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *memItems) Get(_ context.Context, restaurantID string, id int64) (*domain.Item, error) {
	it, ok := m.items[id]
	if !ok || it.RestaurantID != restaurantID || it.Deleted {
		return nil, apperr.New(apperr.CodeItemNotFound, "menu item %d not found", id)
	}
	return it, nil
}

func (m *memItems) GetForUpdate(ctx context.Context, restaurantID string, id int64) (*domain.Item, error) {
	return m.Get(ctx, restaurantID, id)
}

func (m *memItems) ListForUpdate(_ context.Context, restaurantID string, ids []int64) ([]*domain.Item, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	var out []*domain.Item
	for _, id := range sorted {
		if it, ok := m.items[id]; ok && it.RestaurantID == restaurantID && !it.Deleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memItems) SaveStock(context.Context, *domain.Item) error { return nil }

func (m *memItems) AppendAdjustment(_ context.Context, adj *domain.StockAdjustment) error {
	m.adjs = append(m.adjs, adj)
	return nil
}

func (m *memItems) LowStock(_ context.Context, restaurantID string) ([]*domain.Item, error) {
	var out []*domain.Item
	for _, it := range m.items {
		if it.RestaurantID == restaurantID && !it.Deleted && it.LowOnStock() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memItems) OutOfStock(_ context.Context, restaurantID string) ([]*domain.Item, error) {
	var out []*domain.Item
	for _, it := range m.items {
		if it.RestaurantID == restaurantID && !it.Deleted && it.Tracked() && it.Stock() == 0 {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memItems) History(_ context.Context, _ string, itemID int64, p pagination.Params) ([]*domain.StockAdjustment, int, error) {
	var all []*domain.StockAdjustment
	for i := len(m.adjs) - 1; i >= 0; i-- {
		if m.adjs[i].MenuItemID == itemID {
			all = append(all, m.adjs[i])
		}
	}
	total := len(all)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

type noopTx struct{}

func (noopTx) WithinTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memEvents struct {
	types []string
}

func (m *memEvents) Append(_ context.Context, _, _, eventType string, _ []byte) error {
	m.types = append(m.types, eventType)
	return nil
}

func trackedItem(id int64, name string, stock int) *domain.Item {
	s := stock
	alert := 3
	return &domain.Item{
		ID:            id,
		RestaurantID:  testRestaurant,
		Name:          name,
		Price:         decimal.NewFromInt(5000),
		InventoryType: domain.InventoryTracked,
		StockQuantity: &s,
		LowStockAlert: &alert,
		IsAvailable:   true,
	}
}

func unlimitedItem(id int64, name string) *domain.Item {
	return &domain.Item{
		ID:            id,
		RestaurantID:  testRestaurant,
		Name:          name,
		Price:         decimal.NewFromInt(1500),
		InventoryType: domain.InventoryUnlimited,
		IsAvailable:   true,
	}
}

func newTestService(items ...*domain.Item) (*Service, *memItems, *memEvents) {
	repo := newMemItems(items...)
	events := &memEvents{}
	svc := NewService(slog.New(slog.DiscardHandler), repo, noopTx{}, events)
	return svc, repo, events
}

func TestAddStock(t *testing.T) {
	it := trackedItem(1, "Lomo Saltado", 2)
	it.IsAvailable = false
	svc, repo, events := newTestService(it)

	user := "user-9"
	got, err := svc.AddStock(context.Background(), testRestaurant, 1, 5, "extra prep", &user)
	require.NoError(t, err)

	assert.Equal(t, 7, got.Stock())
	assert.True(t, got.IsAvailable, "manual add re-enables the item")
	require.Len(t, repo.adjs, 1)
	adj := repo.adjs[0]
	assert.Equal(t, domain.AdjustmentManualAdd, adj.Type)
	assert.Equal(t, 2, adj.PreviousStock)
	assert.Equal(t, 7, adj.NewStock)
	assert.Equal(t, 5, adj.Quantity)
	assert.Equal(t, &user, adj.UserID)
	assert.Equal(t, []string{domain.EventStockAdjusted}, events.types)
}

func TestAddStockValidation(t *testing.T) {
	svc, _, _ := newTestService(trackedItem(1, "Lomo", 2))

	_, err := svc.AddStock(context.Background(), testRestaurant, 1, 0, "x", nil)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))

	_, err = svc.AddStock(context.Background(), testRestaurant, 1, 3, "  ", nil)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestAddStockUnlimited(t *testing.T) {
	svc, repo, _ := newTestService(unlimitedItem(2, "Arroz"))

	_, err := svc.AddStock(context.Background(), testRestaurant, 2, 3, "prep", nil)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInventoryType))
	assert.Empty(t, repo.adjs)
}

func TestRemoveStockInsufficient(t *testing.T) {
	svc, repo, _ := newTestService(trackedItem(1, "Lomo", 2))

	_, err := svc.RemoveStock(context.Background(), testRestaurant, 1, 5, "spoilage", nil)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))
	assert.Empty(t, repo.adjs)
	assert.Equal(t, 2, repo.items[1].Stock())
}

func TestRemoveStock(t *testing.T) {
	svc, repo, _ := newTestService(trackedItem(1, "Lomo", 5))

	got, err := svc.RemoveStock(context.Background(), testRestaurant, 1, 2, "spoilage", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock())
	require.Len(t, repo.adjs, 1)
	assert.Equal(t, -2, repo.adjs[0].Quantity)
	assert.Equal(t, domain.AdjustmentManualRemove, repo.adjs[0].Type)
}

func TestResetDailyStock(t *testing.T) {
	a := trackedItem(1, "Lomo", 4)
	b := trackedItem(2, "Aji de Gallina", 0)
	b.IsAvailable = false
	svc, repo, events := newTestService(a, b)

	alert := 2
	err := svc.ResetDailyStock(context.Background(), testRestaurant, []StockReset{
		{ItemID: 1, Quantity: 10},
		{ItemID: 2, Quantity: 8, LowStockAlert: &alert},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, a.Stock())
	assert.Equal(t, 8, b.Stock())
	assert.True(t, b.IsAvailable, "reset forces availability back on")
	require.Len(t, repo.adjs, 2)
	for _, adj := range repo.adjs {
		assert.Equal(t, domain.AdjustmentDailyReset, adj.Type)
		assert.Equal(t, 0, adj.PreviousStock)
	}
	assert.Len(t, events.types, 2)
}

func TestResetDailyStockMissingItems(t *testing.T) {
	svc, _, _ := newTestService(trackedItem(1, "Lomo", 4))

	err := svc.ResetDailyStock(context.Background(), testRestaurant, []StockReset{
		{ItemID: 1, Quantity: 10},
		{ItemID: 99, Quantity: 5},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeItemNotFound))
	assert.Contains(t, err.Error(), "99")
}

func TestResetDailyStockUntracked(t *testing.T) {
	svc, repo, _ := newTestService(trackedItem(1, "Lomo", 4), unlimitedItem(2, "Arroz"))

	err := svc.ResetDailyStock(context.Background(), testRestaurant, []StockReset{
		{ItemID: 1, Quantity: 10},
		{ItemID: 2, Quantity: 5},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInventoryType))
	assert.Contains(t, err.Error(), "Arroz")
	assert.Empty(t, repo.adjs, "validation precedes any mutation")
}

func TestDeductAndRestoreForOrder(t *testing.T) {
	svc, repo, _ := newTestService(trackedItem(1, "Lomo", 10), unlimitedItem(2, "Arroz"))
	ctx := context.Background()

	require.NoError(t, svc.DeductForOrder(ctx, testRestaurant, 1, 3, "ord-1"))
	assert.Equal(t, 7, repo.items[1].Stock())

	// Unlimited items are inert on the order path.
	require.NoError(t, svc.DeductForOrder(ctx, testRestaurant, 2, 3, "ord-1"))

	require.NoError(t, svc.RestoreForOrder(ctx, testRestaurant, 1, 3, "ord-1"))
	assert.Equal(t, 10, repo.items[1].Stock())

	require.Len(t, repo.adjs, 2)
	assert.Equal(t, domain.AdjustmentOrderDeduct, repo.adjs[0].Type)
	assert.Equal(t, "ord-1", *repo.adjs[0].OrderID)
	assert.Equal(t, domain.AdjustmentOrderCancelled, repo.adjs[1].Type)
}

func TestStockHistory(t *testing.T) {
	svc, _, _ := newTestService(trackedItem(1, "Lomo", 10))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.DeductForOrder(ctx, testRestaurant, 1, 1, "ord-"+strconv.Itoa(i)))
	}

	page, err := svc.StockHistory(ctx, testRestaurant, 1, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Meta.Total)
	assert.Equal(t, 2, page.Meta.TotalPages)
	assert.True(t, page.Meta.HasNextPage)
	require.Len(t, page.Data, 2)
	// Most recent first.
	assert.True(t, strings.HasSuffix(*page.Data[0].OrderID, "2"))

	_, err = svc.StockHistory(ctx, testRestaurant, 42, pagination.Params{})
	assert.True(t, apperr.IsCode(err, apperr.CodeItemNotFound))
}

func TestSetInventoryType(t *testing.T) {
	svc, repo, _ := newTestService(trackedItem(1, "Lomo", 4))

	got, err := svc.SetInventoryType(context.Background(), testRestaurant, 1, domain.InventoryUnlimited, nil)
	require.NoError(t, err)
	assert.Nil(t, got.StockQuantity)

	got, err = svc.SetInventoryType(context.Background(), testRestaurant, 1, domain.InventoryTracked, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock())
	assert.True(t, got.AutoMarkUnavailable)
	assert.Empty(t, repo.adjs, "type conversion is not a ledger mutation")
}

func TestReadQueries(t *testing.T) {
	low := trackedItem(1, "Lomo", 2)
	out := trackedItem(2, "Causa", 0)
	fine := trackedItem(3, "Ceviche", 9)
	svc, _, _ := newTestService(low, out, fine, unlimitedItem(4, "Arroz"))
	ctx := context.Background()

	lows, err := svc.LowStock(ctx, testRestaurant)
	require.NoError(t, err)
	names := make([]string, 0, len(lows))
	for _, it := range lows {
		names = append(names, it.Name)
	}
	assert.ElementsMatch(t, []string{"Lomo", "Causa"}, names)

	outs, err := svc.OutOfStock(ctx, testRestaurant)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "Causa", outs[0].Name)
}
