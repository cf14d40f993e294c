package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesafacil/comanda/pkg/apperr"
)

func tracked(name string, stock int) *Item {
	s := stock
	alert := 3
	return &Item{
		ID:            1,
		RestaurantID:  "rest-1",
		Name:          name,
		Price:         decimal.NewFromInt(5000),
		InventoryType: InventoryTracked,
		StockQuantity: &s,
		LowStockAlert: &alert,
		IsAvailable:   true,
	}
}

func unlimited(name string) *Item {
	return &Item{
		ID:            2,
		RestaurantID:  "rest-1",
		Name:          name,
		Price:         decimal.NewFromInt(2000),
		InventoryType: InventoryUnlimited,
		IsAvailable:   true,
	}
}

func TestOrderable(t *testing.T) {
	tests := []struct {
		name string
		item *Item
		want bool
	}{
		{"tracked with stock", tracked("Lomo", 4), true},
		{"tracked out of stock", tracked("Lomo", 0), false},
		{"unlimited", unlimited("Arroz"), true},
		{"disabled by staff", func() *Item { i := tracked("Lomo", 4); i.IsAvailable = false; return i }(), false},
		{"soft deleted", func() *Item { i := unlimited("Arroz"); i.Deleted = true; return i }(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Orderable())
		})
	}
}

func TestAdjustStockDeduct(t *testing.T) {
	it := tracked("Lomo", 10)
	orderID := "ord-1"

	adj, err := it.AdjustStock(-3, AdjustmentOrderDeduct, "order ord-1", nil, &orderID)
	require.NoError(t, err)

	assert.Equal(t, 7, it.Stock())
	assert.Equal(t, 10, adj.PreviousStock)
	assert.Equal(t, 7, adj.NewStock)
	assert.Equal(t, -3, adj.Quantity)
	assert.Equal(t, adj.NewStock, adj.PreviousStock+adj.Quantity)
	assert.True(t, it.IsAvailable)
}

func TestAdjustStockInsufficient(t *testing.T) {
	it := tracked("Lomo", 2)

	_, err := it.AdjustStock(-3, AdjustmentOrderDeduct, "", nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))
	// No partial mutation on failure.
	assert.Equal(t, 2, it.Stock())
}

func TestAdjustStockAutoMarkUnavailable(t *testing.T) {
	it := tracked("Lomo", 1)
	it.AutoMarkUnavailable = true

	_, err := it.AdjustStock(-1, AdjustmentOrderDeduct, "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, it.Stock())
	assert.False(t, it.IsAvailable)

	// Restoring stock does not re-enable the item; staff do that explicitly.
	_, err = it.AdjustStock(1, AdjustmentOrderCancelled, "", nil, nil)
	require.NoError(t, err)
	assert.False(t, it.IsAvailable)
}

func TestAdjustStockUnlimitedRejected(t *testing.T) {
	it := unlimited("Arroz")

	_, err := it.AdjustStock(5, AdjustmentManualAdd, "prep", nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInventoryType))
}

func TestResetStock(t *testing.T) {
	it := tracked("Lomo", 4)
	it.IsAvailable = false
	alert := 2

	adj, err := it.ResetStock(12, &alert)
	require.NoError(t, err)

	assert.Equal(t, 12, it.Stock())
	assert.Equal(t, 12, *it.InitialStock)
	assert.Equal(t, 2, *it.LowStockAlert)
	assert.True(t, it.IsAvailable)

	// Reset counts from zero regardless of the prior balance.
	assert.Equal(t, AdjustmentDailyReset, adj.Type)
	assert.Equal(t, 0, adj.PreviousStock)
	assert.Equal(t, 12, adj.NewStock)
	assert.Equal(t, 12, adj.Quantity)
}

func TestResetStockNegative(t *testing.T) {
	it := tracked("Lomo", 4)
	_, err := it.ResetStock(-1, nil)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestConvertInventoryType(t *testing.T) {
	t.Run("tracked to unlimited clears stock fields", func(t *testing.T) {
		it := tracked("Lomo", 4)
		require.NoError(t, it.ConvertInventoryType(InventoryUnlimited, nil))
		assert.Nil(t, it.StockQuantity)
		assert.Nil(t, it.InitialStock)
		assert.Nil(t, it.LowStockAlert)
	})

	t.Run("unlimited to tracked seeds defaults", func(t *testing.T) {
		it := unlimited("Arroz")
		require.NoError(t, it.ConvertInventoryType(InventoryTracked, nil))
		assert.Equal(t, 0, it.Stock())
		assert.Equal(t, 5, *it.LowStockAlert)
		assert.True(t, it.AutoMarkUnavailable)
	})
}

func TestLowOnStock(t *testing.T) {
	it := tracked("Lomo", 3)
	assert.True(t, it.LowOnStock())
	it = tracked("Lomo", 4)
	assert.False(t, it.LowOnStock())
	assert.False(t, unlimited("Arroz").LowOnStock())
}
