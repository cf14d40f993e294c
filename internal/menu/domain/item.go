package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesafacil/comanda/pkg/apperr"
)

type InventoryType string

const (
	InventoryTracked   InventoryType = "TRACKED"
	InventoryUnlimited InventoryType = "UNLIMITED"
)

// Item is a sellable menu unit. Stock fields are meaningful only for
// TRACKED items and are mutated exclusively through the methods below,
// under a row lock held by the surrounding transaction.
type Item struct {
	ID                  int64
	RestaurantID        string
	Name                string
	Price               decimal.Decimal
	InventoryType       InventoryType
	StockQuantity       *int
	InitialStock        *int
	LowStockAlert       *int
	AutoMarkUnavailable bool
	IsAvailable         bool
	Deleted             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (i *Item) Tracked() bool {
	return i.InventoryType == InventoryTracked
}

func (i *Item) Stock() int {
	if i.StockQuantity == nil {
		return 0
	}
	return *i.StockQuantity
}

// Orderable reports whether the item may appear on a new order.
func (i *Item) Orderable() bool {
	if !i.IsAvailable || i.Deleted {
		return false
	}
	return !i.Tracked() || i.Stock() > 0
}

// CanFulfill reports whether qty units can be deducted right now.
func (i *Item) CanFulfill(qty int) bool {
	return !i.Tracked() || i.Stock() >= qty
}

func (i *Item) LowOnStock() bool {
	return i.Tracked() && i.LowStockAlert != nil && i.Stock() <= *i.LowStockAlert
}

// AdjustStock applies a signed delta and returns the audit record for it.
// The record satisfies newStock == previousStock + quantity.
func (i *Item) AdjustStock(delta int, typ AdjustmentType, reason string, userID, orderID *string) (*StockAdjustment, error) {
	prev, next, err := i.inventory().applyDelta(i, delta)
	if err != nil {
		return nil, err
	}
	return &StockAdjustment{
		RestaurantID:  i.RestaurantID,
		MenuItemID:    i.ID,
		Type:          typ,
		PreviousStock: prev,
		NewStock:      next,
		Quantity:      delta,
		Reason:        reason,
		UserID:        userID,
		OrderID:       orderID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// ResetStock sets the day's opening quantity. The audit record counts from
// zero: a daily reset discards yesterday's balance.
func (i *Item) ResetStock(qty int, lowStockAlert *int) (*StockAdjustment, error) {
	if qty < 0 {
		return nil, apperr.New(apperr.CodeInvalidArgument, "stock quantity cannot be negative")
	}
	if err := i.inventory().reset(i, qty, lowStockAlert); err != nil {
		return nil, err
	}
	return &StockAdjustment{
		RestaurantID:  i.RestaurantID,
		MenuItemID:    i.ID,
		Type:          AdjustmentDailyReset,
		PreviousStock: 0,
		NewStock:      qty,
		Quantity:      qty,
		Reason:        "start of day",
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// ConvertInventoryType switches tracking mode. TRACKED -> UNLIMITED drops
// the stock fields; UNLIMITED -> TRACKED seeds an empty counter.
func (i *Item) ConvertInventoryType(newType InventoryType, lowStockAlert *int) error {
	switch newType {
	case InventoryTracked, InventoryUnlimited:
	default:
		return apperr.New(apperr.CodeInvalidArgument, "unknown inventory type %q", newType)
	}

	prev := i.InventoryType
	i.InventoryType = newType
	i.UpdatedAt = time.Now().UTC()

	switch {
	case prev == InventoryTracked && newType == InventoryUnlimited:
		i.StockQuantity = nil
		i.InitialStock = nil
		i.LowStockAlert = nil
	case prev == InventoryUnlimited && newType == InventoryTracked:
		zero := 0
		i.StockQuantity = &zero
		i.InitialStock = &zero
		i.AutoMarkUnavailable = true
		alert := defaultLowStockAlert
		if lowStockAlert != nil {
			alert = *lowStockAlert
		}
		i.LowStockAlert = &alert
	case newType == InventoryTracked && lowStockAlert != nil:
		i.LowStockAlert = lowStockAlert
	}
	return nil
}

const defaultLowStockAlert = 5

type inventoryPolicy interface {
	applyDelta(it *Item, delta int) (prev, next int, err error)
	reset(it *Item, qty int, lowStockAlert *int) error
}

func (i *Item) inventory() inventoryPolicy {
	if i.Tracked() {
		return trackedInventory{}
	}
	return unlimitedInventory{}
}

type trackedInventory struct{}

func (trackedInventory) applyDelta(it *Item, delta int) (int, int, error) {
	prev := it.Stock()
	next := prev + delta
	if next < 0 {
		return 0, 0, apperr.New(apperr.CodeInsufficientStock,
			"insufficient stock for %s: available %d, requested %d", it.Name, prev, -delta)
	}
	it.StockQuantity = &next
	if it.AutoMarkUnavailable && next == 0 {
		it.IsAvailable = false
	}
	it.UpdatedAt = time.Now().UTC()
	return prev, next, nil
}

func (trackedInventory) reset(it *Item, qty int, lowStockAlert *int) error {
	it.StockQuantity = &qty
	initial := qty
	it.InitialStock = &initial
	if lowStockAlert != nil {
		it.LowStockAlert = lowStockAlert
	}
	it.IsAvailable = true
	it.UpdatedAt = time.Now().UTC()
	return nil
}

type unlimitedInventory struct{}

func (unlimitedInventory) applyDelta(it *Item, _ int) (int, int, error) {
	return 0, 0, apperr.New(apperr.CodeInvalidInventoryType,
		"%s has unlimited inventory, stock operations require a TRACKED item", it.Name)
}

func (unlimitedInventory) reset(it *Item, _ int, _ *int) error {
	return apperr.New(apperr.CodeInvalidInventoryType,
		"%s has unlimited inventory, stock operations require a TRACKED item", it.Name)
}
