package domain

// EventStockAdjusted is emitted through the outbox for every committed
// ledger mutation.
const EventStockAdjusted = "stock.adjusted"

type StockAdjusted struct {
	RestaurantID  string  `json:"restaurantId"`
	ItemID        int64   `json:"itemId"`
	ItemName      string  `json:"itemName"`
	Type          string  `json:"type"`
	PreviousStock int     `json:"previousStock"`
	NewStock      int     `json:"newStock"`
	Quantity      int     `json:"quantity"`
	OrderID       *string `json:"orderId,omitempty"`
	LowStock      bool    `json:"lowStock"`
}

func NewStockAdjusted(it *Item, adj *StockAdjustment) StockAdjusted {
	return StockAdjusted{
		RestaurantID:  adj.RestaurantID,
		ItemID:        adj.MenuItemID,
		ItemName:      it.Name,
		Type:          string(adj.Type),
		PreviousStock: adj.PreviousStock,
		NewStock:      adj.NewStock,
		Quantity:      adj.Quantity,
		OrderID:       adj.OrderID,
		LowStock:      it.LowOnStock(),
	}
}
