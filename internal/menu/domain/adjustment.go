package domain

import "time"

type AdjustmentType string

const (
	AdjustmentDailyReset     AdjustmentType = "DAILY_RESET"
	AdjustmentManualAdd      AdjustmentType = "MANUAL_ADD"
	AdjustmentManualRemove   AdjustmentType = "MANUAL_REMOVE"
	AdjustmentOrderDeduct    AdjustmentType = "ORDER_DEDUCT"
	AdjustmentOrderCancelled AdjustmentType = "ORDER_CANCELLED"
)

// StockAdjustment is an immutable audit record of one stock mutation,
// written in the same transaction as the mutation itself. Quantity is the
// signed delta, so new_stock = previous_stock + quantity for every record.
type StockAdjustment struct {
	ID            int64
	RestaurantID  string
	MenuItemID    int64
	Type          AdjustmentType
	PreviousStock int
	NewStock      int
	Quantity      int
	Reason        string
	UserID        *string
	OrderID       *string
	CreatedAt     time.Time
}
