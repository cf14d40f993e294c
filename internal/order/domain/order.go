package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mesafacil/comanda/pkg/apperr"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses freeze the order: no field changes after them.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type OrderType string

const (
	TypeDineIn   OrderType = "DINE_IN"
	TypeTakeout  OrderType = "TAKEOUT"
	TypeDelivery OrderType = "DELIVERY"
)

// Line is one ordered item. Name and price are frozen at creation time;
// later catalog changes never alter an existing order.
type Line struct {
	ID             int64
	MenuItemID     int64
	ItemName       string
	Quantity       int
	PriceAtOrder   decimal.Decimal
	Notes          string
	IsSubstitution bool
	IsExtra        bool
}

type Order struct {
	ID           string
	RestaurantID string
	TableID      *string
	CustomerID   *string
	WaiterID     string
	Type         OrderType
	Status       Status
	TotalAmount  decimal.Decimal
	Notes        string
	Lines        []Line
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewOrder(restaurantID, waiterID string, typ OrderType, tableID, customerID *string, notes string, lines []Line) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		TableID:      tableID,
		CustomerID:   customerID,
		WaiterID:     waiterID,
		Type:         typ,
		Status:       StatusPending,
		Notes:        notes,
		Lines:        lines,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Transition moves the order to next. Any move between non-terminal states
// is allowed to keep kitchen workflows flexible; CANCELLED is reachable only
// through Cancel so stock reversal can never be skipped.
func (o *Order) Transition(next Status) error {
	if !next.Valid() {
		return apperr.New(apperr.CodeInvalidArgument, "unknown order status %q", next)
	}
	if next == StatusCancelled {
		return apperr.New(apperr.CodeInvalidTransition, "orders are cancelled through the cancellation flow")
	}
	if o.Status.Terminal() {
		return apperr.New(apperr.CodeInvalidTransition, "cannot change status of %s order", o.Status)
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel marks the order cancelled. Not idempotent: cancelling twice is an
// error so client bugs surface instead of silently passing.
func (o *Order) Cancel() error {
	if o.Status.Terminal() {
		return apperr.New(apperr.CodeInvalidTransition, "cannot cancel %s order", o.Status)
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return nil
}
