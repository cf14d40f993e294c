package domain

const (
	EventOrderCreated   = "order.created"
	EventOrderCancelled = "order.cancelled"
)

type OrderCreated struct {
	OrderID      string             `json:"orderId"`
	RestaurantID string             `json:"restaurantId"`
	TableID      *string            `json:"tableId,omitempty"`
	Type         string             `json:"type"`
	TotalAmount  string             `json:"totalAmount"`
	Lines        []OrderCreatedLine `json:"lines"`
}

type OrderCreatedLine struct {
	MenuItemID int64  `json:"menuItemId"`
	ItemName   string `json:"itemName"`
	Quantity   int    `json:"quantity"`
	Price      string `json:"price"`
}

func NewOrderCreated(o *Order) OrderCreated {
	ev := OrderCreated{
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		TableID:      o.TableID,
		Type:         string(o.Type),
		TotalAmount:  o.TotalAmount.String(),
	}
	for _, l := range o.Lines {
		ev.Lines = append(ev.Lines, OrderCreatedLine{
			MenuItemID: l.MenuItemID,
			ItemName:   l.ItemName,
			Quantity:   l.Quantity,
			Price:      l.PriceAtOrder.String(),
		})
	}
	return ev
}

type OrderCancelled struct {
	OrderID      string `json:"orderId"`
	RestaurantID string `json:"restaurantId"`
	TotalAmount  string `json:"totalAmount"`
}

func NewOrderCancelled(o *Order) OrderCancelled {
	return OrderCancelled{
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		TotalAmount:  o.TotalAmount.String(),
	}
}
