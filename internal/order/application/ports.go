package application

import (
	"context"
	"time"

	menudomain "github.com/mesafacil/comanda/internal/menu/domain"
	"github.com/mesafacil/comanda/internal/order/domain"
	"github.com/mesafacil/comanda/pkg/pagination"
)

type OrderRepository interface {
	Insert(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, restaurantID, id string) (*domain.Order, error)
	GetForUpdate(ctx context.Context, restaurantID, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, restaurantID string, f ListFilter, p pagination.Params) ([]*domain.Order, int, error)
}

type ListFilter struct {
	Status   *domain.Status
	Type     *domain.OrderType
	TableID  *string
	WaiterID *string
	Date     *time.Time
}

// ItemCatalog resolves and row-locks menu items inside the current
// transaction. Ids missing from the result did not resolve in this tenant.
type ItemCatalog interface {
	LockItems(ctx context.Context, restaurantID string, ids []int64) (map[int64]*menudomain.Item, error)
}

// StockLedger is the order-path entry to stock mutation. Both calls are
// no-ops for unlimited items and must run inside the caller's transaction.
type StockLedger interface {
	DeductForOrder(ctx context.Context, restaurantID string, itemID int64, qty int, orderID string) error
	RestoreForOrder(ctx context.Context, restaurantID string, itemID int64, qty int, orderID string) error
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventAppender interface {
	Append(ctx context.Context, aggregateType, aggregateID, eventType string, payload []byte) error
}
