package application

import (
	"context"

	"github.com/mesafacil/comanda/internal/menu/domain"
	"github.com/mesafacil/comanda/pkg/pagination"
)

type ItemRepository interface {
	Get(ctx context.Context, restaurantID string, id int64) (*domain.Item, error)
	// GetForUpdate reads the item under an exclusive row lock held by the
	// transaction carried in ctx.
	GetForUpdate(ctx context.Context, restaurantID string, id int64) (*domain.Item, error)
	// ListForUpdate locks the given items in ascending id order.
	ListForUpdate(ctx context.Context, restaurantID string, ids []int64) ([]*domain.Item, error)
	SaveStock(ctx context.Context, it *domain.Item) error
	AppendAdjustment(ctx context.Context, adj *domain.StockAdjustment) error
	LowStock(ctx context.Context, restaurantID string) ([]*domain.Item, error)
	OutOfStock(ctx context.Context, restaurantID string) ([]*domain.Item, error)
	History(ctx context.Context, restaurantID string, itemID int64, p pagination.Params) ([]*domain.StockAdjustment, int, error)
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventAppender interface {
	Append(ctx context.Context, aggregateType, aggregateID, eventType string, payload []byte) error
}
