package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/mesafacil/comanda/internal/menu/domain"
	platform "github.com/mesafacil/comanda/internal/platform/postgres"
	"github.com/mesafacil/comanda/pkg/apperr"
	"github.com/mesafacil/comanda/pkg/pagination"
)

type Repository struct {
	log *slog.Logger
	db  *platform.DB
}

func NewRepository(log *slog.Logger, db *platform.DB) *Repository {
	return &Repository{log: log, db: db}
}

const itemColumns = `id, restaurant_id, name, price, inventory_type, stock_quantity,
	initial_stock, low_stock_alert, auto_mark_unavailable, is_available, deleted, created_at, updated_at`

func (r *Repository) Get(ctx context.Context, restaurantID string, id int64) (*domain.Item, error) {
	return r.get(ctx, restaurantID, id, "")
}

func (r *Repository) GetForUpdate(ctx context.Context, restaurantID string, id int64) (*domain.Item, error) {
	return r.get(ctx, restaurantID, id, " FOR UPDATE")
}

func (r *Repository) get(ctx context.Context, restaurantID string, id int64, suffix string) (*domain.Item, error) {
	q := r.db.Querier(ctx)
	row := q.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items
		WHERE restaurant_id = $1 AND id = $2 AND NOT deleted`+suffix, restaurantID, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeItemNotFound, "menu item %d not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "query menu item", err)
	}
	return it, nil
}

// ListForUpdate locks rows in ascending id order so concurrent multi-item
// operations acquire locks in the same sequence.
func (r *Repository) ListForUpdate(ctx context.Context, restaurantID string, ids []int64) ([]*domain.Item, error) {
	q := r.db.Querier(ctx)
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM menu_items
		WHERE restaurant_id = $1 AND id = ANY($2) AND NOT deleted
		ORDER BY id
		FOR UPDATE`, restaurantID, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "lock menu items", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *Repository) SaveStock(ctx context.Context, it *domain.Item) error {
	q := r.db.Querier(ctx)
	_, err := q.Exec(ctx, `UPDATE menu_items
		SET inventory_type = $3, stock_quantity = $4, initial_stock = $5, low_stock_alert = $6,
		    auto_mark_unavailable = $7, is_available = $8, updated_at = now()
		WHERE restaurant_id = $1 AND id = $2`,
		it.RestaurantID, it.ID, it.InventoryType, it.StockQuantity, it.InitialStock,
		it.LowStockAlert, it.AutoMarkUnavailable, it.IsAvailable)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "save item stock", err)
	}
	return nil
}

func (r *Repository) AppendAdjustment(ctx context.Context, adj *domain.StockAdjustment) error {
	q := r.db.Querier(ctx)
	_, err := q.Exec(ctx, `INSERT INTO stock_adjustments
		(restaurant_id, menu_item_id, adjustment_type, previous_stock, new_stock, quantity, reason, user_id, order_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		adj.RestaurantID, adj.MenuItemID, adj.Type, adj.PreviousStock, adj.NewStock,
		adj.Quantity, adj.Reason, adj.UserID, adj.OrderID)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "append stock adjustment", err)
	}
	return nil
}

func (r *Repository) LowStock(ctx context.Context, restaurantID string) ([]*domain.Item, error) {
	q := r.db.Querier(ctx)
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM menu_items
		WHERE restaurant_id = $1 AND inventory_type = 'TRACKED' AND NOT deleted
		  AND stock_quantity <= low_stock_alert
		ORDER BY stock_quantity`, restaurantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "query low stock", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *Repository) OutOfStock(ctx context.Context, restaurantID string) ([]*domain.Item, error) {
	q := r.db.Querier(ctx)
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM menu_items
		WHERE restaurant_id = $1 AND inventory_type = 'TRACKED' AND NOT deleted
		  AND stock_quantity = 0
		ORDER BY name`, restaurantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "query out of stock", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *Repository) History(ctx context.Context, restaurantID string, itemID int64, p pagination.Params) ([]*domain.StockAdjustment, int, error) {
	q := r.db.Querier(ctx)

	var total int
	err := q.QueryRow(ctx, `SELECT count(*) FROM stock_adjustments
		WHERE restaurant_id = $1 AND menu_item_id = $2`, restaurantID, itemID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "count stock history", err)
	}

	rows, err := q.Query(ctx, `SELECT id, restaurant_id, menu_item_id, adjustment_type,
			previous_stock, new_stock, quantity, COALESCE(reason, ''), user_id, order_id, created_at
		FROM stock_adjustments
		WHERE restaurant_id = $1 AND menu_item_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`, restaurantID, itemID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "query stock history", err)
	}
	defer rows.Close()

	var adjs []*domain.StockAdjustment
	for rows.Next() {
		var a domain.StockAdjustment
		if err := rows.Scan(&a.ID, &a.RestaurantID, &a.MenuItemID, &a.Type, &a.PreviousStock,
			&a.NewStock, &a.Quantity, &a.Reason, &a.UserID, &a.OrderID, &a.CreatedAt); err != nil {
			return nil, 0, apperr.Wrap(apperr.CodeInternal, "scan stock adjustment", err)
		}
		adjs = append(adjs, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "read stock history", err)
	}
	return adjs, total, nil
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var it domain.Item
	err := row.Scan(&it.ID, &it.RestaurantID, &it.Name, &it.Price, &it.InventoryType,
		&it.StockQuantity, &it.InitialStock, &it.LowStockAlert, &it.AutoMarkUnavailable,
		&it.IsAvailable, &it.Deleted, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanItems(rows pgx.Rows) ([]*domain.Item, error) {
	var items []*domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "scan menu item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "read menu items", err)
	}
	return items, nil
}
