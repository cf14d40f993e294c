package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mesafacil/comanda/internal/order/application"
	"github.com/mesafacil/comanda/internal/order/domain"
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

const orderColumns = `id, restaurant_id, table_id, customer_id, waiter_id, type, status,
	total_amount, COALESCE(notes, ''), created_at, updated_at`

const lineColumns = `id, menu_item_id, item_name, quantity, price_at_order,
	COALESCE(notes, ''), is_substitution, is_extra`

func (r *Repository) Insert(ctx context.Context, o *domain.Order) error {
	q := r.db.Querier(ctx)
	_, err := q.Exec(ctx, `INSERT INTO orders
		(id, restaurant_id, table_id, customer_id, waiter_id, type, status, total_amount, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.RestaurantID, o.TableID, o.CustomerID, o.WaiterID, o.Type, o.Status,
		o.TotalAmount, o.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "insert order", err)
	}

	batch := &pgx.Batch{}
	for _, l := range o.Lines {
		batch.Queue(`INSERT INTO order_lines
			(order_id, menu_item_id, item_name, quantity, price_at_order, notes, is_substitution, is_extra)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			o.ID, l.MenuItemID, l.ItemName, l.Quantity, l.PriceAtOrder, l.Notes, l.IsSubstitution, l.IsExtra)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range o.Lines {
		if _, err := br.Exec(); err != nil {
			return apperr.Wrap(apperr.CodeInternal, "insert order line", err)
		}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, restaurantID, id string) (*domain.Order, error) {
	return r.get(ctx, restaurantID, id, "")
}

func (r *Repository) GetForUpdate(ctx context.Context, restaurantID, id string) (*domain.Order, error) {
	return r.get(ctx, restaurantID, id, " FOR UPDATE")
}

func (r *Repository) get(ctx context.Context, restaurantID, id, suffix string) (*domain.Order, error) {
	q := r.db.Querier(ctx)
	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE restaurant_id = $1 AND id = $2`+suffix, restaurantID, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeOrderNotFound, "order %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "query order", err)
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, o *domain.Order) error {
	q := r.db.Querier(ctx)
	tag, err := q.Exec(ctx, `UPDATE orders SET status = $3, updated_at = now()
		WHERE restaurant_id = $1 AND id = $2`, o.RestaurantID, o.ID, o.Status)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeOrderNotFound, "order %s not found", o.ID)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, restaurantID string, f application.ListFilter, p pagination.Params) ([]*domain.Order, int, error) {
	where := "restaurant_id = $1"
	args := []any{restaurantID}

	add := func(cond string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Type != nil {
		add("type = $%d", *f.Type)
	}
	if f.TableID != nil {
		add("table_id = $%d", *f.TableID)
	}
	if f.WaiterID != nil {
		add("waiter_id = $%d", *f.WaiterID)
	}
	if f.Date != nil {
		day := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
		add("created_at >= $%d", day)
		add("created_at < $%d", day.AddDate(0, 0, 1))
	}

	q := r.db.Querier(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "count orders", err)
	}

	args = append(args, p.Limit, p.Offset())
	rows, err := q.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "query orders", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.CodeInternal, "scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, "read orders", err)
	}

	for _, o := range orders {
		if err := r.loadLines(ctx, o); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

func (r *Repository) loadLines(ctx context.Context, o *domain.Order) error {
	q := r.db.Querier(ctx)
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM order_lines
		WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "query order lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.ID, &l.MenuItemID, &l.ItemName, &l.Quantity,
			&l.PriceAtOrder, &l.Notes, &l.IsSubstitution, &l.IsExtra); err != nil {
			return apperr.Wrap(apperr.CodeInternal, "scan order line", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "read order lines", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.RestaurantID, &o.TableID, &o.CustomerID, &o.WaiterID,
		&o.Type, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
