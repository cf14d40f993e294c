package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/mesafacil/comanda/internal/menu/domain"
	"github.com/mesafacil/comanda/pkg/apperr"
	"github.com/mesafacil/comanda/pkg/pagination"
)

// Service is the stock ledger: the only writer of item stock fields.
// Every mutation appends one StockAdjustment and one outbox event in the
// same transaction.
type Service struct {
	log    *slog.Logger
	items  ItemRepository
	tx     TxManager
	events EventAppender
}

func NewService(log *slog.Logger, items ItemRepository, tx TxManager, events EventAppender) *Service {
	return &Service{log: log, items: items, tx: tx, events: events}
}

// AddStock adds portions prepared mid-day. Re-enables the item: fresh stock
// means it is sellable again.
func (s *Service) AddStock(ctx context.Context, restaurantID string, itemID int64, qty int, reason string, userID *string) (*domain.Item, error) {
	if err := validateManual(qty, reason); err != nil {
		return nil, err
	}
	var out *domain.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, err := s.items.GetForUpdate(ctx, restaurantID, itemID)
		if err != nil {
			return err
		}
		adj, err := it.AdjustStock(qty, domain.AdjustmentManualAdd, reason, userID, nil)
		if err != nil {
			return err
		}
		it.IsAvailable = true
		if err := s.record(ctx, it, adj); err != nil {
			return err
		}
		out = it
		return nil
	})
	return out, err
}

// RemoveStock handles waste, spoilage and corrections outside order flow.
func (s *Service) RemoveStock(ctx context.Context, restaurantID string, itemID int64, qty int, reason string, userID *string) (*domain.Item, error) {
	if err := validateManual(qty, reason); err != nil {
		return nil, err
	}
	var out *domain.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, err := s.items.GetForUpdate(ctx, restaurantID, itemID)
		if err != nil {
			return err
		}
		adj, err := it.AdjustStock(-qty, domain.AdjustmentManualRemove, reason, userID, nil)
		if err != nil {
			return err
		}
		if err := s.record(ctx, it, adj); err != nil {
			return err
		}
		out = it
		return nil
	})
	return out, err
}

type StockReset struct {
	ItemID        int64
	Quantity      int
	LowStockAlert *int
}

// ResetDailyStock sets opening quantities for the day in one transaction.
func (s *Service) ResetDailyStock(ctx context.Context, restaurantID string, resets []StockReset) error {
	if len(resets) == 0 {
		return apperr.New(apperr.CodeInvalidArgument, "no items to reset")
	}
	byID := make(map[int64]StockReset, len(resets))
	ids := make([]int64, 0, len(resets))
	for _, r := range resets {
		if r.Quantity < 0 {
			return apperr.New(apperr.CodeInvalidArgument, "stock quantities cannot be negative")
		}
		if _, dup := byID[r.ItemID]; !dup {
			ids = append(ids, r.ItemID)
		}
		byID[r.ItemID] = r
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		items, err := s.items.ListForUpdate(ctx, restaurantID, ids)
		if err != nil {
			return err
		}
		if err := checkResolved(ids, items); err != nil {
			return err
		}
		var untracked []string
		for _, it := range items {
			if !it.Tracked() {
				untracked = append(untracked, it.Name)
			}
		}
		if len(untracked) > 0 {
			return apperr.New(apperr.CodeInvalidInventoryType,
				"only TRACKED items can have stock reset: %s", strings.Join(untracked, ", "))
		}

		for _, it := range items {
			r := byID[it.ID]
			adj, err := it.ResetStock(r.Quantity, r.LowStockAlert)
			if err != nil {
				return err
			}
			if err := s.record(ctx, it, adj); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) SetInventoryType(ctx context.Context, restaurantID string, itemID int64, newType domain.InventoryType, lowStockAlert *int) (*domain.Item, error) {
	var out *domain.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, err := s.items.GetForUpdate(ctx, restaurantID, itemID)
		if err != nil {
			return err
		}
		if err := it.ConvertInventoryType(newType, lowStockAlert); err != nil {
			return err
		}
		if err := s.items.SaveStock(ctx, it); err != nil {
			return err
		}
		out = it
		return nil
	})
	return out, err
}

// LockItems resolves and row-locks items in ascending id order for the
// order orchestrator. Missing or cross-tenant ids are simply absent from
// the result; the caller decides how to report them.
func (s *Service) LockItems(ctx context.Context, restaurantID string, ids []int64) (map[int64]*domain.Item, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	items, err := s.items.ListForUpdate(ctx, restaurantID, sorted)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID, nil
}

// DeductForOrder removes ordered quantity from a tracked item's stock.
// Unlimited items pass through untouched; the orchestrator calls this for
// every line and the inventory policy decides.
func (s *Service) DeductForOrder(ctx context.Context, restaurantID string, itemID int64, qty int, orderID string) error {
	return s.orderAdjust(ctx, restaurantID, itemID, -qty, domain.AdjustmentOrderDeduct,
		fmt.Sprintf("order %s", orderID), orderID)
}

// RestoreForOrder puts cancelled quantity back. It never re-enables an item
// that depletion auto-disabled; staff do that explicitly.
func (s *Service) RestoreForOrder(ctx context.Context, restaurantID string, itemID int64, qty int, orderID string) error {
	return s.orderAdjust(ctx, restaurantID, itemID, qty, domain.AdjustmentOrderCancelled,
		fmt.Sprintf("order %s cancelled", orderID), orderID)
}

func (s *Service) orderAdjust(ctx context.Context, restaurantID string, itemID int64, delta int, typ domain.AdjustmentType, reason, orderID string) error {
	it, err := s.items.GetForUpdate(ctx, restaurantID, itemID)
	if err != nil {
		return err
	}
	if !it.Tracked() {
		return nil
	}
	adj, err := it.AdjustStock(delta, typ, reason, nil, &orderID)
	if err != nil {
		return err
	}
	return s.record(ctx, it, adj)
}

func (s *Service) LowStock(ctx context.Context, restaurantID string) ([]*domain.Item, error) {
	return s.items.LowStock(ctx, restaurantID)
}

func (s *Service) OutOfStock(ctx context.Context, restaurantID string) ([]*domain.Item, error) {
	return s.items.OutOfStock(ctx, restaurantID)
}

func (s *Service) StockHistory(ctx context.Context, restaurantID string, itemID int64, p pagination.Params) (pagination.Page[*domain.StockAdjustment], error) {
	p = p.Normalize()
	var page pagination.Page[*domain.StockAdjustment]
	if _, err := s.items.Get(ctx, restaurantID, itemID); err != nil {
		return page, err
	}
	adjs, total, err := s.items.History(ctx, restaurantID, itemID, p)
	if err != nil {
		return page, err
	}
	return pagination.NewPage(adjs, total, p), nil
}

func (s *Service) record(ctx context.Context, it *domain.Item, adj *domain.StockAdjustment) error {
	if err := s.items.SaveStock(ctx, it); err != nil {
		return err
	}
	if err := s.items.AppendAdjustment(ctx, adj); err != nil {
		return err
	}
	payload, err := json.Marshal(domain.NewStockAdjusted(it, adj))
	if err != nil {
		return err
	}
	return s.events.Append(ctx, "menu_item", strconv.FormatInt(it.ID, 10), domain.EventStockAdjusted, payload)
}

func validateManual(qty int, reason string) error {
	if qty <= 0 {
		return apperr.New(apperr.CodeInvalidArgument, "quantity must be positive")
	}
	if strings.TrimSpace(reason) == "" {
		return apperr.New(apperr.CodeInvalidArgument, "reason is required")
	}
	return nil
}

func checkResolved(ids []int64, items []*domain.Item) error {
	if len(items) == len(ids) {
		return nil
	}
	found := make(map[int64]bool, len(items))
	for _, it := range items {
		found[it.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}
	return apperr.New(apperr.CodeItemNotFound, "menu items not found: %s", strings.Join(missing, ", "))
}
