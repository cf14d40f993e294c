package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	menudomain "github.com/mesafacil/comanda/internal/menu/domain"
	"github.com/mesafacil/comanda/internal/order/domain"
	"github.com/mesafacil/comanda/pkg/apperr"
	"github.com/mesafacil/comanda/pkg/pagination"
)

// Service coordinates validation, pricing, stock deduction and persistence
// as one atomic unit per operation. It is the only caller of the stock
// ledger on the order path.
type Service struct {
	log     *slog.Logger
	orders  OrderRepository
	catalog ItemCatalog
	ledger  StockLedger
	tx      TxManager
	events  EventAppender
}

func NewService(log *slog.Logger, orders OrderRepository, catalog ItemCatalog, ledger StockLedger, tx TxManager, events EventAppender) *Service {
	return &Service{log: log, orders: orders, catalog: catalog, ledger: ledger, tx: tx, events: events}
}

type LineRequest struct {
	MenuItemID     int64
	Quantity       int
	Notes          string
	IsSubstitution bool
	IsExtra        bool
}

type CreateOrderRequest struct {
	Type       domain.OrderType
	TableID    *string
	CustomerID *string
	Notes      string
	Lines      []LineRequest
}

func (s *Service) CreateOrder(ctx context.Context, restaurantID, waiterID string, req CreateOrderRequest) (*domain.Order, error) {
	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}

	var out *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		demand := demandByItem(req.Lines)
		items, err := s.lockAndCheck(ctx, restaurantID, demand)
		if err != nil {
			return err
		}

		o := domain.NewOrder(restaurantID, waiterID, orderType(req.Type), req.TableID, req.CustomerID, req.Notes, buildLines(req.Lines, items))
		o.TotalAmount = domain.SimpleTotal(o.Lines)

		if err := s.persistAndDeduct(ctx, restaurantID, o, items); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order created", "order_id", out.ID, "restaurant_id", restaurantID, "total", out.TotalAmount)
	return out, nil
}

type BatchOrderRequest struct {
	Type       domain.OrderType
	CustomerID *string
	Notes      string
	Lines      []LineRequest
}

type BatchCreateRequest struct {
	TableID string
	Orders  []BatchOrderRequest
}

type BatchResult struct {
	Orders     []*domain.Order
	TableTotal decimal.Decimal
}

// BatchCreateOrders creates all of a table's orders in one transaction.
// Stock sufficiency is checked against the table's combined demand, so a
// batch where each sub-order fits individually but the union does not is
// rejected as a whole.
func (s *Service) BatchCreateOrders(ctx context.Context, restaurantID, waiterID string, req BatchCreateRequest) (*BatchResult, error) {
	if strings.TrimSpace(req.TableID) == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "table id is required for batch orders")
	}
	if len(req.Orders) == 0 {
		return nil, apperr.New(apperr.CodeInvalidArgument, "batch contains no orders")
	}
	for _, sub := range req.Orders {
		if err := validateLines(sub.Lines); err != nil {
			return nil, err
		}
	}

	result := &BatchResult{TableTotal: decimal.Zero}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		demand := map[int64]int{}
		for _, sub := range req.Orders {
			for _, l := range sub.Lines {
				demand[l.MenuItemID] += l.Quantity
			}
		}
		items, err := s.lockAndCheck(ctx, restaurantID, demand)
		if err != nil {
			return err
		}

		tableID := req.TableID
		for _, sub := range req.Orders {
			o := domain.NewOrder(restaurantID, waiterID, orderType(sub.Type), &tableID, sub.CustomerID, sub.Notes, buildLines(sub.Lines, items))
			o.TotalAmount = domain.ComboTotal(o.Lines)

			if err := s.persistAndDeduct(ctx, restaurantID, o, items); err != nil {
				return err
			}
			result.Orders = append(result.Orders, o)
			result.TableTotal = result.TableTotal.Add(o.TotalAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("batch orders created", "table_id", req.TableID, "orders", len(result.Orders), "table_total", result.TableTotal)
	return result, nil
}

// CancelOrder reverses the order's ledger effects and moves it to its
// terminal cancelled state, all in one transaction.
func (s *Service) CancelOrder(ctx context.Context, restaurantID, orderID string) (*domain.Order, error) {
	var out *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, restaurantID, orderID)
		if err != nil {
			return err
		}
		if err := o.Cancel(); err != nil {
			return err
		}

		// Lock items in ascending id order before restoring per line.
		ids := make([]int64, 0, len(o.Lines))
		seen := map[int64]bool{}
		for _, l := range o.Lines {
			if !seen[l.MenuItemID] {
				seen[l.MenuItemID] = true
				ids = append(ids, l.MenuItemID)
			}
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		if _, err := s.catalog.LockItems(ctx, restaurantID, ids); err != nil {
			return err
		}
		for _, l := range o.Lines {
			if err := s.ledger.RestoreForOrder(ctx, restaurantID, l.MenuItemID, l.Quantity, o.ID); err != nil {
				return err
			}
		}

		if err := s.orders.UpdateStatus(ctx, o); err != nil {
			return err
		}
		if err := s.append(ctx, o, domain.EventOrderCancelled, domain.NewOrderCancelled(o)); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order cancelled", "order_id", orderID, "restaurant_id", restaurantID)
	return out, nil
}

func (s *Service) UpdateStatus(ctx context.Context, restaurantID, orderID string, next domain.Status) (*domain.Order, error) {
	var out *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, restaurantID, orderID)
		if err != nil {
			return err
		}
		if err := o.Transition(next); err != nil {
			return err
		}
		if err := s.orders.UpdateStatus(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetOrder(ctx context.Context, restaurantID, orderID string) (*domain.Order, error) {
	return s.orders.Get(ctx, restaurantID, orderID)
}

func (s *Service) ListOrders(ctx context.Context, restaurantID string, f ListFilter, p pagination.Params) (pagination.Page[*domain.Order], error) {
	p = p.Normalize()
	orders, total, err := s.orders.List(ctx, restaurantID, f, p)
	if err != nil {
		return pagination.Page[*domain.Order]{}, err
	}
	return pagination.NewPage(orders, total, p), nil
}

// lockAndCheck resolves and locks every demanded item, then runs the three
// pre-mutation gates: existence, availability, aggregate stock sufficiency.
func (s *Service) lockAndCheck(ctx context.Context, restaurantID string, demand map[int64]int) (map[int64]*menudomain.Item, error) {
	ids := make([]int64, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	items, err := s.catalog.LockItems(ctx, restaurantID, ids)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if _, ok := items[id]; !ok {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}
	if len(missing) > 0 {
		return nil, apperr.New(apperr.CodeItemNotFound, "menu items not found: %s", strings.Join(missing, ", "))
	}

	var unavailable []string
	for _, id := range ids {
		if !items[id].Orderable() {
			unavailable = append(unavailable, items[id].Name)
		}
	}
	if len(unavailable) > 0 {
		return nil, apperr.New(apperr.CodeItemsNotAvailable,
			"the following items are not available: %s", strings.Join(unavailable, ", "))
	}

	for _, id := range ids {
		it := items[id]
		if !it.CanFulfill(demand[id]) {
			return nil, apperr.New(apperr.CodeInsufficientStock,
				"insufficient stock for %s: available %d, requested %d", it.Name, it.Stock(), demand[id])
		}
	}
	return items, nil
}

// persistAndDeduct writes the order with its lines and deducts stock for
// each tracked line, stamping the order id on every adjustment.
func (s *Service) persistAndDeduct(ctx context.Context, restaurantID string, o *domain.Order, items map[int64]*menudomain.Item) error {
	if err := s.orders.Insert(ctx, o); err != nil {
		return err
	}
	for _, l := range o.Lines {
		if !items[l.MenuItemID].Tracked() {
			continue
		}
		if err := s.ledger.DeductForOrder(ctx, restaurantID, l.MenuItemID, l.Quantity, o.ID); err != nil {
			return err
		}
	}
	return s.append(ctx, o, domain.EventOrderCreated, domain.NewOrderCreated(o))
}

func (s *Service) append(ctx context.Context, o *domain.Order, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.events.Append(ctx, "order", o.ID, eventType, data)
}

func validateLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return apperr.New(apperr.CodeInvalidArgument, "order has no lines")
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return apperr.New(apperr.CodeInvalidArgument, "line quantity must be at least 1")
		}
	}
	return nil
}

func demandByItem(lines []LineRequest) map[int64]int {
	demand := make(map[int64]int, len(lines))
	for _, l := range lines {
		demand[l.MenuItemID] += l.Quantity
	}
	return demand
}

func buildLines(reqs []LineRequest, items map[int64]*menudomain.Item) []domain.Line {
	lines := make([]domain.Line, 0, len(reqs))
	for _, r := range reqs {
		it := items[r.MenuItemID]
		lines = append(lines, domain.Line{
			MenuItemID:     r.MenuItemID,
			ItemName:       it.Name,
			Quantity:       r.Quantity,
			PriceAtOrder:   it.Price,
			Notes:          r.Notes,
			IsSubstitution: r.IsSubstitution,
			IsExtra:        r.IsExtra,
		})
	}
	return lines
}

func orderType(t domain.OrderType) domain.OrderType {
	if t == "" {
		return domain.TypeDineIn
	}
	return t
}
