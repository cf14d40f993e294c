package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesafacil/comanda/internal/order/application"
	"github.com/mesafacil/comanda/internal/order/domain"
	"github.com/mesafacil/comanda/internal/platform/httpapi"
	"github.com/mesafacil/comanda/pkg/apperr"
	"github.com/mesafacil/comanda/pkg/pagination"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Post("/orders/batch", h.batchCreateOrders)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
}

type lineReq struct {
	MenuItemID     int64  `json:"menuItemId"`
	Quantity       int    `json:"quantity"`
	Notes          string `json:"notes"`
	IsSubstitution bool   `json:"isSubstitution"`
	IsExtra        bool   `json:"isExtra"`
}

type createOrderReq struct {
	Type       domain.OrderType `json:"type"`
	TableID    *string          `json:"tableId"`
	CustomerID *string          `json:"customerId"`
	WaiterID   string           `json:"waiterId"`
	Notes      string           `json:"notes"`
	Lines      []lineReq        `json:"lines"`
}

type lineResp struct {
	MenuItemID     int64  `json:"menuItemId"`
	ItemName       string `json:"itemName"`
	Quantity       int    `json:"quantity"`
	PriceAtOrder   string `json:"priceAtOrder"`
	Notes          string `json:"notes,omitempty"`
	IsSubstitution bool   `json:"isSubstitution"`
	IsExtra        bool   `json:"isExtra"`
}

type orderResp struct {
	ID          string           `json:"id"`
	TableID     *string          `json:"tableId,omitempty"`
	CustomerID  *string          `json:"customerId,omitempty"`
	WaiterID    string           `json:"waiterId"`
	Type        domain.OrderType `json:"type"`
	Status      domain.Status    `json:"status"`
	TotalAmount string           `json:"totalAmount"`
	Notes       string           `json:"notes,omitempty"`
	Lines       []lineResp       `json:"lines"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func toOrderResp(o *domain.Order) orderResp {
	resp := orderResp{
		ID:          o.ID,
		TableID:     o.TableID,
		CustomerID:  o.CustomerID,
		WaiterID:    o.WaiterID,
		Type:        o.Type,
		Status:      o.Status,
		TotalAmount: o.TotalAmount.String(),
		Notes:       o.Notes,
		Lines:       make([]lineResp, 0, len(o.Lines)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, lineResp{
			MenuItemID:     l.MenuItemID,
			ItemName:       l.ItemName,
			Quantity:       l.Quantity,
			PriceAtOrder:   l.PriceAtOrder.String(),
			Notes:          l.Notes,
			IsSubstitution: l.IsSubstitution,
			IsExtra:        l.IsExtra,
		})
	}
	return resp
}

func toLineRequests(lines []lineReq) []application.LineRequest {
	out := make([]application.LineRequest, 0, len(lines))
	for _, l := range lines {
		out = append(out, application.LineRequest{
			MenuItemID:     l.MenuItemID,
			Quantity:       l.Quantity,
			Notes:          l.Notes,
			IsSubstitution: l.IsSubstitution,
			IsExtra:        l.IsExtra,
		})
	}
	return out
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, err)
		return
	}
	waiterID, err := waiter(ctx, req.WaiterID)
	if err != nil {
		httpapi.Error(w, err)
		return
	}

	o, err := h.service.CreateOrder(ctx, httpapi.RestaurantID(ctx), waiterID, application.CreateOrderRequest{
		Type:       req.Type,
		TableID:    req.TableID,
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
		Lines:      toLineRequests(req.Lines),
	})
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, toOrderResp(o))
}

type batchCreateReq struct {
	TableID  string `json:"tableId"`
	WaiterID string `json:"waiterId"`
	Orders   []struct {
		Type       domain.OrderType `json:"type"`
		CustomerID *string          `json:"customerId"`
		Notes      string           `json:"notes"`
		Lines      []lineReq        `json:"lines"`
	} `json:"orders"`
}

func (h *Handler) batchCreateOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "BatchCreateOrders")
	defer span.End()

	var req batchCreateReq
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, err)
		return
	}
	waiterID, err := waiter(ctx, req.WaiterID)
	if err != nil {
		httpapi.Error(w, err)
		return
	}

	batch := application.BatchCreateRequest{TableID: req.TableID}
	for _, sub := range req.Orders {
		batch.Orders = append(batch.Orders, application.BatchOrderRequest{
			Type:       sub.Type,
			CustomerID: sub.CustomerID,
			Notes:      sub.Notes,
			Lines:      toLineRequests(sub.Lines),
		})
	}

	res, err := h.service.BatchCreateOrders(ctx, httpapi.RestaurantID(ctx), waiterID, batch)
	if err != nil {
		httpapi.Error(w, err)
		return
	}

	orders := make([]orderResp, 0, len(res.Orders))
	for _, o := range res.Orders {
		orders = append(orders, toOrderResp(o))
	}
	httpapi.JSON(w, http.StatusCreated, map[string]any{
		"orders":     orders,
		"tableTotal": res.TableTotal.String(),
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	o, err := h.service.CancelOrder(ctx, httpapi.RestaurantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toOrderResp(o))
}

type updateStatusReq struct {
	Status domain.Status `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req updateStatusReq
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, err)
		return
	}

	o, err := h.service.UpdateStatus(ctx, httpapi.RestaurantID(ctx), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toOrderResp(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, httpapi.RestaurantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toOrderResp(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	f, err := listFilter(r)
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := h.service.ListOrders(ctx, httpapi.RestaurantID(ctx), f, pagination.Params{Page: page, Limit: limit})
	if err != nil {
		httpapi.Error(w, err)
		return
	}

	out := pagination.Page[orderResp]{Data: []orderResp{}, Meta: res.Meta}
	for _, o := range res.Data {
		out.Data = append(out.Data, toOrderResp(o))
	}
	httpapi.JSON(w, http.StatusOK, out)
}

func listFilter(r *http.Request) (application.ListFilter, error) {
	var f application.ListFilter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		st := domain.Status(v)
		if !st.Valid() {
			return f, apperr.New(apperr.CodeInvalidArgument, "unknown status %q", v)
		}
		f.Status = &st
	}
	if v := q.Get("type"); v != "" {
		t := domain.OrderType(v)
		f.Type = &t
	}
	if v := q.Get("tableId"); v != "" {
		f.TableID = &v
	}
	if v := q.Get("waiterId"); v != "" {
		f.WaiterID = &v
	}
	if v := q.Get("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperr.New(apperr.CodeInvalidArgument, "date must be YYYY-MM-DD")
		}
		f.Date = &d
	}
	return f, nil
}

// waiter resolves the acting waiter from the body, falling back to the
// authenticated user header.
func waiter(ctx context.Context, bodyWaiter string) (string, error) {
	if bodyWaiter != "" {
		return bodyWaiter, nil
	}
	if id := httpapi.UserID(ctx); id != nil {
		return *id, nil
	}
	return "", apperr.New(apperr.CodeInvalidArgument, "waiter id is required")
}
