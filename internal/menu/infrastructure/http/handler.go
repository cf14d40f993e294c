package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesafacil/comanda/internal/menu/application"
	"github.com/mesafacil/comanda/internal/menu/domain"
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
		tracer:  otel.Tracer("menu-http"),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/items/{id}/stock/add", h.addStock)
	r.Post("/items/{id}/stock/remove", h.removeStock)
	r.Get("/items/{id}/stock/history", h.stockHistory)
	r.Put("/items/{id}/inventory-type", h.setInventoryType)
	r.Post("/stock/daily-reset", h.dailyReset)
	r.Get("/stock/low", h.lowStock)
	r.Get("/stock/out", h.outOfStock)
}

type stockChangeReq struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

type itemResp struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Price         string               `json:"price"`
	InventoryType domain.InventoryType `json:"inventoryType"`
	StockQuantity *int                 `json:"stockQuantity"`
	LowStockAlert *int                 `json:"lowStockAlert"`
	IsAvailable   bool                 `json:"isAvailable"`
}

func toItemResp(it *domain.Item) itemResp {
	return itemResp{
		ID:            it.ID,
		Name:          it.Name,
		Price:         it.Price.String(),
		InventoryType: it.InventoryType,
		StockQuantity: it.StockQuantity,
		LowStockAlert: it.LowStockAlert,
		IsAvailable:   it.IsAvailable,
	}
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddStock")
	defer span.End()

	id, err := itemID(r)
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	var req stockChangeReq
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, err)
		return
	}

	it, err := h.service.AddStock(ctx, httpapi.RestaurantID(ctx), id, req.Quantity, req.Reason, httpapi.UserID(ctx))
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toItemResp(it))
}

func (h *Handler) removeStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveStock")
	defer span.End()

	id, err := itemID(r)
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	var req stockChangeReq
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, err)
		return
	}

	it, err := h.service.RemoveStock(ctx, httpapi.RestaurantID(ctx), id, req.Quantity, req.Reason, httpapi.UserID(ctx))
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toItemResp(it))
}

type dailyResetReq struct {
	Items []struct {
		ItemID        int64 `json:"itemId"`
		Quantity      int   `json:"quantity"`
		LowStockAlert *int  `json:"lowStockAlert"`
	} `json:"items"`
}

func (h *Handler) dailyReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DailyStockReset")
	defer span.End()

	var req dailyResetReq
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, err)
		return
	}
	resets := make([]application.StockReset, 0, len(req.Items))
	for _, it := range req.Items {
		resets = append(resets, application.StockReset{
			ItemID:        it.ItemID,
			Quantity:      it.Quantity,
			LowStockAlert: it.LowStockAlert,
		})
	}

	if err := h.service.ResetDailyStock(ctx, httpapi.RestaurantID(ctx), resets); err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, map[string]int{"reset": len(resets)})
}

type inventoryTypeReq struct {
	InventoryType domain.InventoryType `json:"inventoryType"`
	LowStockAlert *int                 `json:"lowStockAlert"`
}

func (h *Handler) setInventoryType(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetInventoryType")
	defer span.End()

	id, err := itemID(r)
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	var req inventoryTypeReq
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, err)
		return
	}

	it, err := h.service.SetInventoryType(ctx, httpapi.RestaurantID(ctx), id, req.InventoryType, req.LowStockAlert)
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, toItemResp(it))
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LowStock")
	defer span.End()

	items, err := h.service.LowStock(ctx, httpapi.RestaurantID(ctx))
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, itemsResp(items))
}

func (h *Handler) outOfStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OutOfStock")
	defer span.End()

	items, err := h.service.OutOfStock(ctx, httpapi.RestaurantID(ctx))
	if err != nil {
		httpapi.Error(w, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, itemsResp(items))
}

func (h *Handler) stockHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "StockHistory")
	defer span.End()

	id, err := itemID(r)
	if err != nil {
		httpapi.Error(w, err)
		return
	}

	page, err := h.service.StockHistory(ctx, httpapi.RestaurantID(ctx), id, pageParams(r))
	if err != nil {
		httpapi.Error(w, err)
		return
	}

	out := pagination.Page[adjustmentResp]{Data: []adjustmentResp{}, Meta: page.Meta}
	for _, a := range page.Data {
		out.Data = append(out.Data, adjustmentResp{
			ID:            a.ID,
			Type:          a.Type,
			PreviousStock: a.PreviousStock,
			NewStock:      a.NewStock,
			Quantity:      a.Quantity,
			Reason:        a.Reason,
			UserID:        a.UserID,
			OrderID:       a.OrderID,
			CreatedAt:     a.CreatedAt,
		})
	}
	httpapi.JSON(w, http.StatusOK, out)
}

type adjustmentResp struct {
	ID            int64                 `json:"id"`
	Type          domain.AdjustmentType `json:"type"`
	PreviousStock int                   `json:"previousStock"`
	NewStock      int                   `json:"newStock"`
	Quantity      int                   `json:"quantity"`
	Reason        string                `json:"reason,omitempty"`
	UserID        *string               `json:"userId,omitempty"`
	OrderID       *string               `json:"orderId,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func itemsResp(items []*domain.Item) []itemResp {
	out := make([]itemResp, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResp(it))
	}
	return out
}

func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.CodeInvalidArgument, "invalid item id")
	}
	return id, nil
}

func pageParams(r *http.Request) pagination.Params {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return pagination.Params{Page: page, Limit: limit}
}
