// Package httpapi holds the request plumbing shared by every handler:
// tenant resolution, JSON rendering and the apperr-to-status mapping.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesafacil/comanda/pkg/apperr"
)

type ctxKey int

const (
	restaurantKey ctxKey = iota
	userKey
)

const (
	HeaderRestaurantID = "X-Restaurant-ID"
	HeaderUserID       = "X-User-ID"
)

// Tenant rejects requests without a restaurant id and stores it, plus the
// optional acting user, in the request context.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		restaurantID := r.Header.Get(HeaderRestaurantID)
		if restaurantID == "" {
			Error(w, apperr.New(apperr.CodeInvalidArgument, "missing %s header", HeaderRestaurantID))
			return
		}
		ctx := context.WithValue(r.Context(), restaurantKey, restaurantID)
		if userID := r.Header.Get(HeaderUserID); userID != "" {
			ctx = context.WithValue(ctx, userKey, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RestaurantID(ctx context.Context) string {
	id, _ := ctx.Value(restaurantKey).(string)
	return id
}

// UserID returns the acting user id, or nil when the header was absent.
func UserID(ctx context.Context) *string {
	if id, ok := ctx.Value(userKey).(string); ok {
		return &id
	}
	return nil
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, "invalid request body: %v", err)
	}
	return nil
}

type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// Error renders err with the status its code implies. Unknown errors are
// reported as internal without leaking their text.
func Error(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		JSON(w, http.StatusInternalServerError, errorBody{Code: apperr.CodeInternal, Message: "internal error"})
		return
	}
	JSON(w, statusOf(ae.Code), errorBody{Code: ae.Code, Message: ae.Message})
}

func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeItemNotFound, apperr.CodeOrderNotFound:
		return http.StatusNotFound
	case apperr.CodeInsufficientStock, apperr.CodeItemsNotAvailable,
		apperr.CodeInvalidTransition, apperr.CodeDuplicateRequest:
		return http.StatusConflict
	case apperr.CodeInvalidArgument, apperr.CodeInvalidInventoryType:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
