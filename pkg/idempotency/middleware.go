package idempotency

import (
	"context"
	"log/slog"
	"net/http"
)

const Header = "Idempotency-Key"

// Keeper is the store surface the middleware needs. Satisfied by *Store.
type Keeper interface {
	Key(tenantID, requestKey string) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Middleware rejects a request whose Idempotency-Key was already seen for
// the same tenant. The key is claimed before the handler runs, so two
// concurrent retries cannot both pass, and released again when the handler
// fails: a retry of a request that never created anything must succeed.
// Requests without the header pass through. A store outage fails open:
// accepting a rare duplicate beats refusing every order.
func Middleware(store Keeper, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqKey := r.Header.Get(Header)
			if reqKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := store.Key(r.Header.Get("X-Restaurant-ID"), reqKey)
			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				log.Warn("idempotency check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"code":"DUPLICATE_REQUEST","message":"request with this idempotency key was already processed"}`))
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusBadRequest {
				if err := store.Release(r.Context(), key); err != nil {
					log.Warn("idempotency release failed", "error", err)
				}
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
