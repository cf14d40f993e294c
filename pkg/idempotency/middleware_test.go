package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKeeper struct {
	keys     map[string]bool
	seenErr  error
	released []string
}

func newMemKeeper() *memKeeper {
	return &memKeeper{keys: map[string]bool{}}
}

func (k *memKeeper) Key(tenantID, requestKey string) string {
	return fmt.Sprintf("idem:%s:%s", tenantID, requestKey)
}

func (k *memKeeper) Seen(_ context.Context, key string) (bool, error) {
	if k.seenErr != nil {
		return false, k.seenErr
	}
	if k.keys[key] {
		return true, nil
	}
	k.keys[key] = true
	return false, nil
}

func (k *memKeeper) Release(_ context.Context, key string) error {
	delete(k.keys, key)
	k.released = append(k.released, key)
	return nil
}

func serve(t *testing.T, keeper Keeper, status int, key string) *httptest.ResponseRecorder {
	t.Helper()
	h := Middleware(keeper, slog.New(slog.DiscardHandler))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("X-Restaurant-ID", "rest-1")
	if key != "" {
		req.Header.Set(Header, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewarePassthroughWithoutKey(t *testing.T) {
	keeper := newMemKeeper()
	rec := serve(t, keeper, http.StatusCreated, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, keeper.keys)
}

func TestMiddlewareRejectsReplayAfterSuccess(t *testing.T) {
	keeper := newMemKeeper()

	rec := serve(t, keeper, http.StatusCreated, "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, keeper, http.StatusCreated, "k-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_REQUEST")
}

func TestMiddlewareReleasesKeyOnFailure(t *testing.T) {
	keeper := newMemKeeper()

	// First attempt never created anything; its key must not be burned.
	rec := serve(t, keeper, http.StatusConflict, "k-1")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []string{"idem:rest-1:k-1"}, keeper.released)

	rec = serve(t, keeper, http.StatusCreated, "k-1")
	assert.Equal(t, http.StatusCreated, rec.Code, "retry after a failed attempt must go through")

	rec = serve(t, keeper, http.StatusCreated, "k-1")
	assert.Equal(t, http.StatusConflict, rec.Code, "retry after the successful attempt is a duplicate")
}

func TestMiddlewareReleasesKeyOnServerError(t *testing.T) {
	keeper := newMemKeeper()

	rec := serve(t, keeper, http.StatusInternalServerError, "k-1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, keeper, http.StatusCreated, "k-1")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMiddlewareFailsOpenOnStoreError(t *testing.T) {
	keeper := newMemKeeper()
	keeper.seenErr = assert.AnError

	rec := serve(t, keeper, http.StatusCreated, "k-1")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, keeper, http.StatusCreated, "k-1")
	assert.Equal(t, http.StatusCreated, rec.Code, "no rejection while the store is down")
}
