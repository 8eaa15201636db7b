package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
	"github.com/pkordes/dumper-shop/backend/internal/handler"
)

// mockFeaturedServicer is a test double for handler.FeaturedServicer.
// Set only the method fields your test needs.
type mockFeaturedServicer struct {
	createSlot    func(ctx context.Context, position int) (domain.Slot, error)
	deleteSlot    func(ctx context.Context, id uuid.UUID) error
	listSlots     func(ctx context.Context) ([]domain.SlotOccupancy, error)
	linkProduct   func(ctx context.Context, productID string) (domain.Link, error)
	unlinkProduct func(ctx context.Context, productID string) (domain.Unlinked, error)
}

func (m *mockFeaturedServicer) CreateSlot(ctx context.Context, position int) (domain.Slot, error) {
	return m.createSlot(ctx, position)
}
func (m *mockFeaturedServicer) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return m.deleteSlot(ctx, id)
}
func (m *mockFeaturedServicer) ListSlots(ctx context.Context) ([]domain.SlotOccupancy, error) {
	return m.listSlots(ctx)
}
func (m *mockFeaturedServicer) LinkProduct(ctx context.Context, productID string) (domain.Link, error) {
	return m.linkProduct(ctx, productID)
}
func (m *mockFeaturedServicer) UnlinkProduct(ctx context.Context, productID string) (domain.Unlinked, error) {
	return m.unlinkProduct(ctx, productID)
}

// mockListingServicer is a test double for handler.ListingServicer.
type mockListingServicer struct {
	listFeatured      func(ctx context.Context) ([]domain.FeaturedProduct, error)
	listStoreFeatured func(ctx context.Context, rc *domain.RegionContext) ([]domain.FeaturedProduct, error)
}

func (m *mockListingServicer) ListFeatured(ctx context.Context) ([]domain.FeaturedProduct, error) {
	return m.listFeatured(ctx)
}
func (m *mockListingServicer) ListStoreFeatured(ctx context.Context, rc *domain.RegionContext) ([]domain.FeaturedProduct, error) {
	return m.listStoreFeatured(ctx, rc)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.FeaturedServicer = (*mockFeaturedServicer)(nil)
	_ handler.ListingServicer  = (*mockListingServicer)(nil)
)

// ---- helpers ---------------------------------------------------------------

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHTTPHandler wires a Server with the given mocks into the chi router.
// This mirrors how main.go wires it in production, minus the middleware.
func newHTTPHandler(f handler.FeaturedServicer, l handler.ListingServicer) http.Handler {
	return newHTTPHandlerWith(f, l, handler.RouterOptions{})
}

func newHTTPHandlerWith(f handler.FeaturedServicer, l handler.ListingServicer, opts handler.RouterOptions) http.Handler {
	return handler.NewRouter(handler.NewServer(f, l, quietLogger()), opts)
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func slotFixture(position int) domain.Slot {
	now := time.Now().UTC()
	return domain.Slot{ID: uuid.New(), Position: position, CreatedAt: now, UpdatedAt: now}
}

func productFixture(id string) domain.Product {
	return domain.Product{
		ID:        id,
		Title:     "Product " + id,
		Handle:    id,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Variants: []domain.Variant{{
			ID:        "var_" + id,
			ProductID: id,
			Title:     "Default",
			Prices:    []domain.Price{{CurrencyCode: "usd", Amount: 1999}},
		}},
	}
}
