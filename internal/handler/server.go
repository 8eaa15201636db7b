// Package handler implements the HTTP handlers for the featured-products API.
// All handlers are methods on Server. Methods are split into files by surface
// (health.go, admin.go, store.go) but share the Server struct so they can
// reach its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

// FeaturedServicer defines the mutating featured-product operations the admin
// handlers depend on. Defining the interface here (in the consumer package)
// lets handler tests inject a mock without touching the service layer.
type FeaturedServicer interface {
	CreateSlot(ctx context.Context, position int) (domain.Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	ListSlots(ctx context.Context) ([]domain.SlotOccupancy, error)
	LinkProduct(ctx context.Context, productID string) (domain.Link, error)
	UnlinkProduct(ctx context.Context, productID string) (domain.Unlinked, error)
}

// ListingServicer defines the read-side listing operations.
type ListingServicer interface {
	ListFeatured(ctx context.Context) ([]domain.FeaturedProduct, error)
	ListStoreFeatured(ctx context.Context, rc *domain.RegionContext) ([]domain.FeaturedProduct, error)
}

// Server holds the handler dependencies.
type Server struct {
	featured FeaturedServicer
	listing  ListingServicer
	validate *validator.Validate
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies. log may be nil.
func NewServer(featured FeaturedServicer, listing ListingServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{
		featured: featured,
		listing:  listing,
		validate: v,
		log:      log,
	}
}

// Middleware is the chi middleware signature.
type Middleware = func(http.Handler) http.Handler

// RouterOptions configures NewRouter. Every field is optional.
type RouterOptions struct {
	// Middleware wraps every route.
	Middleware []Middleware
	// Admin wraps /admin routes; production passes the JWT guard here.
	Admin []Middleware
	// Store wraps /store routes; production passes the rate limiter here.
	Store []Middleware
	// Metrics is served at GET /metrics when set.
	Metrics http.Handler
	// OpenAPI is served at GET /openapi.yaml when non-empty.
	OpenAPI []byte
}

// NewRouter mounts every endpoint of s on a chi router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(opts.Middleware...)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", s.GetHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if len(opts.OpenAPI) > 0 {
		doc := opts.OpenAPI
		r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(doc)
		})
	}

	r.Route("/admin/featured-products", func(r chi.Router) {
		r.Use(opts.Admin...)
		r.Get("/", s.ListFeatured)
		r.Post("/", s.CreateFeatured)
		r.Get("/slots", s.ListSlots)
		r.Post("/link-product", s.LinkProduct)
		r.Post("/unlink-product", s.UnlinkProduct)
		r.Delete("/{id}", s.DeleteFeatured)
	})

	r.Route("/store", func(r chi.Router) {
		r.Use(opts.Store...)
		r.Get("/featured-products", s.ListStoreFeatured)
	})

	return r
}
