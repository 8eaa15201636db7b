package handler

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

type storeFeaturedParams struct {
	RegionID     *string
	CurrencyCode *string
}

// ListStoreFeatured handles GET /store/featured-products.
// region_id and currency_code are optional. Prices are calculated only when
// both are supplied; otherwise the unpriced listing is served.
func (s *Server) ListStoreFeatured(w http.ResponseWriter, r *http.Request) {
	var params storeFeaturedParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "region_id", q, &params.RegionID); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid region_id")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "currency_code", q, &params.CurrencyCode); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid currency_code")
		return
	}

	var rc *domain.RegionContext
	if deref(params.RegionID) != "" && deref(params.CurrencyCode) != "" {
		rc = &domain.RegionContext{RegionID: *params.RegionID, CurrencyCode: *params.CurrencyCode}
	}

	featured, err := s.listing.ListStoreFeatured(r.Context(), rc)
	if err != nil {
		s.writeServiceError(w, r, err, "region not found")
		return
	}

	out := storeFeaturedListResponse{FeaturedProducts: make([]storeFeaturedResponse, len(featured))}
	for i, f := range featured {
		out.FeaturedProducts[i] = storeFeaturedResponse{ID: f.SlotID, Position: f.Position, Product: toStoreProduct(f.Product)}
	}
	writeJSON(w, http.StatusOK, out)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
