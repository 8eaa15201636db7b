package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

// ListFeatured handles GET /admin/featured-products.
func (s *Server) ListFeatured(w http.ResponseWriter, r *http.Request) {
	featured, err := s.listing.ListFeatured(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "featured products not found")
		return
	}

	out := featuredListResponse{FeaturedProducts: make([]featuredResponse, len(featured))}
	for i, f := range featured {
		out.FeaturedProducts[i] = featuredResponse{ID: f.SlotID, Product: toProduct(f.Product), Position: f.Position}
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateFeatured handles POST /admin/featured-products.
func (s *Server) CreateFeatured(w http.ResponseWriter, r *http.Request) {
	var req createFeaturedRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	slot, err := s.featured.CreateSlot(r.Context(), *req.Position)
	if err != nil {
		s.writeServiceError(w, r, err, "featured product not found")
		return
	}
	writeJSON(w, http.StatusOK, slotEnvelope{FeaturedProduct: slot})
}

// ListSlots handles GET /admin/featured-products/slots.
// Free slots carry product_id null.
func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.featured.ListSlots(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "featured products not found")
		return
	}

	out := slotListResponse{Slots: make([]slotOccupancyResponse, len(slots))}
	for i, o := range slots {
		out.Slots[i] = toSlotOccupancy(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// LinkProduct handles POST /admin/featured-products/link-product.
func (s *Server) LinkProduct(w http.ResponseWriter, r *http.Request) {
	var req productIDRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	link, err := s.featured.LinkProduct(r.Context(), req.ProductID)
	if err != nil {
		s.writeServiceError(w, r, err, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, linkEnvelope{Link: link})
}

// UnlinkProduct handles POST /admin/featured-products/unlink-product.
func (s *Server) UnlinkProduct(w http.ResponseWriter, r *http.Request) {
	var req productIDRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	unlinked, err := s.featured.UnlinkProduct(r.Context(), req.ProductID)
	if err != nil {
		s.writeServiceError(w, r, err, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, unlinkedEnvelope{Unlinked: unlinked})
}

// DeleteFeatured handles DELETE /admin/featured-products/{id}.
// The slot is soft-deleted; an occupied slot is refused with 409.
func (s *Server) DeleteFeatured(w http.ResponseWriter, r *http.Request) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "id must be a UUID")
		return
	}

	if err := s.featured.DeleteSlot(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "featured product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
