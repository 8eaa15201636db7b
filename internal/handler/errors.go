package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

// Error codes carried in ErrorDetail.Code.
const (
	codeValidation      = "validation_error"
	codeBadRequest      = "bad_request"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeInternal        = "internal_error"
	codeTooLarge        = "payload_too_large"
	codeAlreadyFeatured = "already_featured"
	codeNotFeatured     = "not_featured"
	codePositionTaken   = "position_taken"
	codeSlotOccupied    = "slot_occupied"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the failure with a stable code and a readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// specific maps precise error kinds to their own code. Checked in order
// before the broad classes.
var specific = []struct {
	err    error
	parent error
	status int
	code   string
}{
	{domain.ErrAlreadyFeatured, domain.ErrConflict, http.StatusConflict, codeAlreadyFeatured},
	{domain.ErrPositionTaken, domain.ErrConflict, http.StatusConflict, codePositionTaken},
	{domain.ErrSlotOccupied, domain.ErrConflict, http.StatusConflict, codeSlotOccupied},
	{domain.ErrNotFeatured, domain.ErrNotFound, http.StatusNotFound, codeNotFeatured},
	{domain.ErrProductNotFound, domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrRegionNotFound, domain.ErrNotFound, http.StatusNotFound, codeNotFound},
}

// writeServiceError maps a service error onto a status and error body.
// notFoundMsg is used for a bare domain.ErrNotFound, because the handler is
// the layer that knows what was being looked up.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	for _, k := range specific {
		if errors.Is(err, k.err) {
			writeError(w, k.status, k.code, strings.TrimPrefix(k.err.Error(), k.parent.Error()+": "))
			return
		}
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, codeValidation, unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, unwrapMessage(err, domain.ErrConflict))
	default:
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

// unwrapMessage extracts the human-readable part that follows the sentinel in
// a wrapped error.
// e.g. "service.FeaturedService.CreateSlot: validation error: position must be ..." → "position must be ..."
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

// normalizer is implemented by request bodies that clean their fields before
// validation.
type normalizer interface {
	normalize()
}

// decodeJSON reads the request body into dst and validates its struct tags.
// It writes the error response itself and reports false when the request
// must not proceed.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "request body must be valid JSON")
		return false
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first failed field of a validator error.
// Field names are JSON names; see NewServer.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
