package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/http/response"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeDomainError maps service-layer errors onto the JSON error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		code := response.CodeInvalidInput
		switch verr.Code {
		case domain.CodeUnsupportedType:
			code = response.CodeUnsupportedType
		case domain.CodeTooLarge:
			code = response.CodeTooLarge
		}
		response.WriteError(w, http.StatusBadRequest, verr.Message, code)
		return
	}

	var nerr *domain.NoInventoryError
	if errors.As(err, &nerr) {
		response.WriteError(w, http.StatusConflict, nerr.Error(), response.CodeNoInventory)
		return
	}

	var serr *domain.InvalidStateError
	if errors.As(err, &serr) {
		response.WriteError(w, http.StatusConflict, serr.Error(), response.CodeInvalidState)
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		response.NotFound(w, "not found")
		return
	}
	if errors.Is(err, domain.ErrDuplicateSlug) {
		response.Conflict(w, "slug already exists")
		return
	}

	logger.Error("Request failed", "error", err)
	response.InternalError(w, "internal error")
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
