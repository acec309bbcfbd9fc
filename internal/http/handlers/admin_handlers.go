package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/http/response"
	"github.com/miqat/umrah-bookings/internal/service/leads"
)

type AdminHandler struct {
	Leads *leads.Service
}

func NewAdminHandler(leadsSvc *leads.Service) *AdminHandler {
	return &AdminHandler{Leads: leadsSvc}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{reference}", h.get)
	r.Post("/{reference}/confirm", h.confirm)
	r.Post("/{reference}/reject", h.reject)
	r.Delete("/{reference}", h.cancel)
	return r
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var (
		items []domain.Lead
		err   error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := domain.ParseLeadStatus(raw)
		if !ok {
			response.BadRequest(w, "unknown status "+raw)
			return
		}
		items, err = h.Leads.ListByStatus(r.Context(), status, limit, offset)
	} else {
		items, err = h.Leads.List(r.Context(), limit, offset)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]domain.LeadDTO, 0, len(items))
	for i := range items {
		out = append(out, items[i].DTO())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leads":  out,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead.DTO())
}

func (h *AdminHandler) confirm(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Confirm(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead.DTO())
}

func (h *AdminHandler) reject(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "invalid json")
			return
		}
	}

	var reason *string
	if in.Reason != "" {
		reason = &in.Reason
	}

	lead, err := h.Leads.Reject(r.Context(), chi.URLParam(r, "reference"), reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead.DTO())
}

func (h *AdminHandler) cancel(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if err := h.Leads.Cancel(r.Context(), reference); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}
