package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/http/response"
	"github.com/miqat/umrah-bookings/internal/service/content"
)

type ContentHandler struct {
	Content *content.Service
}

func NewContentHandler(svc *content.Service) *ContentHandler {
	return &ContentHandler{Content: svc}
}

// PublicRoutes serves published content to the site.
func (h *ContentHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{resource}", h.listPublished)
	r.Get("/{resource}/{slug}", h.getPublished)
	return r
}

// AdminRoutes gives the back office full CRUD including drafts.
func (h *ContentHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{resource}", h.listAll)
	r.Post("/{resource}", h.create)
	r.Get("/{resource}/{slug}", h.getAny)
	r.Patch("/{resource}/{slug}", h.update)
	r.Delete("/{resource}/{slug}", h.delete)
	return r
}

func (h *ContentHandler) list(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	limit, offset := parsePagination(r)
	locale := strings.TrimSpace(r.URL.Query().Get("locale"))

	items, err := h.Content.List(r.Context(), chi.URLParam(r, "resource"), publishedOnly, locale, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *ContentHandler) listPublished(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ContentHandler) listAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *ContentHandler) getPublished(w http.ResponseWriter, r *http.Request) {
	item, err := h.Content.Get(r.Context(), chi.URLParam(r, "resource"), chi.URLParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !item.Published {
		response.NotFound(w, "not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) getAny(w http.ResponseWriter, r *http.Request) {
	item, err := h.Content.Get(r.Context(), chi.URLParam(r, "resource"), chi.URLParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) create(w http.ResponseWriter, r *http.Request) {
	var item domain.ContentItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	if err := h.Content.Create(r.Context(), chi.URLParam(r, "resource"), &item); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ContentHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch domain.ContentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	item, err := h.Content.Update(r.Context(), chi.URLParam(r, "resource"), chi.URLParam(r, "slug"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Content.Delete(r.Context(), chi.URLParam(r, "resource"), chi.URLParam(r, "slug")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
