package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/miqat/umrah-bookings/internal/domain"
	mw "github.com/miqat/umrah-bookings/internal/http/middleware"
	"github.com/miqat/umrah-bookings/internal/http/response"
	"github.com/miqat/umrah-bookings/internal/repo/postgres"
)

// PartnerHandler lets hotel partners manage their own inventory. Every
// operation is scoped to the partner id carried in the JWT.
type PartnerHandler struct {
	Hotels postgres.HotelsRepository
}

func NewPartnerHandler(hotels postgres.HotelsRepository) *PartnerHandler {
	return &PartnerHandler{Hotels: hotels}
}

func (h *PartnerHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/hotels", h.listHotels)
	r.Post("/hotels", h.createHotel)
	r.Patch("/hotels/{hotelID}", h.updateHotel)
	r.Get("/hotels/{hotelID}/rooms", h.listRooms)
	r.Post("/hotels/{hotelID}/rooms", h.createRoom)
	r.Delete("/hotels/{hotelID}/rooms/{roomID}", h.deleteRoom)
	return r
}

func partnerID(r *http.Request) (int64, bool) {
	claims := mw.Claims(r)
	if claims == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(claims.Sub, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *PartnerHandler) listHotels(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(r)
	if !ok {
		response.Unauthorized(w, "invalid partner token")
		return
	}

	hotels, err := h.Hotels.ListByPartner(r.Context(), pid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hotels": hotels})
}

func (h *PartnerHandler) createHotel(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(r)
	if !ok {
		response.Unauthorized(w, "invalid partner token")
		return
	}

	var in struct {
		Name     string `json:"name"`
		City     string `json:"city"`
		Category int    `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.ToLower(strings.TrimSpace(in.City))
	if in.Name == "" || in.City == "" {
		response.BadRequest(w, "name and city are required")
		return
	}
	if in.Category < 3 || in.Category > 5 {
		response.BadRequest(w, "category must be 3, 4 or 5")
		return
	}

	hotel := &domain.Hotel{
		PartnerID: pid,
		Name:      in.Name,
		City:      in.City,
		Category:  in.Category,
		Active:    true,
	}
	if err := h.Hotels.CreateHotel(r.Context(), hotel); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hotel)
}

func (h *PartnerHandler) updateHotel(w http.ResponseWriter, r *http.Request) {
	pid, ok := partnerID(r)
	if !ok {
		response.Unauthorized(w, "invalid partner token")
		return
	}
	hotelID, ok := pathID(r, "hotelID")
	if !ok {
		response.BadRequest(w, "invalid hotel id")
		return
	}

	var patch domain.HotelPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if patch.Category != nil && (*patch.Category < 3 || *patch.Category > 5) {
		response.BadRequest(w, "category must be 3, 4 or 5")
		return
	}

	hotel, err := h.Hotels.UpdateHotel(r.Context(), hotelID, pid, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if hotel == nil {
		response.NotFound(w, "hotel not found")
		return
	}
	writeJSON(w, http.StatusOK, hotel)
}

// ownedHotel loads the hotel and verifies it belongs to the caller.
func (h *PartnerHandler) ownedHotel(w http.ResponseWriter, r *http.Request) (*domain.Hotel, bool) {
	pid, ok := partnerID(r)
	if !ok {
		response.Unauthorized(w, "invalid partner token")
		return nil, false
	}
	hotelID, ok := pathID(r, "hotelID")
	if !ok {
		response.BadRequest(w, "invalid hotel id")
		return nil, false
	}

	hotel, err := h.Hotels.GetHotel(r.Context(), hotelID)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if hotel == nil || hotel.PartnerID != pid {
		response.NotFound(w, "hotel not found")
		return nil, false
	}
	return hotel, true
}

func (h *PartnerHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	hotel, ok := h.ownedHotel(w, r)
	if !ok {
		return
	}

	rooms, err := h.Hotels.ListRooms(r.Context(), hotel.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}

func (h *PartnerHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	hotel, ok := h.ownedHotel(w, r)
	if !ok {
		return
	}

	var in struct {
		Name        string `json:"name"`
		MaxGuests   int    `json:"max_guests"`
		NightlyRate *int64 `json:"nightly_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		response.BadRequest(w, "name is required")
		return
	}
	if in.MaxGuests < 1 || in.MaxGuests > 10 {
		response.BadRequest(w, "max_guests must be between 1 and 10")
		return
	}
	if in.NightlyRate != nil && *in.NightlyRate <= 0 {
		response.BadRequest(w, "nightly_rate must be positive")
		return
	}

	room := &domain.Room{
		HotelID:     hotel.ID,
		Name:        strings.TrimSpace(in.Name),
		MaxGuests:   in.MaxGuests,
		NightlyRate: in.NightlyRate,
	}
	if err := h.Hotels.CreateRoom(r.Context(), room); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *PartnerHandler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	hotel, ok := h.ownedHotel(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(r, "roomID")
	if !ok {
		response.BadRequest(w, "invalid room id")
		return
	}

	deleted, err := h.Hotels.DeleteRoom(r.Context(), hotel.ID, roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !deleted {
		response.NotFound(w, "room not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
