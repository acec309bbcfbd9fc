package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/http/response"
	"github.com/miqat/umrah-bookings/internal/service/leads"
	"github.com/miqat/umrah-bookings/internal/service/receipts"
	"github.com/miqat/umrah-bookings/pkg/auth"
	"github.com/miqat/umrah-bookings/pkg/config"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

// uploadReadLimit leaves room above the receipt cap so the size check in
// the intake service produces the real error instead of a truncated read.
const uploadReadLimit = receipts.MaxReceiptSize + 1<<20

type GuestHandler struct {
	Leads    *leads.Service
	Receipts *receipts.Intake
	Auth     config.AuthConfig
}

func NewGuestHandler(leadsSvc *leads.Service, intake *receipts.Intake, authCfg config.AuthConfig) *GuestHandler {
	return &GuestHandler{Leads: leadsSvc, Receipts: intake, Auth: authCfg}
}

func (h *GuestHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/{reference}", h.get)
	r.Post("/{reference}/receipt", h.uploadReceipt)
	r.Delete("/{reference}", h.cancel)
	return r
}

func (h *GuestHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.SubmitLeadReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	lead, err := h.Leads.Submit(r.Context(), &in)
	if err != nil {
		if domain.IsValidation(err) {
			writeDomainError(w, err)
			return
		}
		// Product decision: no inventory and backend failures still show the
		// guest a success screen. The reconcile log plus the
		// lead.submit.failed event pick up the pieces.
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"message": "Your request was received. We will email you the booking reference shortly.",
		})
		return
	}

	res := domain.SubmitLeadRes{
		Reference:     lead.Reference,
		Status:        string(lead.Status),
		TotalAmount:   lead.TotalAmount,
		VoucherExpiry: lead.VoucherExpiry,
	}

	token, err := auth.NewGuestToken(lead.GuestID.String(), lead.GuestEmail, h.Auth.JWTSecret, h.Auth.GuestTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue guest token", "error", err, "reference", lead.Reference)
	} else {
		res.GuestToken = token
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *GuestHandler) get(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	lead, err := h.Leads.Get(r.Context(), reference)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lead.DTO())
}

func (h *GuestHandler) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	r.Body = http.MaxBytesReader(w, r.Body, uploadReadLimit)
	if err := r.ParseMultipartForm(uploadReadLimit); err != nil {
		response.WriteError(w, http.StatusBadRequest, "receipt exceeds the size limit", response.CodeTooLarge)
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		response.BadRequest(w, "missing receipt file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "failed to read receipt file")
		return
	}

	contentType := header.Header.Get("Content-Type")

	lead, err := h.Receipts.Upload(r.Context(), reference, contentType, data)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lead.DTO())
}

func (h *GuestHandler) cancel(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	if err := h.Leads.Cancel(r.Context(), reference); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}
