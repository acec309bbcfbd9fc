package domain

import (
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	StatusLead            LeadStatus = "lead"
	StatusPendingPayment  LeadStatus = "pending_payment"
	StatusReceiptUploaded LeadStatus = "receipt_uploaded"
	StatusConfirmed       LeadStatus = "confirmed"
	StatusRejected        LeadStatus = "rejected"
	StatusExpired         LeadStatus = "expired"
	StatusCancelled       LeadStatus = "cancelled"
)

func ParseLeadStatus(s string) (LeadStatus, bool) {
	switch LeadStatus(s) {
	case StatusLead, StatusPendingPayment, StatusReceiptUploaded,
		StatusConfirmed, StatusRejected, StatusExpired, StatusCancelled:
		return LeadStatus(s), true
	default:
		return "", false
	}
}

// SweepableStatuses are the states the expiry sweep may transition to expired.
var SweepableStatuses = []LeadStatus{StatusPendingPayment, StatusReceiptUploaded}

type Lead struct {
	ID              uuid.UUID  `json:"id"`
	Reference       string     `json:"reference"`
	GuestID         uuid.UUID  `json:"guest_id"`
	GuestName       string     `json:"guest_name"`
	GuestEmail      string     `json:"guest_email"`
	GuestPhone      string     `json:"guest_phone"`
	City            string     `json:"city"`
	HotelID         int64      `json:"hotel_id"`
	RoomID          int64      `json:"room_id"`
	CheckIn         time.Time  `json:"check_in"`
	CheckOut        time.Time  `json:"check_out"`
	NumGuests       int        `json:"num_guests"`
	NumRooms        int        `json:"num_rooms"`
	TotalAmount     int64      `json:"total_amount"`
	Status          LeadStatus `json:"status"`
	SpecialRequests string     `json:"special_requests,omitempty"`
	RejectReason    *string    `json:"reject_reason,omitempty"`
	ReceiptURL      *string    `json:"receipt_url,omitempty"`
	ReceiptUploadedAt *time.Time `json:"receipt_uploaded_at,omitempty"`
	VoucherExpiry   time.Time  `json:"voucher_expiry"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Terminal reports whether the lead admits no further transitions.
func (l *Lead) Terminal() bool {
	switch l.Status {
	case StatusConfirmed, StatusRejected, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanCancel checks if the lead can still be cancelled by guest or admin.
func (l *Lead) CanCancel() bool {
	return !l.Terminal()
}

// Sweepable reports whether the expiry sweep should expire this lead now.
func (l *Lead) Sweepable(now time.Time) bool {
	if l.Status != StatusPendingPayment && l.Status != StatusReceiptUploaded {
		return false
	}
	return l.VoucherExpiry.Before(now)
}

// Nights returns the whole nights between check-in and check-out, never < 1.
func (l *Lead) Nights() int {
	n := int(l.CheckOut.Sub(l.CheckIn).Hours() / 24)
	if n < 1 {
		n = 1
	}
	return n
}

type SubmitLeadReq struct {
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
	City            string `json:"city"`
	CheckIn         string `json:"check_in"`  // 2006-01-02
	CheckOut        string `json:"check_out"` // 2006-01-02
	Category        int    `json:"category"`
	NumGuests       int    `json:"num_guests"`
	NumRooms        int    `json:"num_rooms"`
	SpecialRequests string `json:"special_requests"`
}

type SubmitLeadRes struct {
	Reference     string    `json:"reference"`
	Status        string    `json:"status"`
	TotalAmount   int64     `json:"total_amount"`
	VoucherExpiry time.Time `json:"voucher_expiry"`
	GuestToken    string    `json:"guest_token,omitempty"`
}

// LeadDTO is the admin/guest read shape; guests never see internal ids.
type LeadDTO struct {
	Reference         string     `json:"reference"`
	Status            string     `json:"status"`
	GuestName         string     `json:"guest_name"`
	GuestEmail        string     `json:"guest_email"`
	GuestPhone        string     `json:"guest_phone"`
	City              string     `json:"city"`
	HotelID           int64      `json:"hotel_id"`
	RoomID            int64      `json:"room_id"`
	CheckIn           time.Time  `json:"check_in"`
	CheckOut          time.Time  `json:"check_out"`
	NumGuests         int        `json:"num_guests"`
	NumRooms          int        `json:"num_rooms"`
	TotalAmount       int64      `json:"total_amount"`
	SpecialRequests   string     `json:"special_requests,omitempty"`
	RejectReason      *string    `json:"reject_reason,omitempty"`
	ReceiptURL        *string    `json:"receipt_url,omitempty"`
	ReceiptUploadedAt *time.Time `json:"receipt_uploaded_at,omitempty"`
	VoucherExpiry     time.Time  `json:"voucher_expiry"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (l *Lead) DTO() LeadDTO {
	return LeadDTO{
		Reference:         l.Reference,
		Status:            string(l.Status),
		GuestName:         l.GuestName,
		GuestEmail:        l.GuestEmail,
		GuestPhone:        l.GuestPhone,
		City:              l.City,
		HotelID:           l.HotelID,
		RoomID:            l.RoomID,
		CheckIn:           l.CheckIn,
		CheckOut:          l.CheckOut,
		NumGuests:         l.NumGuests,
		NumRooms:          l.NumRooms,
		TotalAmount:       l.TotalAmount,
		SpecialRequests:   l.SpecialRequests,
		RejectReason:      l.RejectReason,
		ReceiptURL:        l.ReceiptURL,
		ReceiptUploadedAt: l.ReceiptUploadedAt,
		VoucherExpiry:     l.VoucherExpiry,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}
