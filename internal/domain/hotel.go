package domain

import "time"

type Hotel struct {
	ID        int64     `json:"id"`
	PartnerID int64     `json:"partner_id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Category  int       `json:"category"` // star rating: 3, 4 or 5
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Room struct {
	ID        int64     `json:"id"`
	HotelID   int64     `json:"hotel_id"`
	Name      string    `json:"name"`
	MaxGuests int       `json:"max_guests"`
	// NightlyRate overrides the category base rate when set.
	NightlyRate *int64    `json:"nightly_rate,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type HotelPatch struct {
	Name     *string `json:"name,omitempty"`
	City     *string `json:"city,omitempty"`
	Category *int    `json:"category,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}
