package domain

import "time"

// User is a staff account: admins verify leads, partners own hotels.
// Guests are not accounts; they are identified by the guest id minted at
// submission.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"` // admin or partner
	CreatedAt    time.Time `json:"created_at"`
}
