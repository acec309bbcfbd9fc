package domain

import "time"

// ContentItem is the shared shape behind blogs, pages, services, FAQ,
// ziaraat and guide entries. One resource abstraction instead of six
// near-identical managers.
type ContentItem struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Locale    string    `json:"locale"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContentPatch struct {
	Title     *string `json:"title,omitempty"`
	Body      *string `json:"body,omitempty"`
	Locale    *string `json:"locale,omitempty"`
	Published *bool   `json:"published,omitempty"`
}
