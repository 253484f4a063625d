package model

import "time"

// Guide is a guest guide section (house manual, check-in instructions, local
// tips). Published guides are readable without authentication via their slug.
type Guide struct {
	ID         string
	TenantID   string
	PropertyID string
	Slug       string
	Title      string
	Body       string
	Published  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
