package domain

import "time"

// SharePolicy holds an owner's custom sharing rules as a Rego module.
type SharePolicy struct {
	ID        string
	OwnerID   string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}
