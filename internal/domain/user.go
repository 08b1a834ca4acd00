package domain

import (
	"time"
)

// User represents a registered storefront customer.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is a freshly issued session credential. It is never stored.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}
