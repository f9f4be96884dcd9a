package domain

import "time"

// User is the local projection of a platform account. Accounts are owned by
// the platform user directory; the tag service only needs identity, email
// resolution for pack assignment, and the admin flag.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}
