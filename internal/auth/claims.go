package auth

// AccessClaims holds the identity claims carried by a verified access token.
type AccessClaims struct {
	// TokenID is the unique token identifier (jti claim).
	TokenID string `json:"jti"`
	// UserID identifies the authenticated user.
	UserID string `json:"user_id"`
	// Email is the user's email address at mint time.
	Email string `json:"email"`
	// IsAdmin reports whether the platform granted admin privileges.
	IsAdmin bool `json:"is_admin"`
}
