package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cellarclub/cellar-server/internal/auth"
	domainerrors "github.com/cellarclub/cellar-server/internal/errors"
)

// authenticateRequest validates the Authorization header and returns the
// verified token claims.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (*auth.AccessClaims, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	claims, err := s.tokens.VerifyAccessToken(parts[1])
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}

	return claims, nil
}

// authenticateAndRequireAdmin validates the token and requires the admin flag.
func (s *Server) authenticateAndRequireAdmin(ctx context.Context, authHeader string) (*auth.AccessClaims, error) {
	claims, err := s.authenticateRequest(ctx, authHeader)
	if err != nil {
		return nil, err
	}

	if !claims.IsAdmin {
		return nil, domainerrors.Forbidden("Admin access required")
	}

	return claims, nil
}
