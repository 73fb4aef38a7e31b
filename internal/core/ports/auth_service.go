package ports

import (
	"context"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, email, role string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// TokenVerifier parses a bearer token into the identity it asserts.
type TokenVerifier interface {
	VerifyToken(token string) (domain.Identity, error)
}
