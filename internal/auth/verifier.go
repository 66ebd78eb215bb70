package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned for tokens that cannot be verified
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified caller behind a bearer token
type Identity struct {
	UserID string
	Email  string
}

// Verifier turns a bearer token into an Identity
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}
