package repository

import (
	"context"

	"github.com/authlink/authlink/internal/domain"
)

type UserRepository interface {
	// FindByIdentifier resolves a user by the identifier that travels in
	// login links (the email address). Returns domain.ErrUserNotFound when
	// no user matches.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)

	// TouchLastAuthenticated stamps the moment a login link was consumed.
	TouchLastAuthenticated(ctx context.Context, id string) error
}
