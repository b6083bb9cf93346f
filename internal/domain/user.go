package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidLink covers structurally wrong, forged, or tampered links,
	// including links pointing at identifiers we cannot resolve.
	ErrInvalidLink = errors.New("login link is invalid")

	// ErrExpiredLink covers links past their time window or usage budget.
	// Exhaustion intentionally reports as expiry so the caller can show a
	// single "request a new link" message.
	ErrExpiredLink = errors.New("login link has expired")

	ErrUserNotFound = errors.New("user not found")
	ErrUnauthorized = errors.New("unauthorized")
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	LastAuthenticatedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// LoginLink is the single artifact this service issues. The URL embeds the
// identifier, expiry, and signature; nothing else is persisted for it.
type LoginLink struct {
	URL string
}

// LoginLinkDetails captures everything that went into a link at creation
// time. It exists for logging and callers that need the pieces; the URL
// itself is the only durable artifact.
type LoginLinkDetails struct {
	Identifier  string
	ExpiresAt   time.Time
	ExtraFields []string
	URL         string
}

func (d LoginLinkDetails) Link() LoginLink {
	return LoginLink{URL: d.URL}
}
