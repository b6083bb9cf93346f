package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/authlink/authlink/internal/counter"
	"github.com/authlink/authlink/internal/domain"
)

// Signer builds and verifies HMAC-SHA256 signatures binding a user
// identifier, an absolute expiry, and a set of mutable user attributes.
// Because verification recomputes the signature from the attributes'
// current values, changing any of them (password hash, email) invalidates
// every outstanding link for that user.
type Signer struct {
	key     []byte
	maxUses int // 0 = unlimited
	usage   counter.Store
	now     func() time.Time
}

// New returns a Signer. usage may be nil when maxUses is 0.
func New(key []byte, maxUses int, usage counter.Store) *Signer {
	return &Signer{
		key:     key,
		maxUses: maxUses,
		usage:   usage,
		now:     time.Now,
	}
}

// Sign computes the signature over (identifier, expiresAt, extraFields).
// The payload is base64(identifier), the raw decimal expiry, and base64 of
// each extra field, joined with ":". No side effects.
func (s *Signer) Sign(identifier string, expiresAt int64, extraFields []string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload(identifier, expiresAt, extraFields)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks a presented signature. Failure order is deliberate:
// expiry first, then the usage budget, then the signature itself — an
// expired-but-genuine link reports expiry rather than forgery, while a
// tampered unexpired link reports ErrInvalidLink. On success the usage
// counter for the presented signature is incremented; the returned count is
// re-checked so two requests racing for the last remaining use cannot both
// pass.
func (s *Signer) Verify(ctx context.Context, identifier string, expiresAt int64, extraFields []string, presented string) error {
	if s.now().Unix() > expiresAt {
		return domain.ErrExpiredLink
	}

	if s.maxUses > 0 {
		used, err := s.usage.Get(ctx, UsageKey(presented))
		if err != nil {
			return fmt.Errorf("get usage count: %w", err)
		}
		if used >= s.maxUses {
			return domain.ErrExpiredLink
		}
	}

	expected := s.Sign(identifier, expiresAt, extraFields)
	if !hmac.Equal([]byte(expected), []byte(presented)) {
		return domain.ErrInvalidLink
	}

	if s.maxUses > 0 {
		used, err := s.usage.Increment(ctx, UsageKey(presented))
		if err != nil {
			return fmt.Errorf("increment usage count: %w", err)
		}
		if used > s.maxUses {
			return domain.ErrExpiredLink
		}
	}
	return nil
}

// SetNowFunc overrides the clock. Tests only.
func (s *Signer) SetNowFunc(now func() time.Time) {
	s.now = now
}

func payload(identifier string, expiresAt int64, extraFields []string) string {
	parts := make([]string, 0, 2+len(extraFields))
	parts = append(parts,
		base64.StdEncoding.EncodeToString([]byte(identifier)),
		strconv.FormatInt(expiresAt, 10),
	)
	for _, f := range extraFields {
		parts = append(parts, base64.StdEncoding.EncodeToString([]byte(f)))
	}
	return strings.Join(parts, ":")
}

// UsageKey is the counter key for a presented signature: its URL-safe
// encoded form, matching how the signature travels in the link itself.
func UsageKey(sig string) string {
	return url.QueryEscape(sig)
}
