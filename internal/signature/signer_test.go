package signature_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/authlink/authlink/internal/counter"
	"github.com/authlink/authlink/internal/domain"
	"github.com/authlink/authlink/internal/signature"
)

const testKey = "signer-test-secret-key-32-chars!!"

func newSigner(maxUses int) (*signature.Signer, *counter.MemStore) {
	store := counter.NewMemStore(time.Hour)
	return signature.New([]byte(testKey), maxUses, store), store
}

func futureExpiry() int64 {
	return time.Now().Add(10 * time.Minute).Unix()
}

// ---- Sign ----

func TestSign_MatchesKnownVector(t *testing.T) {
	// identifier "weaverryan", extra fields email + password hash: the
	// payload is base64(id):expires:base64(email):base64(pwhash).
	s, _ := newSigner(0)

	expires := int64(1700000600)
	fields := []string{"ryan@symfonycasts.com", "pwhash"}

	payload := fmt.Sprintf("%s:%d:%s:%s",
		base64.StdEncoding.EncodeToString([]byte("weaverryan")),
		expires,
		base64.StdEncoding.EncodeToString([]byte("ryan@symfonycasts.com")),
		base64.StdEncoding.EncodeToString([]byte("pwhash")),
	)
	mac := hmac.New(sha256.New, []byte(testKey))
	mac.Write([]byte(payload))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got := s.Sign("weaverryan", expires, fields); got != want {
		t.Errorf("Sign = %q, want %q", got, want)
	}
}

func TestSign_Deterministic(t *testing.T) {
	s, _ := newSigner(0)
	expires := futureExpiry()
	fields := []string{"a@example.com", "hash"}

	if s.Sign("u", expires, fields) != s.Sign("u", expires, fields) {
		t.Error("same inputs produced different signatures")
	}
}

// ---- Verify: round trip and tampering ----

func TestVerify_RoundTrip(t *testing.T) {
	s, _ := newSigner(0)
	expires := futureExpiry()
	fields := []string{"a@example.com", "hash"}

	sig := s.Sign("u", expires, fields)
	if err := s.Verify(context.Background(), "u", expires, fields, sig); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerify_ChangedExtraField_Invalid(t *testing.T) {
	s, _ := newSigner(0)
	expires := futureExpiry()

	sig := s.Sign("u", expires, []string{"a@example.com", "oldhash"})

	err := s.Verify(context.Background(), "u", expires, []string{"a@example.com", "newhash"}, sig)
	if !errors.Is(err, domain.ErrInvalidLink) {
		t.Errorf("want ErrInvalidLink, got %v", err)
	}
}

func TestVerify_ChangedIdentifier_Invalid(t *testing.T) {
	s, _ := newSigner(0)
	expires := futureExpiry()
	fields := []string{"a@example.com"}

	sig := s.Sign("u", expires, fields)

	err := s.Verify(context.Background(), "someone-else", expires, fields, sig)
	if !errors.Is(err, domain.ErrInvalidLink) {
		t.Errorf("want ErrInvalidLink, got %v", err)
	}
}

func TestVerify_TamperedSignature_Invalid(t *testing.T) {
	s, _ := newSigner(0)
	expires := futureExpiry()
	fields := []string{"a@example.com"}

	s.Sign("u", expires, fields)

	err := s.Verify(context.Background(), "u", expires, fields, "bm90LXRoZS1zaWduYXR1cmU=")
	if !errors.Is(err, domain.ErrInvalidLink) {
		t.Errorf("want ErrInvalidLink, got %v", err)
	}
}

// ---- Verify: expiry ----

func TestVerify_ExpiryBoundary(t *testing.T) {
	s, _ := newSigner(0)
	now := time.Now()
	s.SetNowFunc(func() time.Time { return now })
	fields := []string{"a@example.com"}

	// expiresAt == now is still valid.
	sig := s.Sign("u", now.Unix(), fields)
	if err := s.Verify(context.Background(), "u", now.Unix(), fields, sig); err != nil {
		t.Errorf("expiresAt == now: unexpected error %v", err)
	}

	// One second in the past is expired.
	past := now.Unix() - 1
	sig = s.Sign("u", past, fields)
	err := s.Verify(context.Background(), "u", past, fields, sig)
	if !errors.Is(err, domain.ErrExpiredLink) {
		t.Errorf("expiresAt == now-1: want ErrExpiredLink, got %v", err)
	}
}

func TestVerify_ExpiredWinsOverInvalid(t *testing.T) {
	// A tampered AND expired link reports expiry: the expiry check runs
	// on the caller-supplied timestamp before the signature is compared.
	s, _ := newSigner(0)
	past := time.Now().Add(-time.Minute).Unix()

	err := s.Verify(context.Background(), "u", past, []string{"x"}, "garbage")
	if !errors.Is(err, domain.ErrExpiredLink) {
		t.Errorf("want ErrExpiredLink, got %v", err)
	}
}

// ---- Verify: usage budget ----

func TestVerify_UsageBudget(t *testing.T) {
	s, store := newSigner(3)
	ctx := context.Background()
	expires := futureExpiry()
	fields := []string{"a@example.com"}
	sig := s.Sign("u", expires, fields)

	for i := 1; i <= 3; i++ {
		if err := s.Verify(ctx, "u", expires, fields, sig); err != nil {
			t.Fatalf("use %d: unexpected error %v", i, err)
		}
	}

	err := s.Verify(ctx, "u", expires, fields, sig)
	if !errors.Is(err, domain.ErrExpiredLink) {
		t.Errorf("use 4: want ErrExpiredLink, got %v", err)
	}

	// Counter recorded exactly maxUses successful consumptions.
	n, _ := store.Get(ctx, signature.UsageKey(sig))
	if n != 3 {
		t.Errorf("recorded uses = %d, want 3", n)
	}
}

func TestVerify_PreSeededCounterAtLimit_FailsImmediately(t *testing.T) {
	s, store := newSigner(2)
	ctx := context.Background()
	expires := futureExpiry()
	fields := []string{"a@example.com"}
	sig := s.Sign("u", expires, fields)

	store.Increment(ctx, signature.UsageKey(sig))
	store.Increment(ctx, signature.UsageKey(sig))

	err := s.Verify(ctx, "u", expires, fields, sig)
	if !errors.Is(err, domain.ErrExpiredLink) {
		t.Errorf("want ErrExpiredLink, got %v", err)
	}
}

func TestVerify_FailedAttemptsDoNotConsumeUses(t *testing.T) {
	s, store := newSigner(1)
	ctx := context.Background()
	expires := futureExpiry()
	fields := []string{"a@example.com"}
	sig := s.Sign("u", expires, fields)

	// A tampered attempt must not burn the single allowed use.
	if err := s.Verify(ctx, "u", expires, []string{"other"}, sig); !errors.Is(err, domain.ErrInvalidLink) {
		t.Fatalf("want ErrInvalidLink, got %v", err)
	}
	if n, _ := store.Get(ctx, signature.UsageKey(sig)); n != 0 {
		t.Errorf("uses after invalid attempt = %d, want 0", n)
	}

	if err := s.Verify(ctx, "u", expires, fields, sig); err != nil {
		t.Errorf("genuine attempt: unexpected error %v", err)
	}
}

func TestVerify_NoMaxUses_NeverExhausts(t *testing.T) {
	s, _ := newSigner(0)
	ctx := context.Background()
	expires := futureExpiry()
	fields := []string{"a@example.com"}
	sig := s.Sign("u", expires, fields)

	for i := 0; i < 10; i++ {
		if err := s.Verify(ctx, "u", expires, fields, sig); err != nil {
			t.Fatalf("use %d: unexpected error %v", i+1, err)
		}
	}
}

func TestVerify_CounterStoreError_Propagates(t *testing.T) {
	storeErr := errors.New("store down")
	s := signature.New([]byte(testKey), 1, &failingStore{err: storeErr})
	expires := futureExpiry()
	fields := []string{"a@example.com"}
	sig := s.Sign("u", expires, fields)

	err := s.Verify(context.Background(), "u", expires, fields, sig)
	if !errors.Is(err, storeErr) {
		t.Errorf("want wrapped store error, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidLink) || errors.Is(err, domain.ErrExpiredLink) {
		t.Errorf("infra failure must not masquerade as a link error, got %v", err)
	}
}

type failingStore struct {
	err error
}

func (f *failingStore) Increment(_ context.Context, _ string) (int, error) { return 0, f.err }
func (f *failingStore) Get(_ context.Context, _ string) (int, error)       { return 0, f.err }
