package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/authlink/authlink/internal/domain"
	"github.com/authlink/authlink/internal/email"
	"github.com/authlink/authlink/internal/property"
	"github.com/authlink/authlink/internal/repository"
	"github.com/authlink/authlink/internal/signature"
	"github.com/authlink/authlink/internal/urlgen"
	"github.com/golang-jwt/jwt/v5"
)

const defaultJWTTTL = 24 * time.Hour

// Wire parameter names for login links. All three are required on
// consumption.
const (
	ParamUser    = "user"
	ParamExpires = "expires"
	ParamHash    = "hash"
)

// ConsumeParams is the parsed query of an incoming login link.
type ConsumeParams struct {
	Identifier string
	Expires    string
	Hash       string
}

type LoginLinkUsecase struct {
	users    repository.UserRepository
	signer   *signature.Signer
	urls     urlgen.Generator
	resolver *property.Resolver
	email    email.Sender
	lifetime time.Duration
	route    string
	jwtKey   []byte
	jwtTTL   time.Duration
	now      func() time.Time
}

func NewLoginLinkUsecase(
	users repository.UserRepository,
	signer *signature.Signer,
	urls urlgen.Generator,
	resolver *property.Resolver,
	emailSender email.Sender,
	lifetime time.Duration,
	route string,
	jwtKey []byte,
) *LoginLinkUsecase {
	return &LoginLinkUsecase{
		users:    users,
		signer:   signer,
		urls:     urls,
		resolver: resolver,
		email:    emailSender,
		lifetime: lifetime,
		route:    route,
		jwtKey:   jwtKey,
		jwtTTL:   defaultJWTTTL,
		now:      time.Now,
	}
}

// CreateLoginLink signs the user's identifier, expiry, and configured
// attribute values, then builds the absolute check URL. reqCtx, when
// non-nil, pins the link to the scheme and host of the originating request.
func (u *LoginLinkUsecase) CreateLoginLink(ctx context.Context, user *domain.User, reqCtx *urlgen.RequestContext) (domain.LoginLink, error) {
	details, err := u.CreateLoginLinkDetails(ctx, user, reqCtx)
	if err != nil {
		return domain.LoginLink{}, err
	}
	return details.Link(), nil
}

// CreateLoginLinkDetails is CreateLoginLink, keeping the parts the URL was
// built from.
func (u *LoginLinkUsecase) CreateLoginLinkDetails(_ context.Context, user *domain.User, reqCtx *urlgen.RequestContext) (domain.LoginLinkDetails, error) {
	expiresAt := u.now().Add(u.lifetime)
	fields := u.resolver.Resolve(user)
	sig := u.signer.Sign(user.Email, expiresAt.Unix(), fields)

	params := url.Values{}
	params.Set(ParamUser, user.Email)
	params.Set(ParamExpires, strconv.FormatInt(expiresAt.Unix(), 10))
	params.Set(ParamHash, sig)

	link, err := u.urls.Generate(u.route, params, reqCtx)
	if err != nil {
		return domain.LoginLinkDetails{}, fmt.Errorf("generate login link url: %w", err)
	}
	return domain.LoginLinkDetails{
		Identifier:  user.Email,
		ExpiresAt:   expiresAt,
		ExtraFields: fields,
		URL:         link,
	}, nil
}

// RequestLoginLink creates a link for the user behind emailAddr and mails
// it. An unknown address is reported as domain.ErrUserNotFound so the
// handler can decide how much to reveal.
func (u *LoginLinkUsecase) RequestLoginLink(ctx context.Context, emailAddr string, reqCtx *urlgen.RequestContext) error {
	user, err := u.users.FindByIdentifier(ctx, emailAddr)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	link, err := u.CreateLoginLink(ctx, user, reqCtx)
	if err != nil {
		return err
	}

	subject := "Your sign-in link"
	body := fmt.Sprintf(
		`<p>Click the link below to sign in (expires in %d minutes):</p><p><a href="%s">%s</a></p>`,
		int(u.lifetime.Minutes()), link.URL, link.URL,
	)
	if err := u.email.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send login link: %w", err)
	}
	return nil
}

// ConsumeLoginLink authenticates a presented link. Missing or malformed
// parameters and unresolvable identifiers report domain.ErrInvalidLink —
// a probe must not learn whether the identifier exists. Expiry and usage
// exhaustion report domain.ErrExpiredLink via the signer.
func (u *LoginLinkUsecase) ConsumeLoginLink(ctx context.Context, p ConsumeParams) (*domain.User, error) {
	if p.Identifier == "" || p.Hash == "" || p.Expires == "" {
		return nil, domain.ErrInvalidLink
	}
	expiresAt, err := strconv.ParseInt(p.Expires, 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidLink
	}

	user, err := u.users.FindByIdentifier(ctx, p.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidLink
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	fields := u.resolver.Resolve(user)
	if err := u.signer.Verify(ctx, user.Email, expiresAt, fields, p.Hash); err != nil {
		return nil, err
	}
	return user, nil
}

// IssueSessionToken returns a signed HS256 JWT for an authenticated user.
func (u *LoginLinkUsecase) IssueSessionToken(user *domain.User) (string, error) {
	now := u.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(u.jwtTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(u.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// SetNowFunc overrides the clock. Tests only.
func (u *LoginLinkUsecase) SetNowFunc(now func() time.Time) {
	u.now = now
}
