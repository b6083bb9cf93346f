package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/authlink/authlink/internal/domain"
	"github.com/authlink/authlink/internal/metrics"
	"github.com/authlink/authlink/internal/repository"
	"github.com/authlink/authlink/internal/urlgen"
	"github.com/authlink/authlink/internal/usecase"
	"github.com/gin-gonic/gin"
)

// loginLinkUsecaser is the subset of LoginLinkUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type loginLinkUsecaser interface {
	RequestLoginLink(ctx context.Context, email string, reqCtx *urlgen.RequestContext) error
	ConsumeLoginLink(ctx context.Context, p usecase.ConsumeParams) (*domain.User, error)
	IssueSessionToken(user *domain.User) (string, error)
}

type LoginLinkHandler struct {
	loginLinks loginLinkUsecaser
	users      repository.UserRepository
	logger     *slog.Logger
}

func NewLoginLinkHandler(loginLinks loginLinkUsecaser, users repository.UserRepository, logger *slog.Logger) *LoginLinkHandler {
	return &LoginLinkHandler{
		loginLinks: loginLinks,
		users:      users,
		logger:     logger.With("component", "login_link_handler"),
	}
}

type loginLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /auth/login-link
// Always returns 200 to avoid revealing whether the email exists. The link
// is built against the scheme and host this request arrived on.
func (h *LoginLinkHandler) Request(c *gin.Context) {
	var req loginLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqCtx := urlgen.FromRequest(c.Request)
	if err := h.loginLinks.RequestLoginLink(c.Request.Context(), req.Email, reqCtx); err != nil {
		h.logger.Error("request login link", "error", err)
	} else {
		metrics.LinksCreatedTotal.Inc()
	}

	c.Status(http.StatusOK)
}

// GET /auth/login-link/check?user=<id>&expires=<unix>&hash=<sig>
// Returns {"token": "<jwt>"} on success. Invalid and expired links both
// come back 401, with messages the frontend can show as-is.
func (h *LoginLinkHandler) Check(c *gin.Context) {
	start := time.Now()

	params := usecase.ConsumeParams{
		Identifier: c.Query(usecase.ParamUser),
		Expires:    c.Query(usecase.ParamExpires),
		Hash:       c.Query(usecase.ParamHash),
	}

	user, err := h.loginLinks.ConsumeLoginLink(c.Request.Context(), params)
	metrics.ConsumeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrExpiredLink):
			metrics.LinksConsumedTotal.WithLabelValues(metrics.OutcomeExpired).Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": errLinkExpired})
		case errors.Is(err, domain.ErrInvalidLink):
			metrics.LinksConsumedTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": errLinkInvalid})
		default:
			metrics.LinksConsumedTotal.WithLabelValues(metrics.OutcomeError).Inc()
			h.logger.Error("consume login link", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}
	metrics.LinksConsumedTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	// Best effort: the login already happened, a failed stamp only loses
	// the last_authenticated_at bookkeeping.
	if err := h.users.TouchLastAuthenticated(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("touch last authenticated", "user_id", user.ID, "error", err)
	}

	token, err := h.loginLinks.IssueSessionToken(user)
	if err != nil {
		h.logger.Error("issue session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GET /auth/me — requires the Auth middleware.
func (h *LoginLinkHandler) Me(c *gin.Context) {
	email := c.GetString("email")
	user, err := h.users.FindByIdentifier(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		h.logger.Error("load current user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                    user.ID,
		"email":                 user.Email,
		"last_authenticated_at": user.LastAuthenticatedAt,
	})
}
