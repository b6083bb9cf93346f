package httptransport

import (
	"log/slog"

	"github.com/authlink/authlink/internal/transport/http/handler"
	"github.com/authlink/authlink/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, loginLinkHandler *handler.LoginLinkHandler, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	auth := r.Group("/auth")
	auth.POST("/login-link", loginLinkHandler.Request)
	auth.GET("/login-link/check", loginLinkHandler.Check)
	auth.GET("/me", middleware.Auth(jwtKey), loginLinkHandler.Me)

	return r
}
