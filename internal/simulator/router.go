package simulator

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fed-stew/authvital/internal/simulator/handlers"
	"github.com/fed-stew/authvital/internal/simulator/issuer"
	"github.com/fed-stew/authvital/internal/simulator/middleware"
	"github.com/fed-stew/authvital/internal/simulator/storage"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds dependencies for the simulator router
type RouterConfig struct {
	Store      storage.Store
	Issuer     *issuer.Issuer
	AdminToken string
	Logger     *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// OAuth endpoints. AuthVital serves them under /oauth2, AuthVader under
	// /oauth; both prefixes are mounted so either SDK package can talk to
	// the same simulator instance.
	oauthHandler := handlers.NewOAuthHandler(config.Store, config.Issuer, config.Logger)
	for _, prefix := range []string{"/oauth2", "/oauth"} {
		grp := router.Group(prefix)
		grp.POST("/token", oauthHandler.Token)
		grp.POST("/introspect", oauthHandler.Introspect)
		grp.POST("/revoke", oauthHandler.Revoke)
	}

	// Admin endpoints (bearer token auth)
	admin := router.Group("/admin")
	admin.Use(adminAuth(config.AdminToken))
	{
		adminHandler := handlers.NewAdminHandler(config.Store, config.Logger)
		admin.POST("/clients", adminHandler.CreateClient)
		admin.GET("/clients", adminHandler.ListClients)
		admin.GET("/clients/:id", adminHandler.GetClient)
		admin.DELETE("/clients/:id", adminHandler.DeleteClient)
		admin.POST("/clients/:id/failures", adminHandler.SetFailures)
	}

	return router
}

// adminAuth verifies the admin bearer token
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || provided != token {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
