package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fed-stew/authvital/internal/idgen"
	"github.com/fed-stew/authvital/internal/simulator/issuer"
	"github.com/fed-stew/authvital/internal/simulator/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// OAuthHandler handles token issuance, introspection and revocation
type OAuthHandler struct {
	store  storage.Store
	issuer *issuer.Issuer
	logger *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(store storage.Store, iss *issuer.Issuer, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		store:  store,
		issuer: iss,
		logger: logger,
	}
}

// Token implements the client credentials grant
// POST /oauth2/token and /oauth/token
func (h *OAuthHandler) Token(c *gin.Context) {
	client, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	if c.PostForm("grant_type") != "client_credentials" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_grant_type",
			"error_description": "only client_credentials is supported",
		})
		return
	}

	scope, ok := h.negotiateScope(c, client)
	if !ok {
		return
	}

	// Failure injection set through the admin API
	failed, err := h.store.ConsumeFailure(c.Request.Context(), client.ID)
	if err != nil {
		h.internalError(c, "Failed to check failure injection", err)
		return
	}
	if failed {
		h.logger.Info("Injected token endpoint failure",
			"component", "oauth",
			"client_id", client.ID,
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":             "temporarily_unavailable",
			"error_description": "injected failure",
		})
		return
	}

	tokenID := idgen.NewToken()
	value, expiresAt, err := h.issuer.Issue(client.ID, scope, tokenID)
	if err != nil {
		h.internalError(c, "Failed to issue token", err)
		return
	}

	record := &storage.Token{
		ID:        tokenID,
		ClientID:  client.ID,
		Value:     value,
		Scope:     scope,
		ExpiresAt: expiresAt,
	}
	if err := h.store.SaveToken(c.Request.Context(), record); err != nil {
		h.internalError(c, "Failed to save token", err)
		return
	}

	h.logger.Info("Issued access token",
		"component", "oauth",
		"client_id", client.ID,
		"token_id", tokenID,
		"scope", scope,
	)

	// Token responses must not be cached (RFC 6749 section 5.1)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	response := gin.H{
		"access_token": value,
		"token_type":   "Bearer",
		"expires_in":   int(h.issuer.TTL().Seconds()),
	}
	if scope != "" {
		response["scope"] = scope
	}

	c.JSON(http.StatusOK, response)
}

// Introspect reports the state of a previously issued token
// POST /oauth2/introspect and /oauth/introspect
func (h *OAuthHandler) Introspect(c *gin.Context) {
	if _, ok := h.authenticateClient(c); !ok {
		return
	}

	value := c.PostForm("token")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token parameter is required",
		})
		return
	}

	record, err := h.store.GetToken(c.Request.Context(), value)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			c.JSON(http.StatusOK, gin.H{"active": false})
			return
		}
		h.internalError(c, "Failed to look up token", err)
		return
	}

	if record.Revoked || time.Now().After(record.ExpiresAt) {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	response := gin.H{
		"active":     true,
		"client_id":  record.ClientID,
		"token_type": "Bearer",
		"exp":        record.ExpiresAt.Unix(),
		"iat":        record.CreatedAt.Unix(),
	}
	if record.Scope != "" {
		response["scope"] = record.Scope
	}

	c.JSON(http.StatusOK, response)
}

// Revoke invalidates a previously issued token
// POST /oauth2/revoke and /oauth/revoke
func (h *OAuthHandler) Revoke(c *gin.Context) {
	client, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	value := c.PostForm("token")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token parameter is required",
		})
		return
	}

	if err := h.store.RevokeToken(c.Request.Context(), value); err != nil {
		h.internalError(c, "Failed to revoke token", err)
		return
	}

	h.logger.Info("Revoked token",
		"component", "oauth",
		"client_id", client.ID,
	)

	// Revoking an unknown token still returns 200 (RFC 7009 section 2.2)
	c.Status(http.StatusOK)
}

// authenticateClient resolves and verifies the calling client. Credentials
// arrive either form-urlencoded inside HTTP Basic auth (RFC 6749 section
// 2.3.1) or as client_id/client_secret body parameters.
func (h *OAuthHandler) authenticateClient(c *gin.Context) (*storage.Client, bool) {
	id, secret, ok := c.Request.BasicAuth()
	if ok {
		if unescaped, err := url.QueryUnescape(id); err == nil {
			id = unescaped
		}
		if unescaped, err := url.QueryUnescape(secret); err == nil {
			secret = unescaped
		}
	} else {
		id = c.PostForm("client_id")
		secret = c.PostForm("client_secret")
	}

	if id == "" || secret == "" {
		h.unauthorized(c)
		return nil, false
	}

	client, err := h.store.GetClient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrClientNotFound) {
			h.unauthorized(c)
			return nil, false
		}
		h.internalError(c, "Failed to look up client", err)
		return nil, false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
		h.logger.Info("Rejected client credentials",
			"component", "oauth",
			"client_id", id,
		)
		h.unauthorized(c)
		return nil, false
	}

	return client, true
}

// negotiateScope grants the requested scopes when the client holds all of
// them, or the client's full registered set when the request names none.
func (h *OAuthHandler) negotiateScope(c *gin.Context, client *storage.Client) (string, bool) {
	requested := strings.Fields(c.PostForm("scope"))
	if len(requested) == 0 {
		return strings.Join(client.Scopes, " "), true
	}

	registered := make(map[string]bool, len(client.Scopes))
	for _, s := range client.Scopes {
		registered[s] = true
	}

	for _, s := range requested {
		if !registered[s] {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_scope",
				"error_description": "scope " + s + " is not registered for this client",
			})
			return "", false
		}
	}

	return strings.Join(requested, " "), true
}

func (h *OAuthHandler) unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="authvital-sim"`)
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":             "invalid_client",
		"error_description": "client authentication failed",
	})
}

func (h *OAuthHandler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg,
		"component", "oauth",
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "server_error",
	})
}
