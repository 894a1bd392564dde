package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fed-stew/authvital/internal/idgen"
	"github.com/fed-stew/authvital/internal/simulator/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler handles client registration and failure injection
type AdminHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		store:  store,
		logger: logger,
	}
}

// CreateClient registers a new OAuth client. The generated secret is
// returned exactly once; only its bcrypt hash is stored.
// POST /admin/clients
func (h *AdminHandler) CreateClient(c *gin.Context) {
	var req struct {
		Name   string   `json:"name" binding:"required"`
		Scopes []string `json:"scopes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	secret, err := idgen.NewSecret()
	if err != nil {
		h.internalError(c, "Failed to generate client secret", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(c, "Failed to hash client secret", err)
		return
	}

	if req.Scopes == nil {
		req.Scopes = []string{}
	}

	client := &storage.Client{
		ID:         idgen.NewClient(),
		Name:       req.Name,
		SecretHash: string(hash),
		Scopes:     req.Scopes,
	}

	if err := h.store.CreateClient(c.Request.Context(), client); err != nil {
		h.internalError(c, "Failed to create client", err)
		return
	}

	h.logger.Info("Registered client",
		"component", "admin",
		"client_id", client.ID,
		"name", client.Name,
	)

	c.JSON(http.StatusCreated, gin.H{
		"client_id":     client.ID,
		"client_secret": secret,
		"name":          client.Name,
		"scopes":        client.Scopes,
		"created_at":    client.CreatedAt.Format(time.RFC3339),
	})
}

// ListClients returns all registered clients
// GET /admin/clients
func (h *AdminHandler) ListClients(c *gin.Context) {
	clients, err := h.store.ListClients(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to list clients", err)
		return
	}

	response := make([]gin.H, 0, len(clients))
	for _, client := range clients {
		response = append(response, clientResponse(client))
	}

	c.JSON(http.StatusOK, response)
}

// GetClient returns a single client by ID
// GET /admin/clients/:id
func (h *AdminHandler) GetClient(c *gin.Context) {
	client, err := h.store.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Client not found",
				"code":  "CLIENT_NOT_FOUND",
			})
			return
		}
		h.internalError(c, "Failed to get client", err)
		return
	}

	c.JSON(http.StatusOK, clientResponse(client))
}

// DeleteClient removes a client and all tokens issued to it
// DELETE /admin/clients/:id
func (h *AdminHandler) DeleteClient(c *gin.Context) {
	clientID := c.Param("id")

	if err := h.store.DeleteClient(c.Request.Context(), clientID); err != nil {
		if errors.Is(err, storage.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Client not found",
				"code":  "CLIENT_NOT_FOUND",
			})
			return
		}
		h.internalError(c, "Failed to delete client", err)
		return
	}

	h.logger.Info("Deleted client",
		"component", "admin",
		"client_id", clientID,
	)

	c.Status(http.StatusNoContent)
}

// SetFailures configures how many upcoming token requests fail for a client
// POST /admin/clients/:id/failures
func (h *AdminHandler) SetFailures(c *gin.Context) {
	var req struct {
		Count *int `json:"count" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	clientID := c.Param("id")

	if err := h.store.SetFailures(c.Request.Context(), clientID, *req.Count); err != nil {
		switch {
		case errors.Is(err, storage.ErrClientNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Client not found",
				"code":  "CLIENT_NOT_FOUND",
			})
		case errors.Is(err, storage.ErrInvalidFailures):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "count must not be negative",
				"code":  "INVALID_REQUEST",
			})
		default:
			h.internalError(c, "Failed to set failures", err)
		}
		return
	}

	h.logger.Info("Configured failure injection",
		"component", "admin",
		"client_id", clientID,
		"count", *req.Count,
	)

	c.JSON(http.StatusOK, gin.H{
		"client_id": clientID,
		"fail_next": *req.Count,
	})
}

func clientResponse(client *storage.Client) gin.H {
	scopes := client.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return gin.H{
		"client_id":  client.ID,
		"name":       client.Name,
		"scopes":     scopes,
		"fail_next":  client.FailNext,
		"created_at": client.CreatedAt.Format(time.RFC3339),
		"updated_at": client.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *AdminHandler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg,
		"component", "admin",
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
}
