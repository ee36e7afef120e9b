package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acme/catalog-console/internal/api/dto"
	"github.com/acme/catalog-console/internal/webhook"
)

// WebhookHandler handles subscription CRUD, manual test dispatch, and
// delivery log reads
type WebhookHandler struct {
	logger        *slog.Logger
	subscriptions SubscriptionStore
	logs          LogReader
	dispatcher    TestDispatcher
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(deps *Dependencies) *WebhookHandler {
	return &WebhookHandler{
		logger:        deps.Logger,
		subscriptions: deps.Subscriptions,
		logs:          deps.Logs,
		dispatcher:    deps.Dispatcher,
	}
}

// List handles GET /api/webhooks/
// An optional enabled=true|false query parameter filters the list
func (h *WebhookHandler) List(c *gin.Context) {
	var enabled *bool
	if raw := c.Query("enabled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid enabled filter"})
			return
		}
		enabled = &v
	}

	subs, err := h.subscriptions.List(c.Request.Context(), enabled)
	if err != nil {
		h.logger.Error("Failed to list webhooks", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list webhooks"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// Create handles POST /api/webhooks/
func (h *WebhookHandler) Create(c *gin.Context) {
	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	sub := webhook.Subscription{
		URL:     req.URL,
		Event:   req.Event,
		Enabled: true,
	}
	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}

	if err := h.subscriptions.Create(c.Request.Context(), &sub); err != nil {
		switch {
		case errors.Is(err, webhook.ErrMissingURL), errors.Is(err, webhook.ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		default:
			h.logger.Error("Failed to create webhook", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create webhook"})
		}
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// Update handles PUT /api/webhooks/:id/
func (h *WebhookHandler) Update(c *gin.Context) {
	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	sub := webhook.Subscription{
		ID:      c.Param("id"),
		URL:     req.URL,
		Event:   req.Event,
		Enabled: true,
	}
	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}

	if err := h.subscriptions.Update(c.Request.Context(), &sub); err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		case errors.Is(err, webhook.ErrMissingURL), errors.Is(err, webhook.ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		default:
			h.logger.Error("Failed to update webhook", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to update webhook"})
		}
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Delete handles DELETE /api/webhooks/:id/
// Removal is immediate: later events no longer match the subscription.
// Existing delivery logs are retained.
func (h *WebhookHandler) Delete(c *gin.Context) {
	if err := h.subscriptions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, webhook.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
			return
		}
		h.logger.Error("Failed to delete webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to delete webhook"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Test handles POST /api/webhooks/:id/test/
// Sends one synchronous delivery with the given payload, ignoring the
// subscription's event filter and enabled flag
func (h *WebhookHandler) Test(c *gin.Context) {
	var req dto.TestDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	if _, err := h.dispatcher.TestDispatch(c.Request.Context(), c.Param("id"), req.Payload); err != nil {
		if errors.Is(err, webhook.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
			return
		}
		h.logger.Error("Failed to test webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to test webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "triggered"})
}

// Logs handles GET /api/webhooks/:id/logs/
// Returns the newest delivery attempts first. Logs survive subscription
// deletion, so no existence check is made against the registry.
func (h *WebhookHandler) Logs(c *gin.Context) {
	entries, err := h.logs.List(c.Request.Context(), c.Param("id"), webhook.DefaultLogPage)
	if err != nil {
		h.logger.Error("Failed to read delivery logs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to read logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
