package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ProbeHandler exposes raw Redis keys for development debugging. It is only
// routed outside production.
type ProbeHandler struct {
	logger *slog.Logger
	rdb    *redis.Client
}

// NewProbeHandler creates a new ProbeHandler instance
func NewProbeHandler(deps *Dependencies) *ProbeHandler {
	return &ProbeHandler{
		logger: deps.Logger,
		rdb:    deps.Redis,
	}
}

// Probe handles GET /__redis_probe?key=...
// Returns the raw value of one key, shaped by its Redis type
func (h *ProbeHandler) Probe(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "key required"})
		return
	}

	ctx := c.Request.Context()

	keyType, err := h.rdb.Type(ctx, key).Result()
	if err != nil {
		h.logger.Error("Redis probe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "probe failed"})
		return
	}

	var value any
	switch keyType {
	case "hash":
		value, err = h.rdb.HGetAll(ctx, key).Result()
	case "list":
		value, err = h.rdb.LRange(ctx, key, 0, -1).Result()
	case "none":
		c.JSON(http.StatusNotFound, gin.H{"detail": "key not found"})
		return
	default:
		value, err = h.rdb.Get(ctx, key).Result()
	}
	if err != nil {
		h.logger.Error("Redis probe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "probe failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"type":  keyType,
		"value": value,
	})
}
