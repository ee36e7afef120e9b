package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acme/catalog-console/internal/api/dto"
	"github.com/acme/catalog-console/internal/catalog"
	"github.com/acme/catalog-console/internal/events"
)

// ProductHandler handles product CRUD requests
type ProductHandler struct {
	logger    *slog.Logger
	products  ProductStore
	publisher events.Publisher
}

// NewProductHandler creates a new ProductHandler instance
func NewProductHandler(deps *Dependencies) *ProductHandler {
	return &ProductHandler{
		logger:    deps.Logger,
		products:  deps.Products,
		publisher: deps.Publisher,
	}
}

// publishProductEvent announces a catalog change to webhook subscribers
func (h *ProductHandler) publishProductEvent(eventType string, p *catalog.Product) {
	payload := map[string]any{
		"id":  p.ID,
		"sku": p.SKU,
	}
	if eventType != events.ProductDeleted {
		payload["name"] = p.Name
		payload["price"] = p.Price
	}

	h.publisher.Publish(events.Event{Type: eventType, Payload: payload})
}

// List handles GET /api/products/
func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid query parameters"})
		return
	}

	products, err := h.products.List(c.Request.Context(), catalog.ListFilter{
		Search:   req.Search,
		Ordering: req.Ordering,
		Page:     req.Page,
	})
	if err != nil {
		h.logger.Error("Failed to list products", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": products})
}

// Create handles POST /api/products/
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "sku is required"})
		return
	}

	product := catalog.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Active:      true,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := h.products.Create(c.Request.Context(), &product); err != nil {
		if errors.Is(err, catalog.ErrDuplicateSKU) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "sku already exists"})
			return
		}
		h.logger.Error("Failed to create product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create product"})
		return
	}

	h.publishProductEvent(events.ProductCreated, &product)
	c.JSON(http.StatusCreated, product)
}

// Get handles GET /api/products/:id/
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
			return
		}
		h.logger.Error("Failed to get product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// Update handles PUT /api/products/:id/
func (h *ProductHandler) Update(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "sku is required"})
		return
	}

	product := catalog.Product{
		ID:          c.Param("id"),
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Active:      true,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := h.products.Update(c.Request.Context(), &product); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		case errors.Is(err, catalog.ErrDuplicateSKU):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "sku already exists"})
		default:
			h.logger.Error("Failed to update product", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to update product"})
		}
		return
	}

	h.publishProductEvent(events.ProductUpdated, &product)
	c.JSON(http.StatusOK, product)
}

// Delete handles DELETE /api/products/:id/
func (h *ProductHandler) Delete(c *gin.Context) {
	product, err := h.products.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
			return
		}
		h.logger.Error("Failed to delete product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to delete product"})
		return
	}

	h.publishProductEvent(events.ProductDeleted, product)
	c.Status(http.StatusNoContent)
}
