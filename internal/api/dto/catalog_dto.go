// Package dto defines the request and response shapes of the admin API.
package dto

// ProductRequest is the body of product create and update calls
type ProductRequest struct {
	SKU         string   `json:"sku" binding:"required"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Active      *bool    `json:"active"`
}

// ListProductsRequest holds the product list query parameters
type ListProductsRequest struct {
	Search   string `form:"search"`
	Ordering string `form:"ordering"`
	Page     int    `form:"page"`
}

// BulkDeleteRequest guards the catalog-wide delete behind an explicit flag
type BulkDeleteRequest struct {
	Confirm bool `json:"confirm"`
}
