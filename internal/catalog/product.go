package catalog

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no product exists for an id
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateSKU is returned when creating a product with a taken SKU
	ErrDuplicateSKU = errors.New("sku already exists")
)

// Product is a catalog entry
type Product struct {
	ID          string    `db:"id" json:"id"`
	SKU         string    `db:"sku" json:"sku"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Price       *float64  `db:"price" json:"price"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ImportRow is one validated CSV row headed for the upsert batch
type ImportRow struct {
	SKU         string
	Name        string
	Description string
	Price       *float64
}
