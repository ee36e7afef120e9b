package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// DefaultPageSize bounds product list pages
const DefaultPageSize = 50

// Storage handles all database operations on products
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a new product storage instance
func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates the products table if it does not exist
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate products schema: %w", err)
	}
	return nil
}

// Create inserts a new product
func (s *Storage) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.SKU = strings.TrimSpace(p.SKU)
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, sku, name, description, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID returns a product or ErrNotFound
func (s *Storage) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	query := `
		SELECT id, sku, name, description, price, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	err := s.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// Update replaces the mutable fields of a product
func (s *Storage) Update(ctx context.Context, p *Product) error {
	p.SKU = strings.TrimSpace(p.SKU)
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET sku = $1, name = $2, description = $3, price = $4, active = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := s.db.ExecContext(ctx, query,
		p.SKU, p.Name, p.Description, p.Price, p.Active, p.UpdatedAt, p.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a product, returning its final state for event payloads
func (s *Storage) Delete(ctx context.Context, id string) (*Product, error) {
	var p Product
	query := `
		DELETE FROM products
		WHERE id = $1
		RETURNING id, sku, name, description, price, active, created_at, updated_at
	`

	err := s.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return &p, nil
}

// ListFilter selects and pages the product list
type ListFilter struct {
	Search   string
	Ordering string
	Page     int
	PageSize int
}

// orderColumns whitelists client-supplied ordering fields
var orderColumns = map[string]string{
	"sku":        "sku",
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// orderClause maps an ordering parameter ("name", "-price", ...) to a safe
// ORDER BY expression, defaulting to newest-updated first
func orderClause(ordering string) string {
	desc := strings.HasPrefix(ordering, "-")
	col, ok := orderColumns[strings.TrimPrefix(ordering, "-")]
	if !ok {
		return "updated_at DESC"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// List returns one page of products matching the filter
func (s *Storage) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `
		SELECT id, sku, name, description, price, active, created_at, updated_at
		FROM products
	`
	args := []interface{}{}
	argIdx := 1

	if filter.Search != "" {
		query += fmt.Sprintf(" WHERE (sku ILIKE $%d OR name ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	query += " ORDER BY " + orderClause(filter.Ordering)

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	products := []Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// dedupeBySKU collapses rows sharing a SKU down to the last one. Postgres
// rejects a multi-row ON CONFLICT statement that touches the same row twice.
func dedupeBySKU(rows []ImportRow) []ImportRow {
	deduped := make([]ImportRow, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		row.SKU = strings.TrimSpace(row.SKU)
		if i, ok := seen[row.SKU]; ok {
			deduped[i] = row
			continue
		}
		seen[row.SKU] = len(deduped)
		deduped = append(deduped, row)
	}
	return deduped
}

// UpsertBatch inserts or updates products by SKU. An incoming NULL price
// keeps the stored one; duplicate SKUs within the batch resolve to the last
// row. Returns the number of rows written.
func (s *Storage) UpsertBatch(ctx context.Context, rows []ImportRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	rows = dedupeBySKU(rows)

	valueClauses := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*5)
	argIdx := 1
	for _, row := range rows {
		valueClauses = append(valueClauses,
			fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, NOW(), NOW())", argIdx, argIdx+1, argIdx+2, argIdx+3, argIdx+4))
		args = append(args, uuid.New().String(), row.SKU, row.Name, row.Description, row.Price)
		argIdx += 5
	}

	query := `
		INSERT INTO products (id, sku, name, description, price, created_at, updated_at)
		VALUES ` + strings.Join(valueClauses, ", ") + `
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    price = COALESCE(EXCLUDED.price, products.price),
		    updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to upsert products: %w", err)
	}
	return len(rows), nil
}

// CountProducts returns the total number of products
func (s *Storage) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM products`); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// DeleteBatch removes up to limit products, returning how many went away
func (s *Storage) DeleteBatch(ctx context.Context, limit int) (int64, error) {
	query := `
		DELETE FROM products
		WHERE id IN (SELECT id FROM products LIMIT $1)
	`

	result, err := s.db.ExecContext(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete product batch: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
