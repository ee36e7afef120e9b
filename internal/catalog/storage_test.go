package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		ordering string
		want     string
	}{
		{"", "updated_at DESC"},
		{"sku", "sku ASC"},
		{"-sku", "sku DESC"},
		{"name", "name ASC"},
		{"-price", "price DESC"},
		{"created_at", "created_at ASC"},
		{"-updated_at", "updated_at DESC"},
		// Anything off the whitelist falls back to the default.
		{"id", "updated_at DESC"},
		{"name; DROP TABLE products", "updated_at DESC"},
		{"--sku", "updated_at DESC"},
	}

	for _, tt := range tests {
		t.Run("ordering "+tt.ordering, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.ordering))
		})
	}
}

func TestDedupeBySKU(t *testing.T) {
	price := func(v float64) *float64 { return &v }

	rows := []ImportRow{
		{SKU: "A-1", Name: "first", Price: price(1)},
		{SKU: "B-1", Name: "other"},
		{SKU: " A-1 ", Name: "second"},
		{SKU: "A-1", Name: "third", Price: price(3)},
	}

	got := dedupeBySKU(rows)
	require.Len(t, got, 2)

	// The last row for a SKU wins, keeping its position in the batch.
	assert.Equal(t, "A-1", got[0].SKU)
	assert.Equal(t, "third", got[0].Name)
	require.NotNil(t, got[0].Price)
	assert.Equal(t, 3.0, *got[0].Price)
	assert.Equal(t, "B-1", got[1].SKU)
}

func TestDedupeBySKUNoDuplicates(t *testing.T) {
	rows := []ImportRow{{SKU: "A-1"}, {SKU: "A-2"}}
	assert.Equal(t, rows, dedupeBySKU(rows))
}
