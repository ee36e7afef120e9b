package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		want    columnMap
		wantErr bool
	}{
		{
			name:   "canonical names",
			header: []string{"sku", "name", "description", "price"},
			want:   columnMap{sku: 0, name: 1, description: 2, price: 3},
		},
		{
			name:   "aliases",
			header: []string{"SKU", "Title", "Desc", "Cost"},
			want:   columnMap{sku: 0, name: 1, description: 2, price: 3},
		},
		{
			name:   "reordered with extras",
			header: []string{"price", "vendor", "sku", "name"},
			want:   columnMap{sku: 2, name: 3, description: -1, price: 0},
		},
		{
			name:   "sku only",
			header: []string{"sku"},
			want:   columnMap{sku: 0, name: -1, description: -1, price: -1},
		},
		{
			name:    "no sku column",
			header:  []string{"name", "price"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mapHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRow(t *testing.T) {
	cols := columnMap{sku: 0, name: 1, description: 2, price: 3}

	t.Run("full row", func(t *testing.T) {
		row, err := cols.parseRow([]string{" ABC-1 ", "Widget", "A widget", "9.99"})
		require.NoError(t, err)
		assert.Equal(t, "ABC-1", row.SKU)
		assert.Equal(t, "Widget", row.Name)
		assert.Equal(t, "A widget", row.Description)
		require.NotNil(t, row.Price)
		assert.Equal(t, 9.99, *row.Price)
	})

	t.Run("empty price keeps nil", func(t *testing.T) {
		row, err := cols.parseRow([]string{"ABC-1", "Widget", "", ""})
		require.NoError(t, err)
		assert.Nil(t, row.Price)
	})

	t.Run("short record", func(t *testing.T) {
		row, err := cols.parseRow([]string{"ABC-1", "Widget"})
		require.NoError(t, err)
		assert.Equal(t, "Widget", row.Name)
		assert.Empty(t, row.Description)
		assert.Nil(t, row.Price)
	})

	t.Run("missing sku", func(t *testing.T) {
		_, err := cols.parseRow([]string{"  ", "Widget", "", "1.00"})
		assert.Error(t, err)
	})

	t.Run("unparseable price imports without one", func(t *testing.T) {
		row, err := cols.parseRow([]string{"ABC-1", "Widget", "", "cheap"})
		require.NoError(t, err)
		assert.Equal(t, "ABC-1", row.SKU)
		assert.Nil(t, row.Price)
	})
}

func TestCountDataRows(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("rows after header", func(t *testing.T) {
		path := write("three.csv", "sku,name\nA,one\nB,two\nC,three\n")
		count, err := countDataRows(path)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("header only", func(t *testing.T) {
		path := write("header.csv", "sku,name\n")
		count, err := countDataRows(path)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("empty file", func(t *testing.T) {
		path := write("empty.csv", "")
		count, err := countDataRows(path)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := countDataRows(filepath.Join(dir, "nope.csv"))
		assert.Error(t, err)
	})
}
