package worker

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/acme/catalog-console/internal/catalog"
)

// headerAliases maps accepted spreadsheet column names onto product fields
var headerAliases = map[string]string{
	"sku":         "sku",
	"name":        "name",
	"title":       "name",
	"description": "description",
	"desc":        "description",
	"price":       "price",
	"cost":        "price",
}

// columnMap holds the resolved column index per product field, -1 when the
// upload has no column for it
type columnMap struct {
	sku         int
	name        int
	description int
	price       int
}

// mapHeader resolves a CSV header row into a columnMap. Only the SKU column
// is mandatory; everything else degrades to empty values.
func mapHeader(header []string) (columnMap, error) {
	cols := columnMap{sku: -1, name: -1, description: -1, price: -1}

	for i, cell := range header {
		switch headerAliases[strings.ToLower(strings.TrimSpace(cell))] {
		case "sku":
			cols.sku = i
		case "name":
			if cols.name == -1 {
				cols.name = i
			}
		case "description":
			if cols.description == -1 {
				cols.description = i
			}
		case "price":
			if cols.price == -1 {
				cols.price = i
			}
		}
	}

	if cols.sku == -1 {
		return cols, fmt.Errorf("SKU header not found")
	}
	return cols, nil
}

// cell returns a trimmed field value, empty when the column is absent or the
// row is too short
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseRow converts one CSV record into an import row. Only a row without a
// SKU value is invalid; a price that does not parse imports as no price.
func (c columnMap) parseRow(record []string) (catalog.ImportRow, error) {
	row := catalog.ImportRow{
		SKU:         cell(record, c.sku),
		Name:        cell(record, c.name),
		Description: cell(record, c.description),
	}

	if row.SKU == "" {
		return row, fmt.Errorf("missing sku")
	}

	if raw := cell(record, c.price); raw != "" {
		if price, err := strconv.ParseFloat(raw, 64); err == nil {
			row.Price = &price
		}
	}

	return row, nil
}

// countDataRows returns the number of rows after the header, counting
// malformed rows too so progress totals reflect the whole upload
func countDataRows(filePath string) (int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var count int64 = -1 // skip the header row
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read upload: %w", err)
		}
		count++
	}

	if count < 0 {
		count = 0
	}
	return count, nil
}
