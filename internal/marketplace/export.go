package marketplace

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/agrinet/becknmart/internal/domain"
	"github.com/gocarina/gocsv"
)

const exportSheet = "Sheet1"

var exportHeaders = []string{
	"id", "title", "description", "category", "provider",
	"location", "price", "rating", "image", "is_service",
}

// WriteCSV writes items with a header row
func WriteCSV(w io.Writer, items []domain.CatalogItem) error {
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return gocsv.Marshal(items, w)
}

// WriteXLSX writes items to a single-sheet workbook
func WriteXLSX(w io.Writer, items []domain.CatalogItem) error {
	f := excelize.NewFile()
	for i, h := range exportHeaders {
		f.SetCellValue(exportSheet, cellName(i, 1), h)
	}
	for r, it := range items {
		row := r + 2
		values := []interface{}{
			it.ID, it.Title, it.Description, it.Category, it.Provider,
			it.Location, it.Price, it.Rating, it.Image, it.IsService,
		}
		for c, v := range values {
			f.SetCellValue(exportSheet, cellName(c, row), v)
		}
	}
	return f.Write(w)
}

func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
