package marketplace

import (
	"strings"

	"github.com/agrinet/becknmart/internal/domain"
	"golang.org/x/text/cases"
)

// AllCategories disables the category filter
const AllCategories = "All"

// Filter narrows a catalog by category and free text
type Filter struct {
	Category string
	Query    string
}

func (f Filter) empty() bool {
	return (f.Category == "" || f.Category == AllCategories) && strings.TrimSpace(f.Query) == ""
}

// Apply returns the matching items in their original order
func (f Filter) Apply(items []domain.CatalogItem) []domain.CatalogItem {
	if f.empty() {
		return items
	}
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Query))
	out := make([]domain.CatalogItem, 0, len(items))
	for _, it := range items {
		if f.Category != "" && f.Category != AllCategories && it.Category != f.Category {
			continue
		}
		if query != "" && !matchText(fold, query, it) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchText(fold cases.Caser, query string, it domain.CatalogItem) bool {
	for _, field := range []string{it.Title, it.Description, it.Provider, it.Location} {
		if strings.Contains(fold.String(field), query) {
			return true
		}
	}
	return false
}

// Categories "All" followed by each distinct category in first-seen order
func Categories(items []domain.CatalogItem) []string {
	out := []string{AllCategories}
	seen := make(map[string]bool)
	for _, it := range items {
		if it.Category == "" || seen[it.Category] {
			continue
		}
		seen[it.Category] = true
		out = append(out, it.Category)
	}
	return out
}
