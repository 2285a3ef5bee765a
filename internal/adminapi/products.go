package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"

	"github.com/agrinet/becknmart/internal/app"
	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/marketplace"
	"github.com/agrinet/becknmart/internal/store"
	"github.com/agrinet/becknmart/internal/webserver"
	"github.com/agrinet/becknmart/pkg/metrics"
)

// registerNetworkRoutes registers the shared catalog endpoints
func registerNetworkRoutes() {
	webserver.ApiGET("/network/products", listNetworkProducts)
	webserver.ApiGET("/network/products/:id", getNetworkProduct)
	webserver.ApiPOST("/network/products", publishProduct)
	webserver.ApiGET("/network/events", streamNetworkEvents)
	webserver.ApiGET("/network/stats", networkStats)
}

func listNetworkProducts(c echo.Context) error {
	items, err := GetAppContext(c).Network().ListAll()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to list network products", err.Error())
	}
	items = marketplace.Filter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Query:    c.QueryParam("q"),
	}.Apply(items)

	page, pageSize := parsePagination(c)
	start, end := pageSlice(len(items), page, pageSize)
	return paged(c, items[start:end], int64(len(items)), page, pageSize)
}

func getNetworkProduct(c echo.Context) error {
	id := c.Param("id")
	item, err := GetAppContext(c).Network().Get(id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to read product", err.Error())
	}
	return ok(c, item)
}

func publishProduct(c echo.Context) error {
	var item domain.CatalogItem
	if err := c.Bind(&item); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "id is required", nil)
	}
	if err := GetAppContext(c).PublishFrom(c.Request().Context(), app.SourceAPI, item); err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to publish product", err.Error())
	}
	return created(c, item)
}

type ratingStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

type networkStatsResponse struct {
	Count      int              `json:"count"`
	Services   int              `json:"services"`
	Categories map[string]int   `json:"categories"`
	Rating     ratingStats      `json:"rating"`
	Counters   map[string]int64 `json:"counters"`
}

func networkStats(c echo.Context) error {
	items, err := GetAppContext(c).Network().ListAll()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to list network products", err.Error())
	}
	resp := networkStatsResponse{
		Count:      len(items),
		Categories: make(map[string]int),
		Counters:   metrics.Snapshot(),
	}
	var ratings stats.Float64Data
	for _, it := range items {
		if it.IsZero() {
			continue
		}
		if it.IsService {
			resp.Services++
		}
		if it.Category != "" {
			resp.Categories[it.Category]++
		}
		if it.Rating > 0 {
			ratings = append(ratings, it.Rating)
		}
	}
	if len(ratings) > 0 {
		resp.Rating.Mean, _ = ratings.Mean()
		resp.Rating.Median, _ = ratings.Median()
		resp.Rating.Max, _ = ratings.Max()
	}
	return ok(c, resp)
}
