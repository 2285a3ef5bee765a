package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agrinet/becknmart/internal/marketplace"
	"github.com/agrinet/becknmart/internal/webserver"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type marketplaceSummary struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Network   bool   `json:"network"`
	Mounted   bool   `json:"mounted"`
	Local     int    `json:"local"`
	Broadcast int    `json:"broadcast"`
}

func registerMarketplaceRoutes() {
	webserver.ApiGET("/marketplaces", listMarketplaces)
	webserver.ApiGET("/marketplaces/:name/products", listMarketplaceProducts)
	webserver.ApiGET("/marketplaces/:name/categories", listMarketplaceCategories)
}

func listMarketplaces(c echo.Context) error {
	views := GetAppContext(c).Marketplaces().Views()
	out := make([]marketplaceSummary, 0, len(views))
	for _, v := range views {
		m := v.Marketplace()
		out = append(out, marketplaceSummary{
			Name:      m.Name,
			Title:     m.Title,
			Network:   m.Network,
			Mounted:   v.Mounted(),
			Local:     len(m.Items),
			Broadcast: v.BroadcastCount(),
		})
	}
	return ok(c, out)
}

func lookupView(c echo.Context) (*marketplace.View, error) {
	name := c.Param("name")
	v, found := GetAppContext(c).Marketplaces().Get(name)
	if !found {
		return nil, fail(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Marketplace %s not found", name), nil)
	}
	return v, nil
}

// listMarketplaceProducts the composed catalog, local items first.
// format=csv or format=xlsx downloads the filtered list without paging.
func listMarketplaceProducts(c echo.Context) error {
	v, err := lookupView(c)
	if v == nil {
		return err
	}
	items := marketplace.Filter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Query:    c.QueryParam("q"),
	}.Apply(v.Catalog())

	name := v.Marketplace().Name
	switch strings.ToLower(c.QueryParam("format")) {
	case "csv":
		var buf bytes.Buffer
		if err := marketplace.WriteCSV(&buf, items); err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export catalog", err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.csv", name))
		return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := marketplace.WriteXLSX(&buf, items); err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export catalog", err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.xlsx", name))
		return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
	case "", "json":
	default:
		return fail(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be json, csv or xlsx", nil)
	}

	page, pageSize := parsePagination(c)
	start, end := pageSlice(len(items), page, pageSize)
	return paged(c, items[start:end], int64(len(items)), page, pageSize)
}

func listMarketplaceCategories(c echo.Context) error {
	v, err := lookupView(c)
	if v == nil {
		return err
	}
	return ok(c, marketplace.Categories(v.Catalog()))
}
