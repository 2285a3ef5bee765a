package adminapi

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/agrinet/becknmart/internal/app"
	"github.com/agrinet/becknmart/internal/webserver"
)

// Response envelope shared by all endpoints
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *ListMeta   `json:"meta,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type ListMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// Init registers every API route on the global webserver
func Init() {
	webserver.ApiGET("/healthz", healthz)
	registerNetworkRoutes()
	registerMarketplaceRoutes()
	registerPublishLogRoutes()
	registerBackupRoutes()
	registerMetricRoutes()
}

func healthz(c echo.Context) error {
	return ok(c, map[string]string{"status": "ok"})
}

// GetAppContext the application attached by the webserver middleware
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB nil when the database is disabled
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &ListMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, Response{
		Success: false,
		Error:   code,
		Message: message,
		Details: details,
	})
}

// parsePagination page defaults to 1, pageSize (or perPage) to 20, capped at 500
func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	sizeStr := c.QueryParam("pageSize")
	if sizeStr == "" {
		sizeStr = c.QueryParam("perPage")
	}
	pageSize, _ := strconv.Atoi(sizeStr)
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	// keep (page-1)*pageSize from overflowing
	if maxPage := math.MaxInt32 / pageSize; page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

// pageSlice bounds of page within n items
func pageSlice(n, page, pageSize int) (int, int) {
	if page < 1 || pageSize < 1 || page-1 >= (n+pageSize-1)/pageSize {
		return n, n
	}
	start := (page - 1) * pageSize
	if start > n {
		start = n
	}
	end := start + pageSize
	if end > n {
		end = n
	}
	return start, end
}
