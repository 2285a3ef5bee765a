package adminapi

import (
	"net/http"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/webserver"
)

func registerPublishLogRoutes() {
	webserver.ApiGET("/publish-logs", listPublishLogs)
}

// listPublishLogs newest first.
// Filters: item_id, source, since (any format dateparse understands)
func listPublishLogs(c echo.Context) error {
	db := GetDB(c)
	if db == nil {
		return fail(c, http.StatusServiceUnavailable, "DB_DISABLED", "Publish log requires database.enabled", nil)
	}
	query := db.Model(&domain.PublishLog{})

	if itemID := strings.TrimSpace(c.QueryParam("item_id")); itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}
	if source := strings.TrimSpace(c.QueryParam("source")); source != "" {
		query = query.Where("source = ?", source)
	}
	if since := strings.TrimSpace(c.QueryParam("since")); since != "" {
		t, err := dateparse.ParseLocal(since)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_SINCE", "Unable to parse since", err.Error())
		}
		query = query.Where("published_at >= ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query publish logs", err.Error())
	}

	page, pageSize := parsePagination(c)
	var rows []domain.PublishLog
	if err := query.Order("published_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query publish logs", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}
