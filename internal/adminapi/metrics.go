package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/agrinet/becknmart/internal/webserver"
	"github.com/agrinet/becknmart/pkg/metrics"
)

type metricPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

func registerMetricRoutes() {
	webserver.ApiGET("/metrics/:name", queryMetric)
}

// queryMetric recorded points of one series, start/end default to the last hour
func queryMetric(c echo.Context) error {
	now := time.Now()
	start, end := now.Add(-time.Hour), now
	for _, p := range []struct {
		param string
		dst   *time.Time
	}{{"start", &start}, {"end", &end}} {
		v := strings.TrimSpace(c.QueryParam(p.param))
		if v == "" {
			continue
		}
		t, err := dateparse.ParseLocal(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_RANGE", "Unable to parse "+p.param, err.Error())
		}
		*p.dst = t
	}
	if !end.After(start) {
		return fail(c, http.StatusBadRequest, "INVALID_RANGE", "end must be after start", nil)
	}

	// end is exclusive
	points, err := metrics.Query(c.Param("name"), start.Unix(), end.Unix()+1)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metric", err.Error())
	}
	out := make([]metricPoint, 0, len(points))
	for _, p := range points {
		out = append(out, metricPoint{Timestamp: p.Timestamp, Value: p.Value})
	}
	return ok(c, out)
}
