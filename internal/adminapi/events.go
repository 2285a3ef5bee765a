package adminapi

import (
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agrinet/becknmart/internal/domain"
)

const (
	sseBufferSize        = 16
	sseHeartbeatInterval = 15 * time.Second
)

// streamNetworkEvents writes one event per publish until the client goes away
func streamNetworkEvents(c echo.Context) error {
	network := GetAppContext(c).Network()
	events := make(chan domain.CatalogItem, sseBufferSize)
	unsubscribe := network.Subscribe(func(item domain.CatalogItem) {
		select {
		case events <- item:
		default:
			zap.L().Warn("sse client too slow, event dropped",
				zap.String("namespace", "webserver"),
				zap.String("item_id", item.ID),
			)
		}
	})
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return nil
	}
	w.Flush()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case item := <-events:
			data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(item)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", network.EventName(), data); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}
