package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/agrinet/becknmart/config"
)

const (
	ApiPrefix     = "/api/v1"
	AppContextKey = "appCtx"
)

var server *AdminServer

type AdminServer struct {
	root *echo.Echo
	api  *echo.Group
	addr string
}

// Init builds the global server. appCtx is made available to every handler
// under AppContextKey.
func Init(cfg *config.AppConfig, appCtx interface{}) {
	server = NewAdminServer(cfg, appCtx)
}

func NewAdminServer(cfg *config.AppConfig, appCtx interface{}) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/healthz")
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("request",
				zap.String("namespace", "webserver"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})
	if cfg.System.Debug {
		e.Debug = true
	}
	return &AdminServer{
		root: e,
		api:  e.Group(ApiPrefix),
		addr: fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
	}
}

// Echo the underlying router, used by tests
func Echo() *echo.Echo {
	return server.root
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// Listen serves until ctx is done, then shuts down within five seconds
func Listen(ctx context.Context) error {
	s := server
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("Start the management server %s", s.addr)
		errCh <- s.root.Start(s.addr)
	}()
	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		zap.S().Info("Stop the management server")
		return s.root.Shutdown(shutdownCtx)
	}
}
