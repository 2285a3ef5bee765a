// Package client talks to a running becknmart server over its HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"github.com/agrinet/becknmart/internal/domain"
)

const (
	apiPrefix       = "/api/v1"
	defaultTimeout  = 10 * time.Second
	defaultPageSize = 500
)

// APIError a non-success response from the server
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"pageSize"`
	} `json:"meta"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type Client struct {
	baseURL string
	timeout time.Duration
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + apiPrefix + path
}

func check(code int, resp *response) error {
	if code >= http.StatusOK && code < http.StatusMultipleChoices && resp.Success {
		return nil
	}
	return &APIError{Status: code, Code: resp.Error, Message: resp.Message}
}

// Publish sends one item to the server's network
func (c *Client) Publish(ctx context.Context, item domain.CatalogItem) error {
	var code int
	var resp response
	err := gout.POST(c.url("/network/products")).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetJSON(item).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrap(err, "publish request")
	}
	return check(code, &resp)
}

// ListAll every item on the server's network
func (c *Client) ListAll(ctx context.Context) ([]domain.CatalogItem, error) {
	return c.listPaged(ctx, "/network/products")
}

// Catalog the composed catalog of one marketplace
func (c *Client) Catalog(ctx context.Context, marketplace string) ([]domain.CatalogItem, error) {
	return c.listPaged(ctx, "/marketplaces/"+url.PathEscape(marketplace)+"/products")
}

func (c *Client) listPaged(ctx context.Context, path string) ([]domain.CatalogItem, error) {
	var all []domain.CatalogItem
	for page := 1; ; page++ {
		var code int
		var items []domain.CatalogItem
		resp := response{Data: &items}
		err := gout.GET(c.url(path)).
			WithContext(ctx).
			SetTimeout(c.timeout).
			SetQuery(gout.H{"page": page, "pageSize": defaultPageSize}).
			BindJSON(&resp).
			Code(&code).
			Do()
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", path)
		}
		if err := check(code, &resp); err != nil {
			return nil, err
		}
		all = append(all, items...)
		if resp.Meta == nil || len(items) == 0 || int64(len(all)) >= resp.Meta.Total {
			return all, nil
		}
	}
}
