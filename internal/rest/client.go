package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/routes"
)

// Client issues one HTTP call per request against a route table. It is
// pure request/response: it never touches session state and never
// retries.
type Client struct {
	baseURL string
	table   *routes.Table
	httpc   *http.Client
}

// NewClient creates a Client for the API served at baseURL.
func NewClient(baseURL string, table *routes.Table) *Client {
	return &Client{
		baseURL: baseURL,
		table:   table,
		httpc:   &http.Client{},
	}
}

// serverError is the error body the server writes on non-2xx statuses.
type serverError struct {
	Error string `json:"error"`
}

// Do resolves the action via the route table, issues exactly one HTTP
// call and decodes the response into out (which may be nil). Every
// failure is reported as a *Error tagged with the action.
func (c *Client) Do(ctx context.Context, action routes.Action, params routes.Params, body any, out any) error {
	route := c.table.Lookup(action)
	path := route.Path(params)

	var reqBody io.Reader
	if route.Method != http.MethodGet {
		if body == nil {
			body = struct{}{}
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(action, &Error{
				Action: action,
				Kind:   KindTransport,
				cause:  errors.Wrap(err, "failed to marshal request body"),
			})
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, route.Method, c.baseURL+path, reqBody)
	if err != nil {
		return c.fail(action, &Error{
			Action: action,
			Kind:   KindTransport,
			cause:  errors.Wrap(err, "failed to build request"),
		})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return c.fail(action, &Error{
			Action: action,
			Kind:   KindTransport,
			cause:  err,
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(action, &Error{
			Action: action,
			Kind:   KindTransport,
			cause:  errors.Wrap(err, "failed to read response body"),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverErr := serverError{}
		_ = json.Unmarshal(respBody, &serverErr)
		return c.fail(action, &Error{
			Action:     action,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    serverErr.Error,
		})
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return c.fail(action, &Error{
				Action: action,
				Kind:   KindDecode,
				cause:  errors.Wrap(err, "failed to decode response body"),
			})
		}
	}

	klog.V(1).Infof("[%s_%s] %s %s: %d", c.table.Name, action, route.Method, path, resp.StatusCode)
	return nil
}

func (c *Client) fail(action routes.Action, reqErr *Error) error {
	klog.Errorf("[%s_%s] request failed: %v", c.table.Name, action, reqErr)
	return reqErr
}

// Request issues the action and returns the decoded response typed per
// that action.
func Request[T any](ctx context.Context, c *Client, action routes.Action, params routes.Params, body any) (T, error) {
	var out T
	if err := c.Do(ctx, action, params, body, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
