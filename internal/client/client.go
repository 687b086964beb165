// Package client talks to the stockcount JSON API on behalf of an operator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vbonduro/stockcount/internal/api"
	"github.com/vbonduro/stockcount/internal/count"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// APIError is a non-2xx response. Unwrap maps the response onto the same
// errors the server raised so callers can use errors.Is and errors.As.
type APIError struct {
	Status  int
	Message string
	Code    string
	Pending *int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("stockcount returned status %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case api.CodePendingItems:
		if e.Pending != nil {
			return &count.PendingItemsError{Pending: *e.Pending}
		}
	case api.CodeSessionClosed:
		return count.ErrSessionClosed
	case api.CodeReasonRequired:
		return count.ErrReasonRequired
	case api.CodeNegativeQuantity:
		return count.ErrNegativeQuantity
	case api.CodeConfirmationRequired:
		return count.ErrConfirmationRequired
	}
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Token exchanges the shared secret for an operator token.
func (c *Client) Token(ctx context.Context, operator, secret string) (string, error) {
	var out api.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/token", api.TokenRequest{Operator: operator, Secret: secret}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) ListSessions(ctx context.Context, status string) ([]api.Session, error) {
	p := "/sessions"
	if status != "" {
		p += "?status=" + url.QueryEscape(status)
	}
	var out []api.Session
	if err := c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, location string) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, "/sessions", api.CreateSessionRequest{Location: location})
}

func (c *Client) GetSession(ctx context.Context, sessionID int64) (*api.Session, error) {
	return c.session(ctx, http.MethodGet, sessionPath(sessionID, ""), nil)
}

func (c *Client) Scan(ctx context.Context, sessionID int64, code string) (*api.ScanResult, error) {
	var out api.ScanResult
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/scan"), api.CodeRequest{Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddLine(ctx context.Context, sessionID int64, code string) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, sessionPath(sessionID, "/lines"), api.CodeRequest{Code: code})
}

func (c *Client) RecordCount(ctx context.Context, sessionID, lineID int64, quantity int) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, linePath(sessionID, lineID, "count"), api.CountRequest{Quantity: &quantity})
}

func (c *Client) RecordBreakdown(ctx context.Context, sessionID, lineID int64, cases, boxes, pieces int) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, linePath(sessionID, lineID, "count"),
		api.CountRequest{Cases: &cases, Boxes: &boxes, Pieces: &pieces})
}

func (c *Client) MarkNotFound(ctx context.Context, sessionID, lineID int64, confirmed bool) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, linePath(sessionID, lineID, "not-found"), api.NotFoundRequest{Confirmed: confirmed})
}

func (c *Client) Skip(ctx context.Context, sessionID, lineID int64) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, linePath(sessionID, lineID, "skip"), nil)
}

func (c *Client) Finalize(ctx context.Context, sessionID int64) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, sessionPath(sessionID, "/finalize"), nil)
}

func (c *Client) Cancel(ctx context.Context, sessionID int64, reason string) (*api.Session, error) {
	return c.session(ctx, http.MethodPost, sessionPath(sessionID, "/cancel"), api.CancelRequest{Reason: reason})
}

func (c *Client) LookupBatch(ctx context.Context, code string) (*api.Batch, error) {
	var out api.Batch
	if err := c.do(ctx, http.MethodGet, "/batches/lookup?code="+url.QueryEscape(code), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export writes the session's XLSX count sheet to w.
func (c *Client) Export(ctx context.Context, sessionID int64, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, sessionPath(sessionID, "/export"), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

func sessionPath(sessionID int64, suffix string) string {
	return fmt.Sprintf("/sessions/%d%s", sessionID, suffix)
}

func linePath(sessionID, lineID int64, action string) string {
	return fmt.Sprintf("/sessions/%d/lines/%d/%s", sessionID, lineID, action)
}

func (c *Client) session(ctx context.Context, method, path string, body any) (*api.Session, error) {
	var out api.Session
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send performs the request and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call stockcount: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var errBody api.Error
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
		apiErr.Message = errBody.Error
		apiErr.Code = errBody.Code
		apiErr.Pending = errBody.Pending
	}
	return nil, apiErr
}
