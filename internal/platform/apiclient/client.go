// Package apiclient talks to the panel API on behalf of the headless editor:
// roster read, schedule read and schedule write. Requests are one-shot; a
// failure is reported to the caller as *availability.NetworkError and never
// retried here.
package apiclient

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

	"github.com/clinic/panel/internal/domain/availability"
	"github.com/clinic/panel/internal/domain/roster"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API rooted at baseURL (for example
// "http://localhost:8000"). timeout bounds each request; 0 disables it.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base url %q", baseURL)
	}
	c := &Client{baseURL: u.String(), http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type rosterPage struct {
	Data    []roster.Doctor `json:"data"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
}

// ListDoctors reads the whole roster, following pages until the server
// reports no more.
func (c *Client) ListDoctors(ctx context.Context) ([]roster.Doctor, error) {
	const pageSize = 200
	var out []roster.Doctor
	for offset := 0; ; offset += pageSize {
		var page rosterPage
		path := fmt.Sprintf("/api/v1/doctors?limit=%d&offset=%d", pageSize, offset)
		if err := c.do(ctx, "load roster", http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			return out, nil
		}
	}
}

// GetAvailability reads the doctor's stored blocks.
func (c *Client) GetAvailability(ctx context.Context, doctorID int64) ([]availability.StoredBlock, error) {
	var rows []availability.StoredBlock
	path := fmt.Sprintf("/api/v1/doctors/%d/availability", doctorID)
	if err := c.do(ctx, "load schedule", http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceAvailability writes the doctor's whole weekly template.
func (c *Client) ReplaceAvailability(ctx context.Context, doctorID int64, req availability.ReplaceRequest) ([]availability.StoredBlock, error) {
	var rows []availability.StoredBlock
	path := fmt.Sprintf("/api/v1/doctors/%d/availability", doctorID)
	if err := c.do(ctx, "save schedule", http.MethodPut, path, req, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &availability.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &availability.NetworkError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Message != "" {
			msg = ae.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &availability.NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &availability.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
