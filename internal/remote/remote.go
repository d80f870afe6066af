// Package remote is the client for the remote entity store: a generic
// "table of rows" API supporting Find, Add, Edit and Delete over typed
// requests. This core only issues Find (reference data) and Add (invoice
// header and lines).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PoalNinh/poscore/internal/pos"
)

// Op is a remote store operation type.
type Op string

// Operations supported by the remote store contract.
const (
	OpFind   Op = "Find"
	OpAdd    Op = "Add"
	OpEdit   Op = "Edit"
	OpDelete Op = "Delete"
)

// Payload is the request body for a remote operation. Find uses
// Selector; Add, Edit and Delete use Rows.
type Payload struct {
	Selector   string            `json:"selector,omitempty"`
	Rows       []any             `json:"rows,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Requester issues one operation against the remote entity store.
// Implemented by Client (production) and testutil.RemoteStub.
type Requester interface {
	Request(ctx context.Context, entity string, op Op, p Payload) (json.RawMessage, error)
}

// Client is the HTTP implementation of Requester.
//
// Requests are POSTed as JSON actions to {base}/tables/{entity}.
// Transport failures are classified as *pos.NetworkError so callers can
// distinguish "the network is down" from "the store rejected the write".
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a remote store client. A zero timeout uses the
// platform transport default.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// requestBody is the wire shape posted to the remote store.
type requestBody struct {
	Action     string            `json:"action"`
	Selector   string            `json:"selector,omitempty"`
	Rows       []any             `json:"rows,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Request implements Requester. It returns the raw response body, which
// the remote store defines as a JSON array of rows for Find.
func (c *Client) Request(ctx context.Context, entity string, op Op, p Payload) (json.RawMessage, error) {
	body, err := json.Marshal(requestBody{
		Action:     string(op),
		Selector:   p.Selector,
		Rows:       p.Rows,
		Properties: p.Properties,
	})
	if err != nil {
		return nil, fmt.Errorf("remote %s %s: marshal: %w", op, entity, err)
	}

	endpoint := fmt.Sprintf("%s/tables/%s", c.baseURL, url.PathEscape(entity))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote %s %s: build request: %w", op, entity, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("ApplicationAccessKey", c.apiKey)
	}

	c.logger.Debug("remote request", "entity", entity, "op", op)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &pos.NetworkError{Entity: entity, Op: string(op), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pos.NetworkError{Entity: entity, Op: string(op), Err: err}
	}

	if resp.StatusCode >= 500 {
		return nil, &pos.NetworkError{
			Entity: entity,
			Op:     string(op),
			Err:    fmt.Errorf("server status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote %s %s: status %d: %s", op, entity, resp.StatusCode, raw)
	}

	return raw, nil
}
