// Package remote talks to the authoritative event store over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	apperrors "plancal/internal/errors"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// maxBody bounds how much of a response body is read.
const maxBody = 8 << 20

// Client issues event CRUD requests against {base}/events.
type Client struct {
	base string
	http *http.Client
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:5000/api".
	BaseURL string
	// Token is sent as "Authorization: Bearer <token>" when non-empty.
	Token string
	// Timeout bounds every request; zero means 15s.
	Timeout time.Duration
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// NewClient builds a Client. The bearer token is attached by an oauth2
// transport wrapping the base client.
func NewClient(ctx context.Context, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	if opts.Token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
		authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.Token,
			TokenType:   "Bearer",
		}))
		authed.Timeout = hc.Timeout
		hc = authed
	}
	return &Client{
		base: strings.TrimRight(opts.BaseURL, "/"),
		http: hc,
	}
}

type createResponse struct {
	SaveEventID struct {
		InsertID int64 `json:"insertId"`
	} `json:"saveEventId"`
}

// FetchAll loads every event visible to the token.
func (c *Client) FetchAll(ctx context.Context) (model.Listing, error) {
	var out model.Listing
	if err := c.do(ctx, "fetch", http.MethodGet, c.base+"/events", nil, &out); err != nil {
		return model.Listing{}, err
	}
	appLog.Debug("remote fetch completed", "event_count", len(out.Events), "url", redactURL(c.base))
	return out, nil
}

// Create stores a new event and returns the id assigned by the store.
// ev.ID is ignored.
func (c *Client) Create(ctx context.Context, ev model.Event) (int64, error) {
	ev.ID = 0
	var out createResponse
	if err := c.do(ctx, "create", http.MethodPost, c.base+"/events", ev, &out); err != nil {
		return 0, err
	}
	if out.SaveEventID.InsertID == 0 {
		return 0, apperrors.NetworkFailure("create", errors.New("response carries no insertId"))
	}
	return out.SaveEventID.InsertID, nil
}

// Update replaces the stored record for ev.ID with ev.
func (c *Client) Update(ctx context.Context, ev model.Event) error {
	if !ev.HasID() {
		return apperrors.InvalidInput("update requires an event id")
	}
	return c.do(ctx, "update", http.MethodPut, c.eventURL(ev.ID), ev, nil)
}

// Delete removes the event with the given id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, c.eventURL(id), nil, nil)
}

func (c *Client) eventURL(id int64) string {
	return c.base + "/events/" + strconv.FormatInt(id, 10)
}

// do sends one JSON request. Transport errors, non-2xx statuses and
// undecodable bodies all surface as NETWORK_FAILURE.
func (c *Client) do(ctx context.Context, op, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("remote %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		appLog.Error("remote request failed", err, "op", op, "url", redactURL(url))
		return apperrors.NetworkFailure(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return apperrors.NetworkFailure(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appLog.Error("remote request rejected", errors.New(resp.Status),
			"op", op, "status", resp.StatusCode, "url", redactURL(url))
		return apperrors.HTTPStatus(op, resp.StatusCode)
	}

	appLog.Debug("remote request done", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return apperrors.NetworkFailure(op, errors.New("empty response body"))
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NetworkFailure(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// redactURL keeps scheme and host only, so logs never carry paths or
// query strings.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redactedSuffix
}
