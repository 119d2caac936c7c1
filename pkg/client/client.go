// Package client is a small HTTP client for a playcast relay. It speaks the
// same fragment/sync protocol the server exposes: Sync to find a joinable
// fragment, Start for the signup payload, Fragment for full/delta blobs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Sync is the body of a successful catch-up response.
type Sync struct {
	Tick             int64   `json:"tick"`
	EndTick          int64   `json:"endtick"`
	MaxTick          int64   `json:"maxtick"`
	RTDelay          float64 `json:"rtdelay"`
	RcvAge           float64 `json:"rcvage"`
	Fragment         int     `json:"fragment"`
	SignupFragment   int     `json:"signup_fragment"`
	TPS              int64   `json:"tps"`
	KeyframeInterval int64   `json:"keyframe_interval"`
	Map              string  `json:"map"`
	Protocol         int64   `json:"protocol"`
	TokenRedirect    string  `json:"token_redirect,omitempty"`
}

// StatusError reports a non-2xx relay answer together with the X-Reason the
// relay attached to it.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("relay returned %d", e.Code)
	}
	return fmt.Sprintf("relay returned %d: %s", e.Code, e.Reason)
}

// Retryable reports whether the relay asked us to check back soon rather
// than rejecting the request outright.
func (e *StatusError) Retryable() bool { return e.Code == http.StatusMethodNotAllowed }

// Client talks to one match broadcast on one relay.
type Client struct {
	base  string
	token string
	hc    *http.Client
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client, e.g. to set timeouts.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// New returns a client for the match identified by token on the relay at
// base (scheme://host[:port]).
func New(base, token string, opts ...Option) *Client {
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		hc:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) url(parts ...string) string {
	return c.base + "/" + c.token + "/" + strings.Join(parts, "/")
}

// SyncAt asks the relay where to join the broadcast. fragment < 0 means "let
// the relay pick the live edge".
func (c *Client) SyncAt(ctx context.Context, fragment int) (*Sync, error) {
	u := c.url("sync")
	if fragment >= 0 {
		u += "?fragment=" + strconv.Itoa(fragment)
	}
	body, _, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var s Sync
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return &s, nil
}

// Sync asks the relay for the live edge.
func (c *Client) Sync(ctx context.Context) (*Sync, error) {
	return c.SyncAt(ctx, -1)
}

// Start fetches the broadcast start payload advertised at the given signup
// fragment, decompressed.
func (c *Client) Start(ctx context.Context, fragment int) ([]byte, error) {
	return c.blob(ctx, c.url(strconv.Itoa(fragment), "start"))
}

// Fragment fetches one blob field ("full" or "delta") of a fragment,
// decompressed.
func (c *Client) Fragment(ctx context.Context, fragment int, field string) ([]byte, error) {
	return c.blob(ctx, c.url(strconv.Itoa(fragment), field))
}

// Metadata fetches the numeric summary of one fragment.
func (c *Client) Metadata(ctx context.Context, fragment int) (map[string]int64, error) {
	body, _, err := c.get(ctx, c.url(strconv.Itoa(fragment)))
	if err != nil {
		return nil, err
	}
	var meta map[string]int64
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode fragment metadata: %w", err)
	}
	return meta, nil
}

func (c *Client) blob(ctx context.Context, u string) ([]byte, error) {
	body, hdr, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if hdr.Get("Content-Encoding") != "gzip" {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open gzip blob: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflate blob: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	// the relay marks payloads itself; keep the transport from negotiating
	// its own encoding on top
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &StatusError{Code: resp.StatusCode, Reason: resp.Header.Get("X-Reason")}
	}
	return body, resp.Header, nil
}
