// Package forkifyapi is the HTTP client of the Forkify v2 recipe API.
//
//	GET  <base>/<id>?key=<key>        one recipe
//	GET  <base>?search=<q>&key=<key>  search
//	POST <base>?key=<key>             upload, JSON body
//
// A 404, a body with status "fail", or a malformed id becomes
// state.ErrNotFound. Anything else that goes wrong (network, timeout, other
// status, oversized or undecodable body) becomes state.ErrTransport. There
// is no retry.
package forkifyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/forkify/guard"
	"github.com/hazyhaar/forkify/state"
)

// DefaultBaseURL is the public Forkify endpoint.
const DefaultBaseURL = "https://forkify-api.herokuapp.com/api/v2/recipes"

// Config configures the client.
type Config struct {
	BaseURL   string        // Default: DefaultBaseURL.
	Key       string        // API key, sent as is. Needed for uploads.
	Timeout   time.Duration // Per-request timeout. Default: 10s.
	MaxBytes  int64         // Max response body size. Default: 10MB.
	UserAgent string
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "forkify/1.0"
	}
}

// Client implements state.Source over HTTP.
type Client struct {
	http   *http.Client
	config Config
	logger *slog.Logger
}

var _ state.Source = (*Client)(nil)

// New creates a Client. hc may be nil; its Timeout is overridden by cfg.
func New(cfg Config, hc *http.Client, logger *slog.Logger) *Client {
	cfg.defaults()
	if hc == nil {
		hc = &http.Client{}
	} else {
		c := *hc
		hc = &c
	}
	hc.Timeout = cfg.Timeout
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: hc, config: cfg, logger: logger}
}

// Recipe fetches one recipe by id. A malformed id is not found without a
// request being made.
func (c *Client) Recipe(ctx context.Context, id string) (*state.Recipe, error) {
	if err := guard.RecipeID(id); err != nil {
		return nil, fmt.Errorf("forkifyapi: recipe %q: %w: %v", id, state.ErrNotFound, err)
	}
	u := c.endpoint(url.PathEscape(id), nil)
	env, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("forkifyapi: recipe %s: %w", id, err)
	}
	if env.Data.Recipe == nil {
		return nil, fmt.Errorf("forkifyapi: recipe %s: %w: no recipe in response", id, state.ErrTransport)
	}
	return env.Data.Recipe.State(), nil
}

// Search returns the results for query. No match is an empty slice.
func (c *Client) Search(ctx context.Context, query string) ([]state.Summary, error) {
	u := c.endpoint("", url.Values{"search": {query}})
	env, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("forkifyapi: search %q: %w", query, err)
	}
	out := make([]state.Summary, len(env.Data.Recipes))
	for i, r := range env.Data.Recipes {
		out[i] = r.Summary()
	}
	c.logger.Debug("forkifyapi: search", "query", query, "results", len(out))
	return out, nil
}

// Upload submits a user recipe and returns it as stored by the API.
func (c *Client) Upload(ctx context.Context, up *state.Upload) (*state.Recipe, error) {
	body, err := json.Marshal(FromUpload(up))
	if err != nil {
		return nil, fmt.Errorf("forkifyapi: upload: encode: %w", err)
	}
	env, err := c.do(ctx, http.MethodPost, c.endpoint("", nil), body)
	if err != nil {
		return nil, fmt.Errorf("forkifyapi: upload %q: %w", up.Title, err)
	}
	if env.Data.Recipe == nil {
		return nil, fmt.Errorf("forkifyapi: upload %q: %w: no recipe in response", up.Title, state.ErrTransport)
	}
	r := env.Data.Recipe.State()
	c.logger.Info("forkifyapi: recipe uploaded", "id", r.ID)
	return r, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.config.BaseURL
	if path != "" {
		u += "/" + path
	}
	if q == nil {
		q = url.Values{}
	}
	if c.config.Key != "" {
		q.Set("key", c.config.Key)
	}
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*Envelope, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", state.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", state.ErrTransport, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("forkifyapi: http", "method", method, "status", resp.StatusCode, "duration", time.Since(start))

	raw, err := guard.ReadAll(resp.Body, c.config.MaxBytes)
	if errors.Is(err, guard.ErrTooLarge) {
		return nil, fmt.Errorf("%w: %v", state.ErrTransport, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", state.ErrTransport, err)
	}

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode == http.StatusNotFound || (decodeErr == nil && env.Status == "fail") {
		return nil, fmt.Errorf("%w: %s", state.ErrNotFound, message(&env, resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", state.ErrTransport, message(&env, resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode: %v", state.ErrTransport, decodeErr)
	}
	if env.Status == "error" {
		return nil, fmt.Errorf("%w: %s", state.ErrTransport, message(&env, resp.StatusCode))
	}
	return &env, nil
}

func message(env *Envelope, status int) string {
	if env.Message != "" {
		return fmt.Sprintf("%s (%d)", env.Message, status)
	}
	return fmt.Sprintf("http %d", status)
}
