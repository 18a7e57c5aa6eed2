// Package usfapi is the client of the external survey REST API (the /usf endpoints).
package usfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/usfbank/surveyweb/internal/errors"
	"github.com/usfbank/surveyweb/internal/telemetry"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the external API. It is safe for concurrent use; per-user state lives in Conn.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		http:    hc,
	}
}

// Credentials are the external API's session cookies held for one browser session, by cookie name.
type Credentials map[string]string

func (c Credentials) clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Conn binds the client to the credentials of one browser session.
// Cookies set by the API are folded back into the credentials after every call.
type Conn struct {
	c       *Client
	cred    Credentials
	changed bool
}

func (c *Client) Conn(cred Credentials) *Conn {
	return &Conn{c: c, cred: cred.clone()}
}

// Credentials returns the credentials as updated by the calls made so far.
func (cn *Conn) Credentials() Credentials {
	return cn.cred.clone()
}

// Changed reports whether the API set or cleared any cookie since the Conn was created.
func (cn *Conn) Changed() bool {
	return cn.changed
}

type errorBody struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// do sends a JSON request and decodes the JSON response into out when out is not nil.
func (cn *Conn) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := cn.c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Internal(fmt.Errorf("usfapi: %s: marshal request: %w", op, err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Internal(fmt.Errorf("usfapi: %s: build request: %w", op, err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range cn.cred {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	start := time.Now()
	resp, err := cn.c.http.Do(req)
	if err != nil {
		telemetry.ObserveUpstream(op, 0, time.Since(start))
		slog.ErrorContext(ctx, "usfapi: request failed", "op", op, "method", method, "path", path, "error", err)
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("survey service unavailable"),
			errors.WithCause(fmt.Errorf("usfapi: %s: %w", op, err)),
		)
	}
	defer resp.Body.Close()

	telemetry.ObserveUpstream(op, resp.StatusCode, time.Since(start))
	cn.keepCookies(resp.Cookies())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.New(errors.CodeUnavailable, errors.WithCause(fmt.Errorf("usfapi: %s: read body: %w", op, err)))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		slog.WarnContext(ctx, "usfapi: request rejected", "op", op, "method", method, "path", path, "status", resp.StatusCode)
		return statusError(op, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Internal(fmt.Errorf("usfapi: %s: decode response: %w", op, err))
	}

	return nil
}

func statusError(op string, status int, raw []byte) error {
	msg := http.StatusText(status)

	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}

	return errors.New(errors.FromHTTPStatus(status),
		errors.WithMessagef("%s", msg),
		errors.WithCause(fmt.Errorf("usfapi: %s: status %d", op, status)),
	)
}

func (cn *Conn) keepCookies(cookies []*http.Cookie) {
	now := time.Now()
	for _, ck := range cookies {
		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(now)) || ck.Value == ""
		if expired {
			if _, ok := cn.cred[ck.Name]; ok {
				delete(cn.cred, ck.Name)
				cn.changed = true
			}
			continue
		}

		if cn.cred[ck.Name] != ck.Value {
			cn.cred[ck.Name] = ck.Value
			cn.changed = true
		}
	}
}
