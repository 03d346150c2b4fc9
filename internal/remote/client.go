package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"
)

const maxBody = 8 << 20

// Client talks to the remote store. The session cookie set by Login lives in
// the client's jar and is sent with every later request.
type Client struct {
	base string
	http *http.Client
	jar  *sessionJar
}

type Option func(*Client)

// WithTimeout bounds every request. Zero leaves the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", baseURL)
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar},
		jar:  jar,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// sessionJar holds the session cookies. Reset swaps the inner jar atomically
// so requests in flight never see a half-replaced jar.
type sessionJar struct {
	inner atomic.Pointer[cookiejar.Jar]
}

func newSessionJar() (*sessionJar, error) {
	j := &sessionJar{}
	if err := j.Reset(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *sessionJar) Reset() error {
	fresh, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	j.inner.Store(fresh)
	return nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.Load().SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Load().Cookies(u)
}

func (c *Client) BaseURL() string { return c.base }

// Login opens a session; the remote store answers with an httpOnly cookie.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "senha": password}
	return c.do(ctx, "login", http.MethodPost, "/usuarios/login", body, nil)
}

// Logout ends the session. The local jar is dropped even when the remote
// call fails so no stale credential is reused.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, "logout", http.MethodPost, "/usuarios/logout", nil, nil)
	if jerr := c.jar.Reset(); jerr != nil && err == nil {
		err = fmt.Errorf("logout: reset session: %w", jerr)
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	target := c.base + path

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode payload: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &Error{Op: op, Method: method, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:      op,
			Method:  method,
			URL:     target,
			Status:  resp.StatusCode,
			Message: messageFromBody(raw),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{
			Op:      op,
			Method:  method,
			URL:     target,
			Status:  resp.StatusCode,
			Message: "undecodable response body",
			Err:     err,
		}
	}
	return nil
}
