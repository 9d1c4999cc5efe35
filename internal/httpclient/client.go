package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	coreErrors "github.com/angelospk/subdivx-go/pkg/core/errors"
	"github.com/google/go-querystring/query"
	"golang.org/x/net/html/charset"
)

// Options tweaks the underlying transport.
type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	// Transport overrides the default transport (tests).
	Transport http.RoundTripper
}

// Client is a cookie-holding session against a single site.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
	noRedirect *http.Client
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text decodes the body to UTF-8 using the declared or sniffed charset.
// The site serves latin1 pages, which is why this is not a plain string(Body).
func (r *Response) Text() string {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), r.Header.Get("Content-Type"))
	if err != nil {
		return string(r.Body)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(r.Body)
	}
	return string(decoded)
}

// New creates a new session client rooted at baseURL.
func New(baseURL, userAgent string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
		}
		transport = base
	}

	c := &Client{
		baseURL:   u,
		userAgent: userAgent,
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   opts.Timeout,
		},
		noRedirect: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	return c, nil
}

// BaseURL returns the site root, always ending in a slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Resolve turns a site-relative reference into an absolute URL.
func (c *Client) Resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL reference %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(r).String(), nil
}

// Get makes a GET request and fails on any non-2xx status.
func (c *Client) Get(ctx context.Context, ref string, headers http.Header) (*Response, error) {
	return c.doRequest(ctx, c.httpClient, http.MethodGet, ref, headers, nil, "", false)
}

// GetNoRedirect makes a GET request without following redirects. 3xx
// answers are returned as-is instead of being treated as failures.
func (c *Client) GetNoRedirect(ctx context.Context, ref string, headers http.Header) (*Response, error) {
	return c.doRequest(ctx, c.noRedirect, http.MethodGet, ref, headers, nil, "", true)
}

// PostForm encodes form (a struct with `url` tags) as
// application/x-www-form-urlencoded and POSTs it.
func (c *Client) PostForm(ctx context.Context, ref string, form interface{}) (*Response, error) {
	v, err := query.Values(form)
	if err != nil {
		return nil, fmt.Errorf("failed to encode form fields: %w", err)
	}
	body := strings.NewReader(v.Encode())
	return c.doRequest(ctx, c.httpClient, http.MethodPost, ref, nil, body, "application/x-www-form-urlencoded", false)
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// doRequest performs the actual HTTP request.
func (c *Client) doRequest(ctx context.Context, hc *http.Client, method, ref string, headers http.Header, body io.Reader, contentType string, allowRedirect bool) (*Response, error) {
	fullURL, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s %s: %w", method, fullURL, err)
	}
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request for %s %s: %w", method, fullURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s %s: %w", method, fullURL, err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if allowRedirect && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		ok = true
	}
	if !ok {
		return nil, &coreErrors.HTTPStatusError{Method: method, URL: fullURL, StatusCode: resp.StatusCode}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
