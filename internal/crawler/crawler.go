
package crawler

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrStatus     = errors.New("unexpected http status")
	ErrNotHTML    = errors.New("non-html content")
)

const DefaultUserAgent = "npdetector/1.0 (+https://github.com/npdetector/npdetector)"

type HTTPClient struct {
	client    *http.Client
	sizeCap   int64
	userAgent string
}

func NewHTTPClient(timeout, dialTimeout time.Duration, sizeCap int64) *HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		sizeCap:   sizeCap,
		userAgent: DefaultUserAgent,
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func (h *HTTPClient) WithUserAgent(ua string) *HTTPClient {
	if ua != "" {
		h.userAgent = ua
	}
	return h
}

func (h *HTTPClient) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, string, time.Duration, error) {
	start := time.Now()
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, "", "", 0, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", "", 0, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", "", 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, "", "", 0, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var body io.ReadCloser = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, "", "", 0, err
		}
		body = gz
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.Contains(mediaType, "text/html") && !strings.Contains(mediaType, "application/xhtml+xml") && mediaType != "" {
		// still allow if empty (some servers omit), otherwise reject non-html
		resp.Body.Close()
		return nil, "", "", 0, fmt.Errorf("%w: %s", ErrNotHTML, mediaType)
	}

	// enforce a size cap
	r := io.LimitReader(body, h.sizeCap)
	finalURL := resp.Request.URL.String()
	elapsed := time.Since(start)
	// closing the gzip reader leaves the connection open
	return readCloser{Reader: r, Closer: resp.Body}, finalURL, contentType, elapsed, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
