package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/h2non/filetype"
)

type Blob struct {
	Data     []byte
	MIMEType string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Blob, error)
}

type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher reads media through client. The client is expected to guard
// against requests to internal addresses.
func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

// NewSafeClient returns a client that refuses private, loopback and link-local
// destinations, checked after DNS resolution. With allowPrivate it is a plain
// client, for local development against a bucket on localhost.
func NewSafeClient(timeout time.Duration, allowPrivate bool) *http.Client {
	if allowPrivate {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating media request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading media: unexpected status %d", resp.StatusCode)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("media is %d bytes, the limit is %d", resp.ContentLength, f.maxBytes)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading media: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("media exceeds %d bytes", f.maxBytes)
	}

	return &Blob{Data: data, MIMEType: detectMIME(data, resp.Header.Get("Content-Type"))}, nil
}

func detectMIME(data []byte, header string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if header != "" {
		mt, _, _ := strings.Cut(header, ";")
		return strings.TrimSpace(mt)
	}
	return "application/octet-stream"
}
