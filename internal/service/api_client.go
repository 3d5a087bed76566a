package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/publish"
)

const defaultCallTimeout = 30 * time.Second

type ClientOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
}

func (o ClientOptions) withDefaults(baseURL string) ClientOptions {
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultCallTimeout
	}
	return o
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

// apiClient issues JSON requests against one provider API. Every call gets its
// own timeout and non-2xx responses come back as *publish.ProviderError.
type apiClient struct {
	provider publish.Provider
	baseURL  string
	http     *http.Client
	timeout  time.Duration
}

func newAPIClient(provider publish.Provider, opts ClientOptions) *apiClient {
	return &apiClient{
		provider: provider,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     opts.HTTPClient,
		timeout:  opts.Timeout,
	}
}

func (c *apiClient) getJSON(ctx context.Context, path string, query url.Values, out any, opts ...requestOption) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out, opts...)
}

func (c *apiClient) postJSON(ctx context.Context, path string, payload, out any, opts ...requestOption) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("error marshalling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, http.MethodPost, path, nil, body, "application/json; charset=UTF-8", out, opts...)
}

func (c *apiClient) postForm(ctx context.Context, path string, form url.Values, out any, opts ...requestOption) error {
	return c.do(ctx, http.MethodPost, path, nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", out, opts...)
}

// postMultipart sends fields plus one file part named fileField.
func (c *apiClient) postMultipart(ctx context.Context, path string, fields map[string]string, fileField string, data []byte, out any, opts ...requestOption) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("error writing form field %s: %w", k, err)
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "blob")
		if err != nil {
			return fmt.Errorf("error creating form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return fmt.Errorf("error writing form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("error closing multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType(), out, opts...)
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any, opts ...requestOption) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	return c.send(req, out)
}

func (c *apiClient) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error prints the full URL, query string included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return publish.WrapError(publish.KindAPI, err, "%s request %s %s", c.provider, req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeProviderError(c.provider, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error parsing %s response: %w", c.provider, err)
	}
	return nil
}

type errorObject struct {
	Message      string          `json:"message"`
	Type         string          `json:"type"`
	Code         json.RawMessage `json:"code"`
	ErrorSubcode int             `json:"error_subcode"`
	ErrorUserMsg string          `json:"error_user_msg"`
}

type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Errors  []errorObject   `json:"errors"`
	Title   string          `json:"title"`
	Detail  string          `json:"detail"`
	Message string          `json:"message"`
}

// decodeProviderError understands the Graph API, TikTok, Twitter and plain
// {"message": ...} error bodies. Anything else keeps the raw body as message.
func decodeProviderError(provider publish.Provider, status int, body []byte) *publish.ProviderError {
	pe := &publish.ProviderError{Provider: provider, StatusCode: status}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		pe.Message = strings.TrimSpace(string(body))
		if pe.Message == "" {
			pe.Message = http.StatusText(status)
		}
		return pe
	}

	if len(env.Error) > 0 {
		var obj errorObject
		var text string
		switch {
		case json.Unmarshal(env.Error, &obj) == nil:
			applyErrorObject(pe, obj)
		case json.Unmarshal(env.Error, &text) == nil:
			pe.CodeText = text
		}
	}
	if pe.Message == "" && len(env.Errors) > 0 {
		applyErrorObject(pe, env.Errors[0])
	}
	if pe.Message == "" {
		pe.Message = firstNonEmpty(env.Detail, env.Message, env.Title, http.StatusText(status))
	}
	return pe
}

func applyErrorObject(pe *publish.ProviderError, obj errorObject) {
	pe.Message = firstNonEmpty(obj.Message, obj.ErrorUserMsg)
	pe.UserMessage = obj.ErrorUserMsg
	pe.Subcode = obj.ErrorSubcode
	setCode(pe, obj.Code)
}

func setCode(pe *publish.ProviderError, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		pe.Code = n
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			pe.Code = n
		} else {
			pe.CodeText = s
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
