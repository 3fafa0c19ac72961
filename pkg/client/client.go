package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service names a remote base URL.
type Service string

const (
	// ServiceGenerator is the template generation API.
	ServiceGenerator Service = "generator"
	// ServiceTemplates is the external template service.
	ServiceTemplates Service = "templates"
)

// Target addresses one endpoint. An empty Service selects the generator.
type Target struct {
	Service Service `json:"service,omitempty" yaml:"service,omitempty"`
	Method  string  `json:"method,omitempty" yaml:"method,omitempty"`
	Path    string  `json:"path" yaml:"path"`
}

func (t Target) String() string {
	service := t.Service
	if service == "" {
		service = ServiceGenerator
	}
	method := t.Method
	if method == "" {
		method = http.MethodPost
	}
	return fmt.Sprintf("%s %s%s", method, service, t.Path)
}

// FilePart is a file sent as multipart/form-data.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Response is a successful (2xx) response with its body fully read.
type Response struct {
	StatusCode  int
	ContentType string
	// Filename comes from a Content-Disposition header when present.
	Filename string
	Body     []byte
}

// Client issues requests against named services.
type Client struct {
	bases     map[Service]*url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL registers the base URL of a service.
func WithBaseURL(service Service, raw string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		parsed, err := url.Parse(strings.TrimRight(raw, "/"))
		if err != nil {
			return fmt.Errorf("client: parse %s base url: %w", service, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("client: %s base url %q must be absolute", service, raw)
		}
		c.bases[service] = parsed
		return nil
	}
}

// WithHTTPClient injects the HTTP client used for every request, for example
// one that attaches session tokens.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc != nil {
			c.http = hc
		}
		return nil
	}
}

// WithTimeout bounds each request. Zero, the default, means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) error {
		c.userAgent = agent
		return nil
	}
}

// WithLogger sets the logger. Requests are logged at debug level and error
// statuses at warn level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New builds a Client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		bases:  make(map[Service]*url.URL),
		http:   http.DefaultClient,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PostJSON sends body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, target Target, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("client: encode body: %w", err)
	}
	return c.do(ctx, target, http.MethodPost, bytes.NewReader(payload), "application/json")
}

// PostMultipart sends a single file as multipart/form-data.
func (c *Client) PostMultipart(ctx context.Context, target Target, part FilePart) (*Response, error) {
	if part.Field == "" {
		return nil, errors.New("client: multipart field name is required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.Field, part.Filename))
	contentType := part.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	w, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("client: create multipart part: %w", err)
	}
	if _, err := w.Write(part.Data); err != nil {
		return nil, fmt.Errorf("client: write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("client: close multipart body: %w", err)
	}

	return c.do(ctx, target, http.MethodPost, &buf, writer.FormDataContentType())
}

// Get fetches target.
func (c *Client) Get(ctx context.Context, target Target) (*Response, error) {
	return c.do(ctx, target, http.MethodGet, nil, "")
}

func (c *Client) do(ctx context.Context, target Target, method string, body io.Reader, contentType string) (*Response, error) {
	endpoint, err := c.resolve(target)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, application/octet-stream, */*")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("target", target.String()), zap.Error(err))
		return nil, fmt.Errorf("client: %s %s: %w", method, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}

	fields := []zap.Field{
		zap.String("target", target.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("upstream returned error status", fields...)
		return nil, newAPIError(resp.StatusCode, data)
	}
	c.logger.Debug("request completed", fields...)

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		Body:        data,
	}, nil
}

func (c *Client) resolve(target Target) (string, error) {
	service := target.Service
	if service == "" {
		service = ServiceGenerator
	}
	base, ok := c.bases[service]
	if !ok {
		return "", fmt.Errorf("client: no base url configured for %s", service)
	}
	if target.Path == "" {
		return "", errors.New("client: target path is required")
	}

	path := target.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("client: parse path %q: %w", target.Path, err)
	}

	resolved := *base
	resolved.Path = base.Path + ref.Path
	resolved.RawPath = ""
	resolved.RawQuery = ref.RawQuery
	return resolved.String(), nil
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// DownloadFolderPath builds the path of a server-side generated folder. The
// folder is appended verbatim, matching the generation API routes
// (/download-folderMyGrafana/mysql).
func DownloadFolderPath(folder, source string) string {
	return "/download-folder" + folder + "/" + source
}
