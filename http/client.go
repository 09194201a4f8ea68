package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultPageSizeParam is the query parameter most providers use for page size.
const DefaultPageSizeParam = "per_page"

// userAgent identifies requests made by this module.
const userAgent = "build-tools"

// Client issues authenticated JSON requests against one provider API.
type Client struct {
	client        *http.Client
	baseURL       string
	serviceName   string
	authenticate  func(req *http.Request)
	paginated     bool
	pageSize      int
	pageSizeParam string
	logger        *slog.Logger
}

// ClientConfig holds configuration for Client.
type ClientConfig struct {
	Client      *http.Client
	BaseURL     string
	ServiceName string

	// Authenticate is called before each request to attach auth material.
	// See BearerAuth, BasicAuth and HeaderAuth.
	Authenticate func(req *http.Request)

	// Paginated reports whether the provider signals pagination through a
	// Link header. When false, PagedRequest returns the first page only.
	Paginated bool

	// PageSize, when positive, is sent as PageSizeParam on paged requests.
	PageSize int

	// PageSizeParam defaults to DefaultPageSizeParam.
	PageSizeParam string

	Logger *slog.Logger
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		client:        cfg.Client,
		baseURL:       normalizeBase(cfg.BaseURL),
		serviceName:   cfg.ServiceName,
		authenticate:  cfg.Authenticate,
		paginated:     cfg.Paginated,
		pageSize:      cfg.PageSize,
		pageSizeParam: cfg.PageSizeParam,
		logger:        cfg.Logger,
	}

	if c.client == nil {
		c.client = &http.Client{Timeout: DefaultTimeout}
	}
	if c.pageSizeParam == "" {
		c.pageSizeParam = DefaultPageSizeParam
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// BearerAuth authenticates with an "Authorization: Bearer" header.
func BearerAuth(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// BasicAuth authenticates with HTTP basic auth.
func BasicAuth(username, password string) func(*http.Request) {
	return func(req *http.Request) {
		creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		req.Header.Set("Authorization", "Basic "+creds)
	}
}

// HeaderAuth authenticates with a provider-specific header.
func HeaderAuth(name, value string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(name, value)
	}
}

// BaseURL returns the API base URL, always ending in "/".
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ServiceName returns the provider name used in errors.
func (c *Client) ServiceName() string {
	return c.serviceName
}

// response is a decoded API response.
type response struct {
	body   any
	header http.Header
	status int
	uri    string // request URI relative to the base URL
}

// Request sends data to uri and returns the decoded JSON body.
// For GET requests data is encoded as a query string; otherwise it is sent
// as a JSON body. Any status >= 300, or a body carrying an "errors" array,
// yields an *APIError.
func (c *Client) Request(ctx context.Context, method, uri string, data any) (any, error) {
	resp, err := c.do(ctx, method, uri, data)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// RequestInto performs Request and decodes the body into out.
func (c *Client) RequestInto(ctx context.Context, method, uri string, data, out any) error {
	body, err := c.Request(ctx, method, uri, data)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := Convert(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.serviceName, err)
	}
	return nil
}

// Get performs a GET request and decodes the response into result.
func (c *Client) Get(ctx context.Context, uri string, params, result any) error {
	return c.RequestInto(ctx, http.MethodGet, uri, params, result)
}

// Post performs a POST request and decodes the response into result.
func (c *Client) Post(ctx context.Context, uri string, body, result any) error {
	return c.RequestInto(ctx, http.MethodPost, uri, body, result)
}

// Put performs a PUT request and decodes the response into result.
func (c *Client) Put(ctx context.Context, uri string, body, result any) error {
	return c.RequestInto(ctx, http.MethodPut, uri, body, result)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, uri string) error {
	return c.RequestInto(ctx, http.MethodDelete, uri, nil, nil)
}

func (c *Client) do(ctx context.Context, method, uri string, data any) (*response, error) {
	target, err := c.resolve(uri)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if method == http.MethodGet {
		params, err := encodeQuery(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s query: %w", c.serviceName, err)
		}
		if len(params) > 0 {
			q := target.Query()
			for k, vs := range params {
				q[k] = vs
			}
			target.RawQuery = q.Encode()
		}
	} else if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authenticate != nil {
		c.authenticate(req)
	}

	relative := c.stripBase(target.String())
	c.logger.Debug("api request", "service", c.serviceName, "method", method, "uri", relative)

	httpResp, err := c.client.Do(req)
	if err != nil {
		// A response alongside a transport error has a closed body, so
		// only its status is classified.
		if httpResp != nil && httpResp.StatusCode >= 300 {
			return nil, c.classify(httpResp.StatusCode, uri, nil)
		}
		return nil, fmt.Errorf("%s request failed: %w", c.serviceName, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.serviceName, err)
	}

	var decoded any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			if httpResp.StatusCode >= 300 {
				return nil, &APIError{
					Service:    c.serviceName,
					StatusCode: httpResp.StatusCode,
					Message:    strings.TrimSpace(string(raw)),
					Endpoint:   uri,
				}
			}
			return nil, fmt.Errorf("decode %s response: %w", c.serviceName, err)
		}
	}

	if err := c.classify(httpResp.StatusCode, uri, decoded); err != nil {
		return nil, err
	}

	return &response{
		body:   decoded,
		header: httpResp.Header,
		status: httpResp.StatusCode,
		uri:    relative,
	}, nil
}

// classify converts a failed status or an error-bearing body to an APIError.
func (c *Client) classify(status int, uri string, body any) error {
	msgs, hasErrors := errorMessages(body)
	if status < 300 && !hasErrors {
		return nil
	}
	if len(msgs) == 0 {
		msgs = []string{http.StatusText(status)}
	}
	return &APIError{
		Service:    c.serviceName,
		StatusCode: status,
		Message:    joinMessages(msgs),
		Endpoint:   uri,
	}
}

func (c *Client) resolve(uri string) (*url.URL, error) {
	full := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		full = c.baseURL + strings.TrimPrefix(uri, "/")
	}
	u, err := url.Parse(full)
	if err != nil {
		return nil, fmt.Errorf("parse %s uri %q: %w", c.serviceName, uri, err)
	}
	return u, nil
}

func (c *Client) stripBase(uri string) string {
	return stripBase(uri, c.baseURL)
}

func stripBase(uri, base string) string {
	if base != "" && strings.HasPrefix(uri, base) {
		return strings.TrimPrefix(uri, base)
	}
	return uri
}

func normalizeBase(base string) string {
	if base == "" || strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}

// encodeQuery turns request data into query parameters. Structs are
// encoded with their `url` tags.
func encodeQuery(data any) (url.Values, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return v, nil
	case map[string]string:
		q := url.Values{}
		for k, val := range v {
			q.Set(k, val)
		}
		return q, nil
	case map[string]any:
		q := url.Values{}
		for k, val := range v {
			q.Set(k, fmt.Sprint(val))
		}
		return q, nil
	default:
		return query.Values(data)
	}
}

// Convert re-decodes a generic JSON value into a typed destination.
func Convert(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
