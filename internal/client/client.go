package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"foxglove-bridge/internal/config"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the production platform endpoint. Override it through
// configuration for testing or alternate environments.
const DefaultBaseURL = "https://api.foxglove.dev"

// Version is the bridge release version reported in the user agent.
const Version = "1.0.0"

// DeviceToken is the long-lived secret identifying a device to the
// platform. It is attached verbatim to the authorization header and never
// logged or displayed in full.
type DeviceToken string

// Header renders the authorization header value for this token.
func (t DeviceToken) Header() string {
	return "DeviceToken " + string(t)
}

// String redacts the token so it cannot leak through logging or %v
// formatting.
func (t DeviceToken) String() string {
	if t == "" {
		return ""
	}
	return "[REDACTED]"
}

// Client provides authenticated HTTP communication with the platform API.
// It performs exactly one attempt per call; retry policy belongs to the
// caller.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	deviceToken DeviceToken
	logger      *logrus.Logger
}

// ClientConfig holds transport configuration for the API client.
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// DefaultClientConfig returns a client configuration with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:   DefaultBaseURL,
		UserAgent: "foxglove-bridge/" + Version,
		Timeout:   30 * time.Second,
	}
}

// NewClient creates a new platform API client from the bridge configuration.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	clientCfg := DefaultClientConfig()
	if cfg.APIBaseURL != "" {
		clientCfg.BaseURL = cfg.APIBaseURL
	}
	if cfg.UserAgent != "" {
		clientCfg.UserAgent = cfg.UserAgent
	}
	if cfg.RequestTimeoutSeconds > 0 {
		clientCfg.Timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	httpClient := &http.Client{
		Timeout: clientCfg.Timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimSuffix(clientCfg.BaseURL, "/"),
		userAgent:   clientCfg.UserAgent,
		deviceToken: DeviceToken(cfg.DeviceToken),
		logger:      logger,
	}, nil
}

// HasDeviceToken returns true if a device token was configured.
func (c *Client) HasDeviceToken() bool {
	return c.deviceToken != ""
}

// SetDeviceToken replaces the configured device token.
func (c *Client) SetDeviceToken(token DeviceToken) {
	c.deviceToken = token
}

// Response represents a successful HTTP response. Error statuses never
// produce a Response; they surface through the error taxonomy instead.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// RequestBuilder accumulates a single API request before sending.
type RequestBuilder struct {
	client *Client
	method string
	url    string
	header http.Header
}

func (c *Client) request(method, path string) *RequestBuilder {
	// Exactly one separator regardless of slashes on either side.
	url := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	header := make(http.Header)
	header.Set("User-Agent", c.userAgent)
	return &RequestBuilder{
		client: c,
		method: method,
		url:    url,
		header: header,
	}
}

// Get builds a GET request against the configured base URL.
func (c *Client) Get(path string) *RequestBuilder {
	return c.request(http.MethodGet, path)
}

// Post builds a POST request against the configured base URL.
func (c *Client) Post(path string) *RequestBuilder {
	return c.request(http.MethodPost, path)
}

// WithDeviceToken attaches the device token authorization header. The
// token is sent verbatim, with no re-encoding.
func (rb *RequestBuilder) WithDeviceToken(token DeviceToken) *RequestBuilder {
	rb.header.Set("Authorization", token.Header())
	return rb
}

// Send performs the request. A single attempt: transport failures, error
// statuses, and unreadable bodies all come back as typed errors, never as
// a Response.
func (rb *RequestBuilder) Send(ctx context.Context) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, rb.method, rb.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, values := range rb.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	rb.client.logger.WithFields(logrus.Fields{
		"method": rb.method,
		"url":    rb.url,
	}).Debug("Sending platform API request")

	httpResp, err := rb.client.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send request", Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response body", Err: err}
	}

	rb.client.logger.WithFields(logrus.Fields{
		"status_code": httpResp.StatusCode,
		"body_length": len(body),
	}).Debug("Platform API response received")

	if httpResp.StatusCode >= 400 {
		return nil, classifyErrorResponse(httpResp.StatusCode, body, httpResp.Header)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

// errorEnvelope is the platform's JSON error body. The wire field "error"
// carries the human-readable message.
type errorEnvelope struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

// classifyErrorResponse distinguishes a parseable platform error from an
// unexpected body (proxy error pages, truncated responses).
func classifyErrorResponse(status int, body []byte, headers http.Header) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return &APIError{
			StatusCode: status,
			Message:    envelope.Message,
			Code:       envelope.Code,
			Headers:    headers,
		}
	}
	return &MalformedResponseError{
		StatusCode: status,
		Body:       string(body),
		Headers:    headers,
	}
}

const pathUpperHex = "0123456789ABCDEF"

// EncodePathSegment percent-encodes a string for safe embedding as a URL
// path segment. Every byte outside the unreserved set [A-Za-z0-9-._~] is
// encoded; the platform addresses devices by the exact encoded segment.
func EncodePathSegment(segment string) string {
	var sb strings.Builder
	sb.Grow(len(segment))
	for i := 0; i < len(segment); i++ {
		b := segment[i]
		switch {
		case 'A' <= b && b <= 'Z', 'a' <= b && b <= 'z', '0' <= b && b <= '9':
			sb.WriteByte(b)
		case b == '-' || b == '.' || b == '_' || b == '~':
			sb.WriteByte(b)
		default:
			sb.WriteByte('%')
			sb.WriteByte(pathUpperHex[b>>4])
			sb.WriteByte(pathUpperHex[b&0x0f])
		}
	}
	return sb.String()
}
