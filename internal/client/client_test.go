package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"foxglove-bridge/internal/config"
	"foxglove-bridge/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		APIBaseURL:            baseURL,
		DeviceToken:           "secret-token",
		RequestTimeoutSeconds: 5,
	}
	c, err := NewClient(cfg, logging.Initialize("error"))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	logger := logging.Initialize("error")

	_, err := NewClient(nil, logger)
	assert.Error(t, err)

	_, err = NewClient(&config.Config{APIBaseURL: "http://example.com"}, nil)
	assert.Error(t, err)
}

func TestClient_URLJoin(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    string
		want    string
	}{
		{
			name:    "no slashes",
			baseURL: "http://example.com",
			path:    "v1/thing",
			want:    "http://example.com/v1/thing",
		},
		{
			name:    "both slashes",
			baseURL: "http://example.com/",
			path:    "/v1/thing",
			want:    "http://example.com/v1/thing",
		},
		{
			name:    "trailing base slash only",
			baseURL: "http://example.com/",
			path:    "v1/thing",
			want:    "http://example.com/v1/thing",
		},
		{
			name:    "leading path slash only",
			baseURL: "http://example.com",
			path:    "/v1/thing",
			want:    "http://example.com/v1/thing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.baseURL)
			rb := c.Get(tt.path)
			assert.Equal(t, tt.want, rb.url)
		})
	}
}

func TestClient_SendHeaders(t *testing.T) {
	var gotAuth, gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUserAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Get("/ping").WithDeviceToken("tok_123").Send(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "DeviceToken tok_123", gotAuth)
	assert.Equal(t, "foxglove-bridge/"+Version, gotUserAgent)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		checkError func(t *testing.T, err error)
	}{
		{
			name:   "structured error",
			status: http.StatusUnauthorized,
			body:   `{"error":"bad token"}`,
			checkError: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
				assert.Equal(t, "bad token", apiErr.Message)
				assert.Empty(t, apiErr.Code)
			},
		},
		{
			name:   "structured error with code",
			status: http.StatusForbidden,
			body:   `{"error":"not allowed","code":"FORBIDDEN"}`,
			checkError: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "FORBIDDEN", apiErr.Code)
			},
		},
		{
			name:   "malformed error body",
			status: http.StatusInternalServerError,
			body:   `not json`,
			checkError: func(t *testing.T, err error) {
				var malformed *MalformedResponseError
				require.ErrorAs(t, err, &malformed)
				assert.Equal(t, http.StatusInternalServerError, malformed.StatusCode)
				assert.Equal(t, "not json", malformed.Body)
			},
		},
		{
			name:   "error body missing message field",
			status: http.StatusBadGateway,
			body:   `{"detail":"proxy error"}`,
			checkError: func(t *testing.T, err error) {
				var malformed *MalformedResponseError
				require.ErrorAs(t, err, &malformed)
				assert.Equal(t, http.StatusBadGateway, malformed.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			resp, err := c.Get("/whatever").Send(context.Background())
			require.Error(t, err)
			assert.Nil(t, resp, "error statuses must never produce a response")
			tt.checkError(t, err)

			status, ok := StatusCode(err)
			assert.True(t, ok)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := newTestClient(t, server.URL)
	_, err := c.Get("/ping").Send(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "send request", transportErr.Op)

	_, ok := StatusCode(err)
	assert.False(t, ok, "transport failures carry no HTTP status")
}

func TestClient_SuccessStatusesPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Post("/things").Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestDeviceToken_Redaction(t *testing.T) {
	token := DeviceToken("super-secret")
	assert.Equal(t, "[REDACTED]", token.String())
	assert.Equal(t, "DeviceToken super-secret", token.Header())
	assert.Empty(t, DeviceToken("").String())
}

func TestEncodePathSegment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain id", "dev_1", "dev_1"},
		{"unreserved characters kept", "aZ09-._~", "aZ09-._~"},
		{"space", "dev 1", "dev%201"},
		{"slash", "a/b", "a%2Fb"},
		{"reserved characters", "a+b&c=d", "a%2Bb%26c%3Dd"},
		{"percent encoded exactly once", "a%20b", "a%2520b"},
		{"non-ascii bytes", "dévice", "d%C3%A9vice"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodePathSegment(tt.input))
		})
	}
}

func TestStatusCode_UnrelatedError(t *testing.T) {
	_, ok := StatusCode(errors.New("plain"))
	assert.False(t, ok)
}
