package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at the given test server with a fast,
// delay-free retry policy.
func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()

	base := []Option{
		WithBaseURL(serverURL),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3}),
	}
	client, err := NewClient(Sandbox, "test-key", "test-secret", zerolog.Nop(), append(base, opts...)...)
	require.NoError(t, err)
	return client
}

// serveToken answers the token generate endpoint and counts calls.
func serveToken(t *testing.T, calls *int32, w http.ResponseWriter, r *http.Request) {
	t.Helper()
	atomic.AddInt32(calls, 1)

	assert.Equal(t, http.MethodGet, r.Method)
	assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))

	json.NewEncoder(w).Encode(map[string]string{
		"access_token": "T",
		"token_type":   "Bearer",
		"expires_in":   "3600",
	})
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		apiKey  string
		secret  string
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			apiKey: "key",
			secret: "secret",
		},
		{
			name:    "missing API key",
			secret:  "secret",
			wantErr: true,
			errMsg:  "API key is required",
		},
		{
			name:    "missing secret key",
			apiKey:  "key",
			wantErr: true,
			errMsg:  "secret key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(Sandbox, tt.apiKey, tt.secret, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SandboxBaseURL, client.BaseURL())
		})
	}

	t.Run("production base URL", func(t *testing.T) {
		client, err := NewClient(Production, "key", "secret", logger)
		require.NoError(t, err)
		assert.Equal(t, ProductionBaseURL, client.BaseURL())
	})
}

func TestAuthenticationWireContract(t *testing.T) {
	var tokenCalls int32
	var bearer string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/token/generate" {
			expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("K:S"))
			assert.Equal(t, expected, r.Header.Get("Authorization"))
			serveToken(t, &tokenCalls, w, r)
			return
		}

		bearer = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer server.Close()

	client, err := NewClient(Sandbox, "K", "S", zerolog.Nop(),
		WithBaseURL(server.URL),
		WithTokenMargin(0),
	)
	require.NoError(t, err)

	now := time.Now()
	client.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, client.CallAuthenticated(ctx, "test.op", http.MethodGet, "/v1/ping", nil, nil, nil))
	assert.Equal(t, "Bearer T", bearer)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))

	// Still inside the declared 3600s lifetime: no re-authentication.
	now = now.Add(3599 * time.Second)
	require.NoError(t, client.CallAuthenticated(ctx, "test.op", http.MethodGet, "/v1/ping", nil, nil, nil))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))

	// Past the lifetime: exactly one additional authentication call.
	now = now.Add(2 * time.Second)
	require.NoError(t, client.CallAuthenticated(ctx, "test.op", http.MethodGet, "/v1/ping", nil, nil, nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestTransientFailureConsumesFullBudget(t *testing.T) {
	var tokenCalls, opCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/token/generate" {
			serveToken(t, &tokenCalls, w, r)
			return
		}
		atomic.AddInt32(&opCalls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	for _, maxAttempts := range []int{1, 3, 5} {
		atomic.StoreInt32(&opCalls, 0)

		client := newTestClient(t, server.URL,
			WithRetryPolicy(RetryPolicy{MaxAttempts: maxAttempts}))

		err := client.CallAuthenticated(context.Background(), "test.op", http.MethodPost, "/v1/ping", map[string]string{}, nil, nil)
		require.Error(t, err)
		assert.True(t, IsTransient(err))
		assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&opCalls))
	}
}

func TestNonRetryableFailuresFailFast(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		check      func(error) bool
	}{
		{"validation failure", http.StatusBadRequest, IsValidationFailed},
		{"not found", http.StatusNotFound, IsValidationFailed},
		{"authentication failure", http.StatusForbidden, IsAuthenticationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokenCalls, opCalls int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/v1/token/generate" {
					serveToken(t, &tokenCalls, w, r)
					return
				}
				atomic.AddInt32(&opCalls, 1)
				http.Error(w, "rejected", tt.statusCode)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL,
				WithRetryPolicy(RetryPolicy{MaxAttempts: 5}))

			err := client.CallAuthenticated(context.Background(), "test.op", http.MethodGet, "/v1/ping", nil, nil, nil)
			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(&opCalls))
		})
	}
}

func TestAuthenticationFailureSurfacedFromTokenEndpoint(t *testing.T) {
	var tokenCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL,
		WithRetryPolicy(RetryPolicy{MaxAttempts: 5}))

	err := client.CallAuthenticated(context.Background(), "test.op", http.MethodGet, "/v1/ping", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsAuthenticationFailed(err))
	// A bad credential cannot succeed on retry.
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))

	// The failed refresh must not leave a credential behind.
	assert.Nil(t, client.tokens.get())
}

func TestConcurrentCallersTriggerSingleAuthentication(t *testing.T) {
	var tokenCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/token/generate" {
			time.Sleep(20 * time.Millisecond) // widen the race window
			serveToken(t, &tokenCalls, w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.CallAuthenticated(context.Background(), "test.op", http.MethodGet, "/v1/ping", nil, nil, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestFetchAllPages(t *testing.T) {
	var tokenCalls, pageCalls int32
	var serverURL string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/token/generate" {
			serveToken(t, &tokenCalls, w, r)
			return
		}

		atomic.AddInt32(&pageCalls, 1)
		switch r.URL.Path {
		case "/v1/items":
			json.NewEncoder(w).Encode(map[string]any{
				"items":    []int{1, 2},
				"next_url": serverURL + "/v1/items/page2",
			})
		case "/v1/items/page2":
			json.NewEncoder(w).Encode(map[string]any{
				"items":    []int{3, 4},
				"next_url": nil,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	serverURL = server.URL

	client := newTestClient(t, server.URL)

	items, err := client.FetchAllPages(context.Background(), server.URL+"/v1/items", "items", "next_url")
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, int32(2), atomic.LoadInt32(&pageCalls))

	var values []int
	for _, raw := range items {
		var v int
		require.NoError(t, json.Unmarshal(raw, &v))
		values = append(values, v)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, values)
}

func TestFetchAllPagesMissingResultsField(t *testing.T) {
	var tokenCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/token/generate" {
			serveToken(t, &tokenCalls, w, r)
			return
		}
		// No results field, no cursor: one page, zero items.
		json.NewEncoder(w).Encode(map[string]any{"unrelated": true})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	items, err := client.FetchAllPages(context.Background(), server.URL+"/v1/items", "items", "next_url")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDomainFailureRoundTrip(t *testing.T) {
	var tokenCalls int32
	responseCode := "0"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/token/generate" {
			serveToken(t, &tokenCalls, w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        responseCode,
			"ResponseDescription": "Accepted",
			"Reference":           "INV-001",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	sentinel := func(body json.RawMessage) bool {
		var envelope struct {
			ResponseCode string `json:"ResponseCode"`
		}
		return json.Unmarshal(body, &envelope) == nil && envelope.ResponseCode == "0"
	}

	var out struct {
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		Reference           string `json:"Reference"`
	}

	ctx := context.Background()

	// Success sentinel: decoded result mirrors the payload fields.
	require.NoError(t, client.CallAuthenticated(ctx, "test.op", http.MethodPost, "/v1/op", map[string]string{}, &out, sentinel))
	assert.Equal(t, "0", out.ResponseCode)
	assert.Equal(t, "Accepted", out.ResponseDescription)
	assert.Equal(t, "INV-001", out.Reference)

	// Same body with a failure code: domain failure carrying it verbatim.
	responseCode = "1032"
	err := client.CallAuthenticated(ctx, "test.op", http.MethodPost, "/v1/op", map[string]string{}, &out, sentinel)
	require.Error(t, err)
	require.True(t, IsDomainFailure(err))

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "test.op", ge.Op)
	assert.JSONEq(t, `{
		"ResponseCode": "1032",
		"ResponseDescription": "Accepted",
		"Reference": "INV-001"
	}`, string(ge.Payload))
}
