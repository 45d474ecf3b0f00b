package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 5 * time.Second

// defaultTokenMargin is subtracted from a credential's declared expiry
// before it is considered stale, so a token that passes the validity
// check cannot expire between the check and the request using it.
const defaultTokenMargin = 30 * time.Second

// Client is the PesaFlow gateway client. It owns the bearer credential
// cache and the retrying transport every operation wrapper goes
// through. Multiple independently configured clients can coexist; there
// is no package-level singleton.
type Client struct {
	baseURL     string
	apiKey      string
	secretKey   string
	httpClient  *http.Client
	policy      RetryPolicy
	logger      zerolog.Logger
	tokenMargin time.Duration

	tokens tokenCache
	group  singleflight.Group

	// now is swappable in tests to simulate the passage of time.
	now func() time.Time
}

// NewClient creates a new gateway client for the given environment and
// API credentials. Pass zerolog.Nop() to discard diagnostics.
func NewClient(env Environment, apiKey, secretKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}
	if secretKey == "" {
		return nil, fmt.Errorf("%w: secret key is required", ErrInvalidConfig)
	}

	client := &Client{
		baseURL:     strings.TrimRight(env.BaseURL(), "/"),
		apiKey:      apiKey,
		secretKey:   secretKey,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		policy:      DefaultRetryPolicy(DefaultMaxAttempts),
		logger:      logger,
		tokenMargin: defaultTokenMargin,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}
	client.baseURL = strings.TrimRight(client.baseURL, "/")

	client.logger.Debug().
		Str("base_url", client.baseURL).
		Int("max_attempts", client.policy.MaxAttempts).
		Msg("Gateway client created")

	return client, nil
}

// BaseURL returns the resolved base address of the remote gateway.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TestConnection verifies the configured credentials by acquiring a
// bearer token from the gateway.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.ensureToken(ctx); err != nil {
		return err
	}
	c.logger.Debug().Msg("Successfully authenticated against gateway")
	return nil
}

// do executes a single descriptor through the retry policy and returns
// the raw response body. Only transient failures consume additional
// attempts; validation and authentication failures surface after the
// first try.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) ([]byte, error) {
	var result []byte

	gerr := c.policy.run(ctx, func() *Error {
		data, err := c.attempt(ctx, method, rawURL, body, headers)
		if err != nil {
			c.logger.Warn().
				Str("method", method).
				Str("url", rawURL).
				Str("kind", err.Kind.String()).
				Msg("Request attempt failed")
			return err
		}
		result = data
		return nil
	})
	if gerr != nil {
		return nil, gerr
	}
	return result, nil
}

// attempt performs exactly one HTTP exchange and classifies its outcome.
func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) ([]byte, *Error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: err.Error(), cause: err}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Classify(nil, nil, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(nil, nil, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, Classify(resp, data, nil)
	}

	return data, nil
}

// CallAuthenticated is the primitive every operation wrapper uses: it
// ensures a valid bearer credential, executes the request, decodes the
// response body into out, and applies the operation's success
// predicate. A predicate failure is surfaced as KindDomainFailure
// carrying the upstream body verbatim; it is never retried here since
// the remote system actively rejected the request.
func (c *Client) CallAuthenticated(ctx context.Context, op, method, path string, reqBody, out any, ok SuccessPredicate) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	var payload []byte
	if reqBody != nil {
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Message: err.Error(), cause: err}
		}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Msg("Calling gateway")

	body, err := c.do(ctx, method, c.baseURL+path, payload, headers)
	if err != nil {
		if gerr, isGateway := err.(*Error); isGateway && gerr.Op == "" {
			gerr.Op = op
		}
		c.logger.Error().Err(err).Str("op", op).Msg("Gateway call failed")
		return err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &Error{
				Kind:    KindUnknown,
				Op:      op,
				Message: fmt.Sprintf("failed to decode response: %v", err),
				Payload: json.RawMessage(body),
				cause:   err,
			}
		}
	}

	if ok != nil && !ok(json.RawMessage(body)) {
		c.logger.Error().
			Str("op", op).
			RawJSON("payload", body).
			Msg("Gateway reported domain failure")
		return &Error{
			Kind:    KindDomainFailure,
			Op:      op,
			Message: "gateway rejected the operation",
			Payload: json.RawMessage(body),
		}
	}

	c.logger.Debug().Str("op", op).Msg("Gateway call succeeded")
	return nil
}

// FetchAllPages walks a cursor-paginated listing starting at startURL.
// Each page is fetched with GET through the authenticated transport;
// the elements under resultsField are accumulated in order, and
// cursorField names the next page URL. A missing or non-list results
// field contributes nothing; an absent or empty cursor terminates the
// walk. The result is collected eagerly, one call per page.
func (c *Client) FetchAllPages(ctx context.Context, startURL, resultsField, cursorField string) ([]json.RawMessage, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	var items []json.RawMessage
	next := startURL
	pages := 0

	for next != "" {
		body, err := c.do(ctx, http.MethodGet, next, nil, headers)
		if err != nil {
			return nil, err
		}
		pages++

		var page map[string]json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &Error{
				Kind:    KindUnknown,
				Message: fmt.Sprintf("failed to decode page: %v", err),
				Payload: json.RawMessage(body),
				cause:   err,
			}
		}

		if raw, found := page[resultsField]; found {
			var batch []json.RawMessage
			if err := json.Unmarshal(raw, &batch); err == nil {
				items = append(items, batch...)
			}
		}

		next = ""
		if raw, found := page[cursorField]; found {
			var cursor string
			if err := json.Unmarshal(raw, &cursor); err == nil {
				next = cursor
			}
		}
	}

	c.logger.Debug().
		Int("pages", pages).
		Int("items", len(items)).
		Msg("Pagination complete")

	return items, nil
}
