package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

const tokenPath = "/v1/token/generate?grant_type=client_credentials"

// tokenCache holds the current credential. Reads of a still-valid
// credential take only the read lock; the refresh transition is
// serialized through the client's singleflight group so concurrent
// expired observers trigger exactly one authentication call.
type tokenCache struct {
	mu   sync.RWMutex
	cred *Credential
}

func (t *tokenCache) get() *Credential {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cred
}

func (t *tokenCache) set(cred *Credential) {
	t.mu.Lock()
	t.cred = cred
	t.mu.Unlock()
}

// ensureToken returns a bearer token that is valid now, refreshing it
// through the token generate endpoint when the cached one is absent or
// within the configured margin of expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if cred := c.tokens.get(); cred.Valid(c.now(), c.tokenMargin) {
		return cred.AccessToken, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		// Re-check under the flight: another caller may have
		// refreshed while this one waited.
		if cred := c.tokens.get(); cred.Valid(c.now(), c.tokenMargin) {
			return cred.AccessToken, nil
		}

		cred, err := c.authenticate(ctx)
		if err != nil {
			// A failed refresh must not leave a stale credential behind.
			c.tokens.set(nil)
			return "", err
		}

		c.tokens.set(cred)
		c.logger.Info().
			Time("expires_at", cred.ExpiresAt).
			Msg("Bearer credential acquired")
		return cred.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// authenticate performs the client-credentials exchange. Any failure,
// transient or otherwise, is surfaced as KindAuthenticationFailed with
// the original classification preserved as the cause.
func (c *Client) authenticate(ctx context.Context) (*Credential, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(c.apiKey + ":" + c.secretKey))
	headers := map[string]string{
		"Authorization": "Basic " + basic,
	}

	body, err := c.do(ctx, http.MethodGet, c.baseURL+tokenPath, nil, headers)
	if err != nil {
		return nil, &Error{
			Kind:    KindAuthenticationFailed,
			Op:      "token.generate",
			Message: fmt.Sprintf("authentication call failed: %v", err),
			cause:   err,
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &Error{
			Kind:    KindAuthenticationFailed,
			Op:      "token.generate",
			Message: fmt.Sprintf("failed to decode token response: %v", err),
			Payload: json.RawMessage(body),
			cause:   err,
		}
	}
	if tr.AccessToken == "" {
		return nil, &Error{
			Kind:    KindAuthenticationFailed,
			Op:      "token.generate",
			Message: "token response carried no access token",
			Payload: json.RawMessage(body),
		}
	}

	lifetime, err := tr.lifetime()
	if err != nil {
		return nil, &Error{
			Kind:    KindAuthenticationFailed,
			Op:      "token.generate",
			Message: fmt.Sprintf("invalid expires_in value %q", tr.ExpiresIn),
			Payload: json.RawMessage(body),
			cause:   err,
		}
	}

	now := c.now()
	return &Credential{
		AccessToken: tr.AccessToken,
		IssuedAt:    now,
		ExpiresAt:   now.Add(lifetime),
	}, nil
}
