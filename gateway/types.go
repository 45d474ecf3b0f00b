package gateway

import (
	"encoding/json"
	"strconv"
	"time"
)

// Base addresses per environment.
const (
	SandboxBaseURL    = "https://api-sandbox.pesaflow.co.ke"
	ProductionBaseURL = "https://api.pesaflow.co.ke"
)

// Environment selects which PesaFlow deployment the client talks to.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// BaseURL returns the base address for the environment. Unrecognized
// values fall back to sandbox.
func (e Environment) BaseURL() string {
	if e == Production {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// Credential is a bearer token together with its validity window. A
// credential is replaced wholesale on refresh, never mutated in place.
type Credential struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Valid reports whether the credential can still be presented at
// instant now. The margin shaves time off the declared expiry to avoid
// a race between the validity check and the request that uses it.
func (c *Credential) Valid(now time.Time, margin time.Duration) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return now.Before(c.ExpiresAt.Add(-margin))
}

// tokenResponse is the wire shape of the token generate endpoint.
// ExpiresIn arrives as a numeric string of seconds.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   string `json:"expires_in"`
}

func (t *tokenResponse) lifetime() (time.Duration, error) {
	secs, err := strconv.ParseInt(t.ExpiresIn, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// SuccessPredicate decides whether a decoded 2xx response body encodes
// business-level success. A nil predicate means transport success is
// sufficient.
type SuccessPredicate func(body json.RawMessage) bool
