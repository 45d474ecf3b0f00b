// Package gateway provides the authenticated request pipeline shared by
// every PesaFlow API operation.
//
// The package is organized into several components:
//
//   - Client: the orchestrator combining the credential cache and the
//     retrying transport into a single authenticated-call primitive
//   - RetryPolicy: a standalone retry decision object (attempt budget
//     plus backoff curve) applied to every request
//   - Error: a tagged error type over a small set of failure kinds,
//     with classification helpers
//   - Credential: the cached bearer token and its validity window
//
// # Usage
//
// Create a client with your environment and API credentials:
//
//	logger := zerolog.New(os.Stderr)
//	client, err := gateway.NewClient(
//		gateway.Sandbox,
//		"consumer-key",
//		"consumer-secret",
//		logger,
//		gateway.WithTimeout(5*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Operation wrappers call through CallAuthenticated, which acquires or
// reuses the bearer credential, applies the retry policy, decodes the
// response and checks the operation's success predicate.
//
// # Error Handling
//
// Every failure surfaces as a *gateway.Error tagged with a Kind.
// Callers branch on the kind, not the message:
//
//	if gateway.IsTransient(err) {
//		// remote outage or timeout; safe to try again later
//	}
//	if gateway.IsDomainFailure(err) {
//		// the gateway rejected the operation; inspect err.Payload
//	}
//
// Transient failures are retried automatically up to the configured
// attempt budget. Domain failures are never retried here: the remote
// gateway is assumed to deduplicate re-submissions on its own reference
// fields, and the client does not generate idempotency keys itself.
package gateway
