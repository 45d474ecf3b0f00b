package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/kwachira/pesaflow/gateway"
)

// Endpoint paths for the payment operations.
const (
	pushPath         = "/v1/express/push"
	payoutPath       = "/v1/payouts"
	registerURLsPath = "/v1/urls/register"
	transactionsPath = "/v1/transactions"
)

// Service exposes the PesaFlow payment operations on top of the
// gateway client. Each operation is a thin wrapper: it shapes the
// request payload, names the endpoint, and declares what success looks
// like in the response body.
type Service struct {
	client *gateway.Client
	logger zerolog.Logger
}

// NewService creates a payments service backed by the given gateway
// client.
func NewService(client *gateway.Client, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// PushPayment prompts the customer's handset to authorize a payment.
func (s *Service) PushPayment(ctx context.Context, req PushPaymentRequest) (*PushPaymentResponse, error) {
	var resp PushPaymentResponse
	err := s.client.CallAuthenticated(ctx, "payments.push", http.MethodPost, pushPath, req, &resp, responseCodeOK)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("checkout_request_id", resp.CheckoutRequestID).
		Str("reference", req.Reference).
		Msg("Push payment initiated")

	return &resp, nil
}

// Payout disburses funds to a customer.
func (s *Service) Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	var resp PayoutResponse
	err := s.client.CallAuthenticated(ctx, "payments.payout", http.MethodPost, payoutPath, req, &resp, responseCodeOK)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("conversation_id", resp.ConversationID).
		Str("reference", req.Reference).
		Msg("Payout initiated")

	return &resp, nil
}

// RegisterURLs registers the validation and confirmation callback URLs.
func (s *Service) RegisterURLs(ctx context.Context, req RegisterURLsRequest) (*RegisterURLsResponse, error) {
	if req.ResponseType == "" {
		req.ResponseType = "Completed"
	}

	var resp RegisterURLsResponse
	err := s.client.CallAuthenticated(ctx, "payments.register_urls", http.MethodPost, registerURLsPath, req, &resp, responseCodeOK)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("confirmation_url", req.ConfirmationURL).
		Msg("Callback URLs registered")

	return &resp, nil
}

// QueryStatus fetches the current status of a single transaction.
func (s *Service) QueryStatus(ctx context.Context, id string) (*TransactionStatus, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction id is required")
	}

	var resp TransactionStatus
	path := transactionsPath + "/" + url.PathEscape(id)
	err := s.client.CallAuthenticated(ctx, "payments.status", http.MethodGet, path, nil, &resp, nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTransactions walks the cursor-paginated transaction listing and
// returns every entry. The listing is finite only as long as the
// gateway terminates the cursor chain; callers needing a hard page cap
// must impose it themselves.
func (s *Service) ListTransactions(ctx context.Context) ([]Transaction, error) {
	items, err := s.client.FetchAllPages(ctx, s.client.BaseURL()+transactionsPath, "transactions", "next_url")
	if err != nil {
		return nil, err
	}

	transactions := make([]Transaction, 0, len(items))
	for _, raw := range items {
		var tx Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			s.logger.Warn().Err(err).Msg("Skipping undecodable transaction entry")
			continue
		}
		transactions = append(transactions, tx)
	}

	s.logger.Debug().Int("count", len(transactions)).Msg("Retrieved transactions")
	return transactions, nil
}
