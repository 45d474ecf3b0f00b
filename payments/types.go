package payments

import (
	"encoding/json"
	"time"
)

// ResponseCodeOK is the sentinel the gateway places in a response body
// when an operation was accepted.
const ResponseCodeOK = "0"

// PushPaymentRequest initiates a customer-side payment push: the
// customer's handset is prompted to authorize the amount.
type PushPaymentRequest struct {
	Amount      int64  `json:"Amount"`
	PhoneNumber string `json:"PhoneNumber"`
	Reference   string `json:"AccountReference"`
	Description string `json:"TransactionDesc"`
	CallbackURL string `json:"CallBackURL"`
}

// PushPaymentResponse acknowledges a push request. A ResponseCode of
// "0" means the prompt was dispatched; the final outcome arrives on the
// callback URL.
type PushPaymentResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// PayoutRequest disburses funds from the business account to a
// customer.
type PayoutRequest struct {
	Amount      int64  `json:"Amount"`
	PhoneNumber string `json:"PartyB"`
	Reference   string `json:"OriginatorReference"`
	Remarks     string `json:"Remarks"`
	ResultURL   string `json:"ResultURL"`
}

// PayoutResponse acknowledges a payout request.
type PayoutResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// RegisterURLsRequest registers the validation and confirmation URLs
// the gateway calls back on customer-initiated payments.
type RegisterURLsRequest struct {
	ValidationURL   string `json:"ValidationURL"`
	ConfirmationURL string `json:"ConfirmationURL"`
	ResponseType    string `json:"ResponseType"`
}

// RegisterURLsResponse acknowledges a URL registration.
type RegisterURLsResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// Transaction is a single entry from the transaction listing.
type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	PhoneNumber string    `json:"phone_number"`
	Reference   string    `json:"reference"`
	Status      string    `json:"status"`
	Created     time.Time `json:"created_at"`
}

// TransactionStatus is the result of a status query for one
// transaction.
type TransactionStatus struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// responseCodeOK is the success predicate shared by every operation
// whose response carries a ResponseCode field.
func responseCodeOK(body json.RawMessage) bool {
	var envelope struct {
		ResponseCode string `json:"ResponseCode"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.ResponseCode == ResponseCodeOK
}
