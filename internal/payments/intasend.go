package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// IntaSend environments. The sandbox accepts test credentials and fake
// phone numbers; the live host moves real money.
const (
	sandboxBaseURL = "https://sandbox.intasend.com"
	liveBaseURL    = "https://payment.intasend.com"
)

// Webhook state values IntaSend sends. Anything else is treated as an
// unknown future state and ignored by the ledger.
const (
	StateComplete   = "COMPLETE"
	StateProcessing = "PROCESSING"
	StateFailed     = "FAILED"
	StateCancelled  = "CANCELLED"
)

// Narrative shows up on the customer's M-Pesa statement.
const Narrative = "BudgetKE digital templates"

var phonePattern = regexp.MustCompile(`^254\d{9}$`)

// ValidPhone reports whether the string is a Kenyan MSISDN in the
// 254XXXXXXXXX format IntaSend requires.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// APIError carries a non-success response from IntaSend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("intasend: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the IntaSend collection API.
type Client struct {
	// BaseURL is overridable so tests can point at a local server.
	BaseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string, live bool) *Client {
	baseURL := sandboxBaseURL
	if live {
		baseURL = liveBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether API credentials were provided. Unconfigured
// environments fall back to simulated checkouts when the mock-fallback
// flag allows it.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type STKPushRequest struct {
	Phone  string
	Amount float64
	Email  string
	APIRef string
}

type STKPushResponse struct {
	InvoiceID string
	State     string
}

type stkPushBody struct {
	Amount      float64 `json:"amount"`
	PhoneNumber string  `json:"phone_number"`
	Email       string  `json:"email,omitempty"`
	APIRef      string  `json:"api_ref"`
	Currency    string  `json:"currency"`
	Narrative   string  `json:"narrative"`
}

type stkPushResult struct {
	Invoice struct {
		InvoiceID string `json:"invoice_id"`
		State     string `json:"state"`
	} `json:"invoice"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// STKPush asks IntaSend to push an M-Pesa payment prompt to the phone.
// The order id travels as api_ref so the webhook can find its way back.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	body, err := json.Marshal(stkPushBody{
		Amount:      req.Amount,
		PhoneNumber: req.Phone,
		Email:       req.Email,
		APIRef:      req.APIRef,
		Currency:    "KES",
		Narrative:   Narrative,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/v1/payment/mpesa-stk-push/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("intasend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result stkPushResult
	// The error body is not always JSON; fall through with an empty result
	// and surface the raw payload instead.
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := result.Detail
		if message == "" {
			message = result.Message
		}
		if message == "" {
			message = string(respBody)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	return &STKPushResponse{
		InvoiceID: result.Invoice.InvoiceID,
		State:     result.Invoice.State,
	}, nil
}

// WebhookPayload is the body IntaSend posts when a payment changes state.
// api_ref round-trips the order id supplied at initiation.
type WebhookPayload struct {
	InvoiceID      string `json:"invoice_id"`
	State          string `json:"state"`
	APIRef         string `json:"api_ref"`
	MpesaReference string `json:"mpesa_reference"`
	Value          string `json:"value,omitempty"`
	Charges        string `json:"charges,omitempty"`
	FailedReason   string `json:"failed_reason,omitempty"`
	FailedCode     string `json:"failed_code,omitempty"`
}

// Signature computes the hex HMAC-SHA256 of a raw webhook body.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature header against the shared
// secret. Constant-time comparison; a forged header must never be able to
// fake a payment completion.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := Signature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
