package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/budgetke/budgetke-api/internal/models"
	"go.uber.org/zap"
)

const resendEndpoint = "https://api.resend.com/emails"

// Mailer sends transactional email through the Resend API. Without an API
// key it logs the message instead of sending it, so local checkouts can be
// exercised end to end without credentials.
type Mailer struct {
	// Endpoint is overridable so tests can point at a local server.
	Endpoint   string
	apiKey     string
	from       string
	appBaseURL string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewMailer(apiKey, from, appBaseURL string, logger *zap.Logger) *Mailer {
	return &Mailer{
		Endpoint:   resendEndpoint,
		apiKey:     apiKey,
		from:       from,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// SendReceipt emails the paid order's download links to the customer.
// Runs off the webhook path; the caller treats any error as log-only.
func (m *Mailer) SendReceipt(ctx context.Context, order *models.Order) error {
	subject := fmt.Sprintf("Your BudgetKE order %s is ready", order.OrderNumber)
	body := m.receiptBody(order)

	if m.apiKey == "" {
		// Placeholder mode: no credentials, log the email instead.
		m.logger.Info("receipt email (placeholder, no RESEND_API_KEY)",
			zap.String("to", order.Email),
			zap.String("subject", subject),
			zap.String("body", body),
		)
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"from":    m.from,
		"to":      []string{order.Email},
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (m *Mailer) receiptBody(order *models.Order) string {
	var b strings.Builder
	name := order.CustomerName.String
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your purchase! Payment for order %s was received.\n\n", name, order.OrderNumber)
	fmt.Fprintf(&b, "Your downloads (each link works up to %d times):\n\n", order.MaxDownloads)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %s\n  %s/downloads/%s/%s\n\n",
			item.Name, m.appBaseURL, order.DownloadToken.String, item.ProductID)
	}
	fmt.Fprintf(&b, "Total paid: %s %.2f\n\nThe BudgetKE team\n", order.Currency, order.Total)
	return b.String()
}
