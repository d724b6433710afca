package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/budgetke/budgetke-api/internal/middleware"
	"github.com/budgetke/budgetke-api/internal/models"
	"github.com/budgetke/budgetke-api/internal/payments"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookSignatureHeader carries the hex HMAC-SHA256 of the raw webhook
// body, keyed with the shared secret.
const WebhookSignatureHeader = "X-IntaSend-Signature"

// InitiatePaymentInput is the body for POST /v1/payments/stk-push.
type InitiatePaymentInput struct {
	Phone   string  `json:"phone" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Email   string  `json:"email" binding:"omitempty,email"`
	OrderID string  `json:"orderId" binding:"required"`
}

// InitiatePayment pushes an M-Pesa payment prompt to the customer's phone.
func (h *Handlers) InitiatePayment(c *gin.Context) {
	var input InitiatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !payments.ValidPhone(input.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number format"})
		return
	}

	if !h.Payments.Configured() {
		if !h.Cfg.AllowMockFallback {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment processor is not configured"})
			return
		}
		checkoutID := "mock-checkout-" + uuid.New().String()
		h.Logger.Warn("intasend credentials missing, simulating STK push",
			zap.String("order_id", input.OrderID), zap.String("checkout_id", checkoutID))
		c.JSON(http.StatusOK, gin.H{
			"checkoutId": checkoutID,
			"message":    "Payment simulated (processor not configured)",
		})
		return
	}

	resp, err := h.Payments.STKPush(c, payments.STKPushRequest{
		Phone:  input.Phone,
		Amount: input.Amount,
		Email:  input.Email,
		APIRef: input.OrderID,
	})
	if err != nil {
		var apiErr *payments.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Message})
			return
		}
		h.Logger.Error("stk push failed", zap.Error(err), zap.String("order_id", input.OrderID))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment processor unreachable"})
		return
	}

	// Record the invoice id and move the order to processing. The webhook
	// is the source of truth from here on, so a write failure is logged
	// rather than surfaced; the customer already has the prompt open.
	if h.DB != nil {
		_, err = h.DB.ExecContext(c, `
			UPDATE orders SET payment_status = ?, payment_reference = ?
			WHERE id = ? AND payment_status != ?`,
			models.PaymentProcessing, resp.InvoiceID, input.OrderID, models.PaymentCompleted,
		)
		if err != nil {
			h.Logger.Error("failed to record payment reference",
				zap.Error(err), zap.String("order_id", input.OrderID))
		}
	}

	h.Logger.Info("stk push sent",
		zap.String("order_id", input.OrderID), zap.String("invoice_id", resp.InvoiceID))

	c.JSON(http.StatusOK, gin.H{
		"checkoutId": resp.InvoiceID,
		"message":    "STK push sent. Check your phone to complete the payment.",
	})
}

// WebhookProbe answers IntaSend's endpoint-verification GET.
func (h *Handlers) WebhookProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "budgetke-payments"})
}

// PaymentWebhook is the handler for POST /v1/payments/webhook: IntaSend's
// asynchronous payment-result callback. It must stay idempotent, the
// processor retries delivery on any non-2xx response.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	if secret := h.Cfg.IntaSend.WebhookSecret; secret != "" {
		signature := c.GetHeader(WebhookSignatureHeader)
		if !payments.VerifySignature(secret, body, signature) {
			h.Logger.Warn("webhook signature mismatch", zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
	} else {
		h.Logger.Warn("INTASEND_WEBHOOK_SECRET not set, accepting webhook unverified")
	}

	var payload payments.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}
	if payload.APIRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order reference"})
		return
	}

	if h.DB == nil {
		h.Logger.Warn("webhook received without a database, acknowledging",
			zap.String("order_id", payload.APIRef), zap.String("state", payload.State))
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	if err := h.applyPaymentResult(c, &payload); err != nil {
		h.Logger.Error("webhook ledger update failed",
			zap.Error(err), zap.String("order_id", payload.APIRef), zap.String("state", payload.State))
		// 5xx so IntaSend retries; applyPaymentResult is replay-safe.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	middleware.RecordPaymentWebhook(payload.State)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// applyPaymentResult is the only place payment_status transitions happen.
// Replays are safe: the download token is minted once, paid_at is set
// once, and a completed order never regresses to processing or failed.
func (h *Handlers) applyPaymentResult(ctx context.Context, payload *payments.WebhookPayload) error {
	switch payload.State {
	case payments.StateComplete:
		return h.completeOrder(ctx, payload)

	case payments.StateProcessing:
		_, err := h.DB.ExecContext(ctx, `
			UPDATE orders SET payment_status = ?, payment_reference = ?
			WHERE id = ? AND payment_status != ?`,
			models.PaymentProcessing, payload.InvoiceID, payload.APIRef, models.PaymentCompleted,
		)
		return err

	case payments.StateFailed, payments.StateCancelled:
		reason := payload.FailedReason
		if reason == "" {
			reason = "Payment " + strings.ToLower(payload.State)
		}
		_, err := h.DB.ExecContext(ctx, `
			UPDATE orders SET payment_status = ?, notes = ?
			WHERE id = ? AND payment_status != ?`,
			models.PaymentFailed, reason, payload.APIRef, models.PaymentCompleted,
		)
		return err

	default:
		// Unknown future states must not break ingestion.
		h.Logger.Info("ignoring webhook with unknown state",
			zap.String("state", payload.State), zap.String("order_id", payload.APIRef))
		return nil
	}
}

func (h *Handlers) completeOrder(ctx context.Context, payload *payments.WebhookPayload) error {
	order, err := h.getOrderByID(ctx, payload.APIRef)
	if err != nil {
		return err
	}
	if order == nil {
		// Nothing to update; acknowledge so the processor stops retrying.
		h.Logger.Warn("webhook for unknown order", zap.String("order_id", payload.APIRef))
		return nil
	}

	if order.PaymentStatus == models.PaymentCompleted && order.DownloadToken.Valid {
		// Replay of a webhook we already processed.
		return nil
	}

	token, err := models.NewDownloadToken()
	if err != nil {
		return fmt.Errorf("mint download token: %w", err)
	}

	reference := payload.MpesaReference
	if reference == "" {
		reference = payload.InvoiceID
	}

	// COALESCE keeps the first token and timestamp even if two deliveries
	// of the same webhook race past the status check above.
	_, err = h.DB.ExecContext(ctx, `
		UPDATE orders SET payment_status = ?, payment_reference = ?, paid_at = COALESCE(paid_at, ?), download_token = COALESCE(download_token, ?)
		WHERE id = ?`,
		models.PaymentCompleted, reference, time.Now(), token, order.ID,
	)
	if err != nil {
		return err
	}

	// Read the token back rather than trusting our candidate; a racing
	// replay may have won the COALESCE.
	var finalToken string
	err = h.DB.QueryRowContext(ctx, "SELECT download_token FROM orders WHERE id = ?", order.ID).Scan(&finalToken)
	if err != nil {
		return err
	}

	h.Logger.Info("payment completed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("reference", reference),
	)

	// Receipt email is fire-and-forget: never fail the webhook over it.
	receipt := *order
	receipt.PaymentStatus = models.PaymentCompleted
	receipt.DownloadToken.String = finalToken
	receipt.DownloadToken.Valid = true
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.Mailer.SendReceipt(sendCtx, &receipt); err != nil {
			h.Logger.Error("receipt email failed",
				zap.Error(err), zap.String("order_id", receipt.ID))
		}
	}()

	return nil
}
