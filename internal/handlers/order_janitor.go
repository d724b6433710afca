package handlers

import (
	"context"
	"time"

	"github.com/budgetke/budgetke-api/internal/models"
	"go.uber.org/zap"
)

// ProcessStaleOrders fails pending orders whose payment window has long
// expired, so the admin order list and the customer's order history stop
// showing zombie checkouts. Runs on a ticker goroutine started in main.
func (h *Handlers) ProcessStaleOrders() {
	if h.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-h.Cfg.StaleOrderAge)
	res, err := h.DB.ExecContext(ctx, `
		UPDATE orders SET payment_status = ?, notes = ?
		WHERE payment_status = ? AND created_at < ?`,
		models.PaymentFailed, "Payment window expired", models.PaymentPending, cutoff,
	)
	if err != nil {
		h.Logger.Error("stale order sweep failed", zap.Error(err))
		return
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		h.Logger.Info("expired stale pending orders", zap.Int64("count", affected))
	}
}
