package handlers

import (
	"net/http"
	"time"

	"github.com/budgetke/budgetke-api/internal/middleware"
	"github.com/budgetke/budgetke-api/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DownloadFile is the handler for GET /v1/downloads/:token/:productId.
// The token is the only credential: it resolves the order, which must be
// paid, under quota, and must actually contain the requested product.
// The redirect target is a short-lived signed URL, so the emailed link
// never becomes a permanently shareable pointer to the asset.
func (h *Handlers) DownloadFile(c *gin.Context) {
	token := c.Param("token")
	productID := c.Param("productId")

	order, err := h.getOrderByToken(c, token)
	if err != nil {
		h.Logger.Error("download token lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve download"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid download link"})
		return
	}

	if order.PaymentStatus != models.PaymentCompleted {
		c.JSON(http.StatusForbidden, gin.H{"error": "Payment not confirmed for this order"})
		return
	}

	if order.DownloadCount >= order.MaxDownloads {
		c.JSON(http.StatusForbidden, gin.H{"error": "Download limit reached for this order"})
		return
	}

	if !order.HasProduct(productID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "This product is not part of your order"})
		return
	}

	product, err := h.Catalog.ProductByRef(productID)
	if err != nil {
		h.Logger.Error("catalog lookup failed", zap.Error(err), zap.String("product_id", productID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve download"})
		return
	}
	if product == nil || product.FileURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found for this product"})
		return
	}

	// Audit log is best-effort; a logging hiccup must not block delivery.
	_, err = h.DB.ExecContext(c, `
		INSERT INTO download_logs (order_id, product_id, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		order.ID, productID, c.ClientIP(), c.Request.UserAgent(), time.Now(),
	)
	if err != nil {
		h.Logger.Warn("download log insert failed", zap.Error(err), zap.String("order_id", order.ID))
	}

	// Conditional increment closes the check-then-act window: concurrent
	// requests on the same token cannot push the counter past the quota.
	res, err := h.DB.ExecContext(c, `
		UPDATE orders SET download_count = download_count + 1
		WHERE id = ? AND download_count < max_downloads`,
		order.ID,
	)
	if err != nil {
		h.Logger.Error("download counter update failed", zap.Error(err), zap.String("order_id", order.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve download"})
		return
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// Lost the race to the last slot.
		c.JSON(http.StatusForbidden, gin.H{"error": "Download limit reached for this order"})
		return
	}

	// The quota slot is consumed even if signing fails below; the counter
	// tracks attempts, not completed transfers.
	target, err := h.Storage.ResolveDownloadURL(c, product.FileURL)
	if err != nil {
		h.Logger.Error("signed url minting failed",
			zap.Error(err), zap.String("order_id", order.ID), zap.String("product_id", productID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare download"})
		return
	}

	h.Logger.Info("download served",
		zap.String("order_id", order.ID),
		zap.String("product_id", productID),
		zap.Int("download_count", order.DownloadCount+1),
	)
	middleware.RecordDownloadServed()

	c.Redirect(http.StatusFound, target)
}
