package models

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// Payment status values for the 'orders' table.
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
)

// Item types for cart and order lines. Persisted order items are always
// product-level; bundles are expanded into their member products before
// the order is written.
const (
	ItemTypeProduct = "product"
	ItemTypeBundle  = "bundle"
)

// Currency is the only currency this storefront charges in.
const Currency = "KES"

// OrderItem is one priced line inside an order's items snapshot.
// The whole slice is stored as a JSON column on the orders row.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Type      string  `json:"type"`
}

// Order is the model for the 'orders' table.
type Order struct {
	ID               string         `json:"id" db:"id"`
	OrderNumber      string         `json:"orderNumber" db:"order_number"`
	Email            string         `json:"email" db:"email"`
	Phone            string         `json:"phone" db:"phone"`
	CustomerName     sql.NullString `json:"customerName,omitempty" db:"customer_name"`
	Items            []OrderItem    `json:"items" db:"items"`
	Subtotal         float64        `json:"subtotal" db:"subtotal"`
	Discount         float64        `json:"discount" db:"discount"`
	Total            float64        `json:"total" db:"total"`
	Currency         string         `json:"currency" db:"currency"`
	PaymentStatus    string         `json:"paymentStatus" db:"payment_status"`
	PaymentMethod    string         `json:"paymentMethod" db:"payment_method"`
	PaymentReference sql.NullString `json:"paymentReference,omitempty" db:"payment_reference"`
	DownloadToken    sql.NullString `json:"-" db:"download_token"`
	DownloadCount    int            `json:"downloadCount" db:"download_count"`
	MaxDownloads     int            `json:"maxDownloads" db:"max_downloads"`
	IPAddress        sql.NullString `json:"-" db:"ip_address"`
	UserAgent        sql.NullString `json:"-" db:"user_agent"`
	Notes            sql.NullString `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time      `json:"createdAt" db:"created_at"`
	PaidAt           sql.NullTime   `json:"paidAt,omitempty" db:"paid_at"`
}

// HasProduct reports whether a product id appears among the order's items.
// Items are product-level after bundle expansion, so a plain id match is
// all the delivery gate needs.
func (o *Order) HasProduct(productID string) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// DownloadLog is the model for the 'download_logs' table (append-only audit).
type DownloadLog struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   string    `json:"orderId" db:"order_id"`
	ProductID string    `json:"productId" db:"product_id"`
	IPAddress string    `json:"ipAddress" db:"ip_address"`
	UserAgent string    `json:"userAgent" db:"user_agent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewDownloadToken mints the opaque capability string that guards the
// download endpoint. 32 random bytes, hex encoded.
func NewDownloadToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

const orderNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderNumber builds the human-facing order number, e.g. BK-20260830-X4K9ZQ.
func NewOrderNumber(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to a
		// timestamp suffix rather than failing checkout.
		return fmt.Sprintf("BK-%s-%06d", now.Format("20060102"), now.UnixNano()%1000000)
	}
	for i, b := range buf {
		buf[i] = orderNumberCharset[int(b)%len(orderNumberCharset)]
	}
	return fmt.Sprintf("BK-%s-%s", now.Format("20060102"), string(buf))
}
