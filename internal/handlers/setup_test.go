package handlers

import (
	"database/sql/driver"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/budgetke/budgetke-api/internal/catalog"
	"github.com/budgetke/budgetke-api/internal/config"
	"github.com/budgetke/budgetke-api/internal/email"
	"github.com/budgetke/budgetke-api/internal/models"
	"github.com/budgetke/budgetke-api/internal/payments"
	"github.com/budgetke/budgetke-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCatalogProducts = `[
	{"id": "prod-1", "slug": "budget-planner", "name": "Budget Planner", "price": 799, "fileUrl": "https://cdn.example.com/budget-planner.xlsx"},
	{"id": "prod-2", "slug": "invoice-tracker", "name": "Invoice Tracker", "price": 499, "fileUrl": "https://cdn.example.com/invoice-tracker.xlsx"},
	{"id": "prod-3", "slug": "no-file", "name": "No File Yet", "price": 99, "fileUrl": ""}
]`

const testCatalogBundles = `[
	{"id": "bundle-1", "slug": "starter-pack", "name": "Starter Pack", "price": 999,
	 "productSlugs": ["budget-planner", "invoice-tracker"]}
]`

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8080",
		AppBaseURL:        "http://localhost:8080",
		MaxDownloads:      5,
		SignedURLTTL:      5 * time.Minute,
		StaleOrderAge:     24 * time.Hour,
		AllowMockFallback: true,
		IntaSend:          config.IntaSendConfig{WebhookSecret: "test-secret"},
		Admin: config.AdminConfig{
			Email:     "admin@budgetke.co.ke",
			Password:  "hunter2hunter2",
			JWTSecret: "test-jwt-secret",
		},
	}
}

func writeCatalog(t *testing.T, products, bundles string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.json"), []byte(products), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundles.json"), []byte(bundles), 0644))
	return catalog.New(dir)
}

func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testConfig()
	// Nop logger: the receipt-email goroutine can outlive a test, and a
	// test-bound logger would panic on late writes.
	logger := zap.NewNop()

	h := &Handlers{
		DB:       db,
		Cfg:      cfg,
		Catalog:  writeCatalog(t, testCatalogProducts, testCatalogBundles),
		Payments: payments.NewClient("", false),
		Mailer:   email.NewMailer("", "BudgetKE <orders@budgetke.co.ke>", cfg.AppBaseURL, logger),
		Storage:  storage.NewClient("https://abc.supabase.co", "service-key", "downloads", cfg.SignedURLTTL),
		Logger:   logger,
	}

	gin.SetMode(gin.TestMode)
	return h, mock
}

func newTestRouter(h *Handlers) *gin.Engine {
	RegisterValidators()
	router := gin.New()
	v1 := router.Group("/v1")
	v1.POST("/orders", h.CreateOrder)
	v1.GET("/orders/:id/status", h.GetOrderStatus)
	v1.POST("/payments/stk-push", h.InitiatePayment)
	v1.POST("/payments/webhook", h.PaymentWebhook)
	v1.GET("/payments/webhook", h.WebhookProbe)
	v1.GET("/downloads/:token/:productId", h.DownloadFile)
	v1.POST("/admin/login", h.AdminLogin)
	return router
}

var orderColumnNames = []string{
	"id", "order_number", "email", "phone", "customer_name", "items",
	"subtotal", "discount", "total", "currency", "payment_status",
	"payment_method", "payment_reference", "download_token",
	"download_count", "max_downloads", "ip_address", "user_agent",
	"notes", "created_at", "paid_at",
}

type orderRow struct {
	id            string
	status        string
	token         any
	reference     any
	notes         any
	downloadCount int
	maxDownloads  int
	items         []models.OrderItem
	paidAt        any
}

func orderRows(t *testing.T, o orderRow) *sqlmock.Rows {
	t.Helper()
	itemsJSON, err := json.Marshal(o.items)
	require.NoError(t, err)

	return sqlmock.NewRows(orderColumnNames).AddRow(
		o.id, "BK-20260830-ABC123", "jane@example.com", "254712345678", nil,
		itemsJSON, 799.0, 0.0, 799.0, "KES", o.status,
		"mpesa", o.reference, o.token,
		o.downloadCount, o.maxDownloads, "127.0.0.1", "test-agent",
		o.notes, time.Now(), o.paidAt,
	)
}

// itemsMatcher asserts on the JSON items column bound into an INSERT.
type itemsMatcher struct {
	t     *testing.T
	check func([]models.OrderItem) bool
}

func (m itemsMatcher) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	var items []models.OrderItem
	if err := json.Unmarshal(b, &items); err != nil {
		return false
	}
	return m.check(items)
}
