package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/budgetke/budgetke-api/internal/catalog"
	"github.com/budgetke/budgetke-api/internal/config"
	"github.com/budgetke/budgetke-api/internal/email"
	"github.com/budgetke/budgetke-api/internal/models"
	"github.com/budgetke/budgetke-api/internal/payments"
	"github.com/budgetke/budgetke-api/internal/storage"
	"go.uber.org/zap"
)

// Handlers holds every dependency the request handlers need. main wires it
// once; tests substitute sqlmock databases and httptest-backed clients.
type Handlers struct {
	DB       *sql.DB
	Cfg      *config.Config
	Catalog  *catalog.Catalog
	Payments *payments.Client
	Mailer   *email.Mailer
	Storage  *storage.Client
	Logger   *zap.Logger
}

// errNoDatabase stands in for an insert error when the process runs with
// no database at all (mock-fallback demo mode).
var errNoDatabase = errors.New("no database configured")

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const orderColumns = `id, order_number, email, phone, customer_name, items, subtotal, discount, total, currency, payment_status, payment_method, payment_reference, download_token, download_count, max_downloads, ip_address, user_agent, notes, created_at, paid_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var itemsJSON []byte

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Email, &o.Phone, &o.CustomerName,
		&itemsJSON, &o.Subtotal, &o.Discount, &o.Total, &o.Currency,
		&o.PaymentStatus, &o.PaymentMethod, &o.PaymentReference,
		&o.DownloadToken, &o.DownloadCount, &o.MaxDownloads,
		&o.IPAddress, &o.UserAgent, &o.Notes, &o.CreatedAt, &o.PaidAt,
	)
	if err != nil {
		return nil, err
	}

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

// getOrderByID loads one order; (nil, nil) when no row matches.
func (h *Handlers) getOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if h.DB == nil {
		return nil, errNoDatabase
	}
	row := h.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return order, err
}

// getOrderByToken loads the order owning a download token; (nil, nil) when
// the token matches nothing.
func (h *Handlers) getOrderByToken(ctx context.Context, token string) (*models.Order, error) {
	if h.DB == nil {
		return nil, errNoDatabase
	}
	row := h.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE download_token = ?", token)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return order, err
}
