package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/budgetke/budgetke-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createOrderBody = `{
	"email": "jane@example.com",
	"phone": "254712345678",
	"customerName": "Jane",
	"items": [{"productId": "prod-1", "name": "Budget Planner", "price": 799, "quantity": 1, "type": "product"}],
	"total": 799
}`

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateOrder_Success(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := newTestRouter(h)

	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postJSON(router, "/v1/orders", createOrderBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["orderId"])
	assert.Regexp(t, regexp.MustCompile(`^BK-\d{8}-[A-Z0-9]{6}$`), resp["orderNumber"])
	assert.Nil(t, resp["mock"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_ValidationFailures(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	cases := map[string]string{
		"missing email": `{"phone": "254712345678", "items": [{"productId": "p", "name": "P", "quantity": 1, "type": "product"}], "total": 10}`,
		"missing phone": `{"email": "a@b.com", "items": [{"productId": "p", "name": "P", "quantity": 1, "type": "product"}], "total": 10}`,
		"invalid phone": `{"email": "a@b.com", "phone": "0712345678", "items": [{"productId": "p", "name": "P", "quantity": 1, "type": "product"}], "total": 10}`,
		"empty items":   `{"email": "a@b.com", "phone": "254712345678", "items": [], "total": 10}`,
		"zero total":    `{"email": "a@b.com", "phone": "254712345678", "items": [{"productId": "p", "name": "P", "quantity": 1, "type": "product"}], "total": 0}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := postJSON(router, "/v1/orders", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateOrder_BundleExpansion(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := newTestRouter(h)

	body := `{
		"email": "jane@example.com",
		"phone": "254712345678",
		"items": [{"productId": "starter-pack", "name": "Starter Pack", "price": 999, "quantity": 1, "type": "bundle"}],
		"total": 999
	}`

	expandedOK := itemsMatcher{t: t, check: func(items []models.OrderItem) bool {
		if len(items) != 2 {
			return false
		}
		for _, item := range items {
			if item.Type != models.ItemTypeProduct || item.Price != 0 || item.Quantity != 1 {
				return false
			}
		}
		return items[0].ProductID == "prod-1" && items[1].ProductID == "prod-2"
	}}

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), "jane@example.com", "254712345678", sqlmock.AnyArg(),
			expandedOK,
			999.0, 0.0, 999.0, "KES", models.PaymentPending, "mpesa", 5,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postJSON(router, "/v1/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_MockFallbackOnInsertFailure(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := newTestRouter(h)

	mock.ExpectExec("INSERT INTO orders").WillReturnError(sql.ErrConnDone)

	w := postJSON(router, "/v1/orders", createOrderBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["mock"])
	assert.True(t, strings.HasPrefix(resp["orderId"].(string), "mock-"))
}

func TestCreateOrder_HardFailureWhenFallbackDisabled(t *testing.T) {
	h, mock := newTestHandlers(t)
	h.Cfg.AllowMockFallback = false
	router := newTestRouter(h)

	mock.ExpectExec("INSERT INTO orders").WillReturnError(sql.ErrConnDone)

	w := postJSON(router, "/v1/orders", createOrderBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetOrderStatus(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := newTestRouter(h)

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = ?").
		WithArgs("order-1").
		WillReturnRows(orderRows(t, orderRow{
			id: "order-1", status: models.PaymentCompleted,
			token: "tok", maxDownloads: 5,
		}))

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/order-1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "completed"}`, w.Body.String())
}

func TestGetOrderStatus_FailedIncludesReason(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := newTestRouter(h)

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = ?").
		WithArgs("order-1").
		WillReturnRows(orderRows(t, orderRow{
			id: "order-1", status: models.PaymentFailed,
			notes: "Request cancelled by user", maxDownloads: 5,
		}))

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/order-1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "failed", "error": "Request cancelled by user"}`, w.Body.String())
}

func TestGetOrderStatus_NotFound(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := newTestRouter(h)

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = ?").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/missing/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
