package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/budgetke/budgetke-api/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminLoginInput is the body for POST /v1/admin/login.
type AdminLoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin exchanges the configured back-office credentials for a JWT.
func (h *Handlers) AdminLogin(c *gin.Context) {
	var input AdminLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin := h.Cfg.Admin
	if admin.Email == "" || admin.Password == "" || admin.JWTSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin access is not configured"})
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(input.Email), []byte(admin.Email)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(admin.Password)) == 1
	if !emailOK || !passwordOK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(admin.JWTSecret, admin.Email)
	if err != nil {
		h.Logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

const adminOrderPageSize = 50

// AdminListOrders is the handler for GET /v1/admin/orders.
func (h *Handlers) AdminListOrders(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No database configured"})
		return
	}
	rows, err := h.DB.QueryContext(c,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT ?", adminOrderPageSize)
	if err != nil {
		h.Logger.Error("order list query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []any{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			h.Logger.Error("order scan failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		h.Logger.Error("order list iteration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// AdminGetOrder is the handler for GET /v1/admin/orders/:id.
func (h *Handlers) AdminGetOrder(c *gin.Context) {
	order, err := h.getOrderByID(c, c.Param("id"))
	if err != nil {
		h.Logger.Error("order fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
