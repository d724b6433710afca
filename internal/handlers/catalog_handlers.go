package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetProducts is the handler for GET /v1/products.
func (h *Handlers) GetProducts(c *gin.Context) {
	products, err := h.Catalog.Products()
	if err != nil {
		h.Logger.Error("catalog load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct is the handler for GET /v1/products/:slug (id works too).
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.Catalog.ProductByRef(c.Param("slug"))
	if err != nil {
		h.Logger.Error("catalog load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// GetBundle is the handler for GET /v1/bundles/:slug.
func (h *Handlers) GetBundle(c *gin.Context) {
	bundle, err := h.Catalog.BundleByRef(c.Param("slug"))
	if err != nil {
		h.Logger.Error("catalog load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
		return
	}
	if bundle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bundle not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bundle": bundle})
}

// GetCategories is the handler for GET /v1/categories.
func (h *Handlers) GetCategories(c *gin.Context) {
	categories, err := h.Catalog.Categories()
	if err != nil {
		h.Logger.Error("catalog load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
