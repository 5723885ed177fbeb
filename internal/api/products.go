package api

import (
	"net/http"

	"stock-alert-service/internal/models"
	"stock-alert-service/internal/service"

	"github.com/gin-gonic/gin"
)

type stockRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type thresholdRequest struct {
	MinStockLevel *int `json:"min_stock_level" binding:"required"`
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.engine.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
}

func (h *Handler) lowStockProducts(c *gin.Context) {
	products, err := h.engine.LowStockProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.engine.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

// createProduct handles product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	res, err := h.engine.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	if res.Replayed {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    res.Product,
			"message": "Product already created",
		})
		return
	}
	c.JSON(http.StatusCreated, mutationBody(res, "Product created successfully"))
}

func (h *Handler) updateProduct(c *gin.Context) {
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	res, err := h.engine.UpdateProduct(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, mutationBody(res, "Product updated successfully"))
}

func (h *Handler) updateStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Valid quantity is required")
		return
	}

	res, err := h.engine.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	if err != nil {
		h.fail(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, mutationBody(res, "Stock updated successfully"))
}

func (h *Handler) updateThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Valid min_stock_level is required")
		return
	}

	res, err := h.engine.UpdateThreshold(c.Request.Context(), c.Param("id"), *req.MinStockLevel)
	if err != nil {
		h.fail(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, mutationBody(res, "Threshold updated successfully"))
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.engine.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted successfully",
	})
}

func mutationBody(res *service.MutationResult, message string) gin.H {
	body := gin.H{
		"success":      true,
		"data":         res.Product,
		"alert_action": res.AlertAction,
		"message":      message,
	}
	if res.Alert != nil {
		body["alert"] = res.Alert
	}
	return body
}
