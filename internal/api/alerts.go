package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listAlerts(c *gin.Context) {
	alerts, err := h.engine.AllAlerts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

func (h *Handler) unresolvedAlerts(c *gin.Context) {
	alerts, err := h.engine.UnresolvedAlerts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

func (h *Handler) alertsForProduct(c *gin.Context) {
	alerts, err := h.engine.AlertsForProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

func (h *Handler) resolveAlert(c *gin.Context) {
	alert, err := h.engine.ManualResolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Alert not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    alert,
		"message": "Alert resolved successfully",
	})
}

func (h *Handler) deleteAlert(c *gin.Context) {
	if err := h.engine.DeleteAlert(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Alert not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Alert deleted successfully",
	})
}
