// internal/api/handlers/calibration_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/koyomart/autoorder-go/internal/service"
)

type CalibrationHandler struct {
	calService *service.CalibrationService
}

func NewCalibrationHandler(calService *service.CalibrationService) *CalibrationHandler {
	return &CalibrationHandler{calService: calService}
}

// GetCurrent returns a store's authoritative calibration parameters.
func (h *CalibrationHandler) GetCurrent(c *gin.Context) {
	storeID, ok := storeParam(c)
	if !ok {
		return
	}

	params, err := h.calService.Current(c.Request.Context(), storeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, params)
}

// GetHistory returns the append-only version trail.
func (h *CalibrationHandler) GetHistory(c *gin.Context) {
	storeID, ok := storeParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.calService.History(c.Request.Context(), storeID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"store_id": storeID, "history": history})
}

// GetDivergence lists stores drifting from the fleet median.
func (h *CalibrationHandler) GetDivergence(c *gin.Context) {
	threshold, err := strconv.ParseFloat(c.DefaultQuery("threshold", "0.3"), 64)
	if err != nil || threshold <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
		return
	}

	divergent, err := h.calService.Divergent(c.Request.Context(), threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "stores": divergent})
}
