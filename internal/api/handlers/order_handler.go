// internal/api/handlers/order_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/koyomart/autoorder-go/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// GetStores returns all stores the batch runs over.
func (h *OrderHandler) GetStores(c *gin.Context) {
	stores, err := h.orderService.Stores(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

// GetProposals returns the latest order list for one store.
func (h *OrderHandler) GetProposals(c *gin.Context) {
	storeID, ok := storeParam(c)
	if !ok {
		return
	}

	proposals, found, err := h.orderService.LatestProposals(c.Request.Context(), storeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recent run for store"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"store_id": storeID, "proposals": proposals})
}

// GetReport returns the latest run report for one store, including which
// safeguards were engaged.
func (h *OrderHandler) GetReport(c *gin.Context) {
	storeID, ok := storeParam(c)
	if !ok {
		return
	}

	report, found, err := h.orderService.LatestReport(c.Request.Context(), storeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recent run for store"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetExclusions returns the cached externally-managed item list.
func (h *OrderHandler) GetExclusions(c *gin.Context) {
	storeID, ok := storeParam(c)
	if !ok {
		return
	}

	count, entries, err := h.orderService.ExclusionStats(c.Request.Context(), storeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"store_id": storeID, "count": count, "items": entries})
}

// GetExports lists the order CSVs uploaded to object storage for a date.
func (h *OrderHandler) GetExports(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		date = parsed
	}

	objects, err := h.orderService.Exports(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date.Format("2006-01-02"), "exports": objects})
}

// RunStore triggers an ad-hoc run for one store.
func (h *OrderHandler) RunStore(c *gin.Context) {
	storeID, ok := storeParam(c)
	if !ok {
		return
	}

	wave, err := strconv.Atoi(c.DefaultQuery("wave", "1"))
	if err != nil || wave < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wave"})
		return
	}

	outcomes, err := h.orderService.RunStores(c.Request.Context(), []int64{storeID}, time.Now(), wave)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": outcomes[0].Report, "proposals": outcomes[0].Proposals})
}

func storeParam(c *gin.Context) (int64, bool) {
	storeID, err := strconv.ParseInt(c.Param("store"), 10, 64)
	if err != nil || storeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return 0, false
	}
	return storeID, true
}
