package handler

import (
	"net/http"
	"time"

	"freightdesk/internal/middleware"
	"freightdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("", middleware.RequirePermission("dashboard.read"), h.GetStatistics)
		statsGroup.GET("/collections", middleware.RequirePermission("finance.read"), h.GetCollections)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Get cargo/container counts, fill rates and collection totals bounded by time
// @Tags         Statistics
// @Accept       json
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]interface{} "Invalid date format"
// @Failure      401 {object} map[string]interface{} "Unauthorized"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDate, endDate, ok := parseDateRange(c)
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetDashboard(c.Request.Context(), startDate, endDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    stats,
	})
}

// @Summary      Get Collections Report
// @Description  Get due/collected/outstanding totals bucketed by period
// @Tags         Statistics
// @Accept       json
// @Produce      json
// @Param        group_by   query string false "Bucket size: week, month, quarter, year (default: month)"
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]interface{} "Invalid date format"
// @Failure      401 {object} map[string]interface{} "Unauthorized"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Security     BearerAuth
// @Router       /api/statistics/collections [get]
func (h *StatisticsHandler) GetCollections(c *gin.Context) {
	startDate, endDate, ok := parseDateRange(c)
	if !ok {
		return
	}

	points, err := h.statisticsService.GetCollections(c.Request.Context(), service.CollectionFilter{
		GroupBy:   c.Query("group_by"),
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    points,
	})
}

// parseDateRange reads start_date/end_date, defaulting to the current month.
// Writes the error response itself when a date fails to parse.
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	now := time.Now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date format, expected RFC3339"})
			return time.Time{}, time.Time{}, false
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date format, expected RFC3339"})
			return time.Time{}, time.Time{}, false
		}
	}

	return startDate, endDate, true
}
