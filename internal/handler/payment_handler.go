package handler

import (
	"net/http"

	"freightdesk/internal/middleware"
	"freightdesk/internal/service"
	"freightdesk/pkg/pagination"
	"freightdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/api/payments")
	{
		payments.GET("", middleware.RequirePermission("payments.read"), h.ListPayments)
		payments.GET("/:id", middleware.RequirePermission("payments.read"), h.GetPayment)
	}
}

// ListPayments returns paginated payments with optional filters
// @Summary      List payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        page          query  int     false  "Page number (default: 1)"
// @Param        limit         query  int     false  "Items per page (default: 20)"
// @Param        client_id     query  string  false  "Filter by client"
// @Param        cargo_id      query  string  false  "Filter by cargo item"
// @Param        container_id  query  string  false  "Filter by container"
// @Param        status        query  string  false  "Filter by status"
// @Success      200  {object}  response.Response
// @Router       /api/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.PaymentListFilter{
		ClientID:    c.Query("client_id"),
		CargoItemID: c.Query("cargo_id"),
		ContainerID: c.Query("container_id"),
		Status:      c.Query("status"),
		Page:        p.Page,
		Limit:       p.Limit,
	}

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, payments, p.Page, p.Limit, total))
}

// GetPayment returns a single payment
// @Summary      Get payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Payment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")

	payment, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}
