package handler

import (
	"errors"
	"net/http"

	"freightdesk/internal/middleware"
	"freightdesk/internal/service"
	"freightdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// --- Request payloads ---

type AssignCargoRequest struct {
	ContainerID string `json:"container_id" binding:"required"`
}

type AdvanceContainerRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReconciliationHandler exposes the transactional operations: assignment,
// container lifecycle, payments and balance queries.
type ReconciliationHandler struct {
	reconciliation service.ReconciliationService
}

func NewReconciliationHandler(reconciliation service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliation: reconciliation}
}

func (h *ReconciliationHandler) RegisterRoutes(router *gin.RouterGroup) {
	cargo := router.Group("/api/cargo")
	{
		cargo.POST("/:id/assign", middleware.RequirePermission("containers.operate"), h.AssignCargo)
		cargo.POST("/:id/unassign", middleware.RequirePermission("containers.operate"), h.UnassignCargo)
	}

	containers := router.Group("/api/containers")
	{
		containers.POST("/:id/close", middleware.RequirePermission("containers.operate"), h.CloseContainer)
		containers.POST("/:id/reopen", middleware.RequirePermission("containers.operate"), h.ReopenContainer)
		containers.POST("/:id/advance", middleware.RequirePermission("containers.operate"), h.AdvanceContainer)
		containers.POST("/:id/recompute", middleware.RequirePermission("containers.operate"), h.RecomputeCapacity)
	}

	payments := router.Group("/api/payments")
	{
		payments.POST("", middleware.RequirePermission("payments.write"), h.RecordPayment)
		payments.POST("/:id/cancel", middleware.RequirePermission("payments.cancel"), h.CancelPayment)
	}

	router.GET("/api/balance", middleware.RequirePermission("finance.read"), h.GetBalance)
}

// AssignCargo places a cargo item into a container, enforcing capacity
// @Summary      Assign cargo to container
// @Tags         reconciliation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string              true  "Cargo item ID"
// @Param        payload  body  AssignCargoRequest  true  "Target container"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/cargo/{id}/assign [post]
func (h *ReconciliationHandler) AssignCargo(c *gin.Context) {
	var req AssignCargoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	result, err := h.reconciliation.AssignItem(c.Request.Context(), userID, c.Param("id"), req.ContainerID)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UnassignCargo removes a cargo item from its container
// @Summary      Unassign cargo from container
// @Tags         reconciliation
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Cargo item ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/cargo/{id}/unassign [post]
func (h *ReconciliationHandler) UnassignCargo(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.reconciliation.UnassignItem(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CloseContainer closes a container and moves its items to en_transit
// @Summary      Close container
// @Tags         reconciliation
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Container ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/containers/{id}/close [post]
func (h *ReconciliationHandler) CloseContainer(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.reconciliation.CloseContainer(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ReopenContainer reopens a closed container
// @Summary      Reopen container
// @Tags         reconciliation
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Container ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/containers/{id}/reopen [post]
func (h *ReconciliationHandler) ReopenContainer(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.reconciliation.ReopenContainer(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AdvanceContainer moves a container to the next lifecycle status
// @Summary      Advance container status
// @Tags         reconciliation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Container ID"
// @Param        payload  body  AdvanceContainerRequest  true  "Target status"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/containers/{id}/advance [post]
func (h *ReconciliationHandler) AdvanceContainer(c *gin.Context) {
	var req AdvanceContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	result, err := h.reconciliation.AdvanceContainer(c.Request.Context(), userID, c.Param("id"), req.Status)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RecomputeCapacity rebuilds a container's used weight/volume from its items
// @Summary      Recompute container capacity
// @Tags         reconciliation
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Container ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/containers/{id}/recompute [post]
func (h *ReconciliationHandler) RecomputeCapacity(c *gin.Context) {
	usage, err := h.reconciliation.RecomputeCapacity(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, usage))
}

// RecordPayment records a payment against a client, cargo item or container
// @Summary      Record payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.RecordPaymentRequest  true  "Payment payload"
// @Success      201  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/payments [post]
func (h *ReconciliationHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	payment, err := h.reconciliation.RecordPayment(c.Request.Context(), userID, req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// CancelPayment cancels a payment; cancelling twice is a no-op
// @Summary      Cancel payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Payment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/payments/{id}/cancel [post]
func (h *ReconciliationHandler) CancelPayment(c *gin.Context) {
	userID := c.GetString("userID")

	payment, err := h.reconciliation.CancelPayment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// GetBalance returns due/paid/remaining for exactly one scope
// @Summary      Get balance
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        client_id     query  string  false  "Client scope"
// @Param        cargo_id      query  string  false  "Cargo item scope"
// @Param        container_id  query  string  false  "Container scope"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/balance [get]
func (h *ReconciliationHandler) GetBalance(c *gin.Context) {
	scope, err := parseBalanceScope(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	balance, err := h.reconciliation.Balance(c.Request.Context(), scope)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

func parseBalanceScope(c *gin.Context) (service.BalanceScope, error) {
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return service.BalanceScope{}, err
		}
		return service.ClientScope(id), nil
	}
	if raw := c.Query("cargo_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return service.BalanceScope{}, err
		}
		return service.CargoScope(id), nil
	}
	if raw := c.Query("container_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return service.BalanceScope{}, err
		}
		return service.ContainerScope(id), nil
	}
	return service.BalanceScope{}, errors.New("one of client_id, cargo_id or container_id is required")
}
