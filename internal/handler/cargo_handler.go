package handler

import (
	"net/http"

	"freightdesk/internal/middleware"
	"freightdesk/internal/service"
	"freightdesk/pkg/pagination"
	"freightdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type CargoHandler struct {
	cargoService service.CargoService
}

func NewCargoHandler(cargoService service.CargoService) *CargoHandler {
	return &CargoHandler{cargoService: cargoService}
}

func (h *CargoHandler) RegisterRoutes(router *gin.RouterGroup) {
	cargo := router.Group("/api/cargo")
	{
		cargo.GET("", middleware.RequirePermission("cargo.read"), h.ListCargo)
		cargo.GET("/:id", middleware.RequirePermission("cargo.read"), h.GetCargo)
		cargo.POST("", middleware.RequirePermission("cargo.write"), h.CreateCargo)
		cargo.PUT("/:id", middleware.RequirePermission("cargo.write"), h.UpdateCargo)
		cargo.DELETE("/:id", middleware.RequirePermission("cargo.delete"), h.DeleteCargo)
	}
}

// ListCargo returns paginated cargo items with optional filters
// @Summary      List cargo items
// @Tags         cargo
// @Security     BearerAuth
// @Produce      json
// @Param        page          query  int     false  "Page number (default: 1)"
// @Param        limit         query  int     false  "Items per page (default: 20)"
// @Param        client_id     query  string  false  "Filter by client"
// @Param        container_id  query  string  false  "Filter by container"
// @Param        status        query  string  false  "Filter by status"
// @Param        search        query  string  false  "Search by reference or description"
// @Success      200  {object}  response.Response
// @Router       /api/cargo [get]
func (h *CargoHandler) ListCargo(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.CargoListFilter{
		ClientID:    c.Query("client_id"),
		ContainerID: c.Query("container_id"),
		Status:      c.Query("status"),
		Search:      c.Query("search"),
		Page:        p.Page,
		Limit:       p.Limit,
	}

	items, total, err := h.cargoService.ListCargo(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, p.Page, p.Limit, total))
}

// GetCargo returns a single cargo item
// @Summary      Get cargo item
// @Tags         cargo
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Cargo item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/cargo/{id} [get]
func (h *CargoHandler) GetCargo(c *gin.Context) {
	id := c.Param("id")

	item, err := h.cargoService.GetCargo(c.Request.Context(), id)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// CreateCargo registers a new cargo item for a client
// @Summary      Create cargo item
// @Tags         cargo
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateCargoRequest  true  "Cargo payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/cargo [post]
func (h *CargoHandler) CreateCargo(c *gin.Context) {
	var req service.CreateCargoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	item, err := h.cargoService.CreateCargo(c.Request.Context(), userID, req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateCargo updates a cargo item's details and costs
// @Summary      Update cargo item
// @Tags         cargo
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Cargo item ID"
// @Param        payload  body  service.UpdateCargoRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/cargo/{id} [put]
func (h *CargoHandler) UpdateCargo(c *gin.Context) {
	id := c.Param("id")

	var req service.UpdateCargoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	item, err := h.cargoService.UpdateCargo(c.Request.Context(), userID, id, req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteCargo deletes an unassigned cargo item (soft delete)
// @Summary      Delete cargo item
// @Tags         cargo
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Cargo item ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/cargo/{id} [delete]
func (h *CargoHandler) DeleteCargo(c *gin.Context) {
	id := c.Param("id")
	userID := c.GetString("userID")

	if err := h.cargoService.DeleteCargo(c.Request.Context(), userID, id); err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Cargo item deleted successfully"}))
}
