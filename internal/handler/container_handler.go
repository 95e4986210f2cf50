package handler

import (
	"net/http"

	"freightdesk/internal/middleware"
	"freightdesk/internal/service"
	"freightdesk/pkg/pagination"
	"freightdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ContainerHandler struct {
	containerService service.ContainerService
}

func NewContainerHandler(containerService service.ContainerService) *ContainerHandler {
	return &ContainerHandler{containerService: containerService}
}

func (h *ContainerHandler) RegisterRoutes(router *gin.RouterGroup) {
	containers := router.Group("/api/containers")
	{
		containers.GET("", middleware.RequirePermission("containers.read"), h.ListContainers)
		containers.GET("/:id", middleware.RequirePermission("containers.read"), h.GetContainer)
		containers.GET("/:id/manifest", middleware.RequirePermission("containers.read"), h.GetManifest)
		containers.POST("", middleware.RequirePermission("containers.write"), h.CreateContainer)
		containers.PUT("/:id", middleware.RequirePermission("containers.write"), h.UpdateContainer)
	}
}

// ListContainers returns paginated containers with optional filters
// @Summary      List containers
// @Tags         containers
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default: 1)"
// @Param        limit        query  int     false  "Items per page (default: 20)"
// @Param        status       query  string  false  "Filter by status"
// @Param        destination  query  string  false  "Filter by destination"
// @Success      200  {object}  response.Response
// @Router       /api/containers [get]
func (h *ContainerHandler) ListContainers(c *gin.Context) {
	p := pagination.Parse(c)
	status := c.Query("status")
	destination := c.Query("destination")

	containers, total, err := h.containerService.ListContainers(c.Request.Context(), status, destination, p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, containers, p.Page, p.Limit, total))
}

// GetContainer returns a single container with its capacity usage
// @Summary      Get container
// @Tags         containers
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Container ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/containers/{id} [get]
func (h *ContainerHandler) GetContainer(c *gin.Context) {
	id := c.Param("id")

	container, err := h.containerService.GetContainer(c.Request.Context(), id)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, container))
}

// GetManifest returns the list of items currently assigned to a container
// @Summary      Get container manifest
// @Tags         containers
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Container ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/containers/{id}/manifest [get]
func (h *ContainerHandler) GetManifest(c *gin.Context) {
	id := c.Param("id")

	manifest, err := h.containerService.GetManifest(c.Request.Context(), id)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, manifest))
}

// CreateContainer creates a new container in the ouvert state
// @Summary      Create container
// @Tags         containers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateContainerRequest  true  "Container payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/containers [post]
func (h *ContainerHandler) CreateContainer(c *gin.Context) {
	var req service.CreateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	container, err := h.containerService.CreateContainer(c.Request.Context(), userID, req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, container))
}

// UpdateContainer updates a container's declared capacity and details
// @Summary      Update container
// @Tags         containers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                          true  "Container ID"
// @Param        payload  body  service.UpdateContainerRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/containers/{id} [put]
func (h *ContainerHandler) UpdateContainer(c *gin.Context) {
	id := c.Param("id")

	var req service.UpdateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	container, err := h.containerService.UpdateContainer(c.Request.Context(), userID, id, req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, container))
}
