package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
)

type Handler struct {
	svc *CatalogService
}

func NewHandler(svc *CatalogService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes exposes reads to every authenticated role and writes to
// admins only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/service-categories", h.ListCategories)
	api.GET("/services", h.ListServices)
	api.GET("/services/:id", h.GetService)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/service-categories", h.CreateCategory)
	adminGroup.PUT("/service-categories/:id", h.UpdateCategory)
	adminGroup.DELETE("/service-categories/:id", h.DeleteCategory)
	adminGroup.POST("/services", h.CreateService)
	adminGroup.PUT("/services/:id", h.UpdateService)
	adminGroup.DELETE("/services/:id", h.DeleteService)
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	cat, err := h.svc.CreateCategory(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	cat, err := h.svc.UpdateCategory(c.Request().Context(), id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	if err := h.svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateService(c echo.Context) error {
	var in ServiceInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	svc, err := h.svc.CreateService(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, svc)
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	svc, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) ListServices(c echo.Context) error {
	var categoryID *uuid.UUID
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.New(apperr.ValidationFailed, "category_id inválido")
		}
		categoryID = &id
	}
	services, err := h.svc.ListServices(c.Request().Context(), categoryID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, services)
}

func (h *Handler) UpdateService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var in ServiceInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	svc, err := h.svc.UpdateService(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) DeleteService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	if err := h.svc.DeleteService(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
