package appointment

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clientGroup := api.Group("", auth.RequireRole(auth.RoleClient))
	clientGroup.GET("/appointments/mine", h.ListForClient)

	profGroup := api.Group("", auth.RequireRole(auth.RoleProfessional))
	profGroup.POST("/appointments", h.Create)
	profGroup.GET("/appointments", h.List)
	profGroup.GET("/appointments/:id", h.Get)
	profGroup.PUT("/appointments/:id", h.Update)
	profGroup.PUT("/appointments/:id/status", h.UpdateStatus)
	profGroup.DELETE("/appointments/:id", h.Delete)

	profGroup.POST("/attendance-locations", h.CreateLocation)
	profGroup.GET("/attendance-locations", h.ListLocations)
	profGroup.PUT("/attendance-locations/:id", h.UpdateLocation)
	profGroup.PUT("/attendance-locations/:id/default", h.SetDefaultLocation)
	profGroup.DELETE("/attendance-locations/:id", h.DeleteLocation)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/admin/grant-scheduling-access", h.GrantAccess)
	adminGroup.POST("/admin/revoke-scheduling-access", h.RevokeAccess)
	adminGroup.GET("/admin/scheduling-access/:professionalID", h.GetAccess)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()
	a, err := h.svc.Create(ctx, professionalID, auth.IsAdmin(ctx), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, caller, auth.IsAdmin(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.New(apperr.ValidationFailed, "parâmetro from inválido, use AAAA-MM-DD")
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.New(apperr.ValidationFailed, "parâmetro to inválido, use AAAA-MM-DD")
		}
		to = &t
	}
	items, err := h.svc.ListMine(c.Request().Context(), professionalID, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListForClient(c echo.Context) error {
	clientID, err := callerID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListForClient(c.Request().Context(), clientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()
	a, err := h.svc.Update(ctx, caller, auth.IsAdmin(ctx), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()
	a, err := h.svc.UpdateStatus(ctx, caller, auth.IsAdmin(ctx), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, caller, auth.IsAdmin(ctx), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateLocation(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var in LocationInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	l, err := h.svc.CreateLocation(c.Request().Context(), professionalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) ListLocations(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListLocations(c.Request().Context(), professionalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateLocation(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var in LocationInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	l, err := h.svc.UpdateLocation(c.Request().Context(), professionalID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) SetDefaultLocation(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	l, err := h.svc.SetDefaultLocation(c.Request().Context(), professionalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLocation(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	if err := h.svc.DeleteLocation(c.Request().Context(), professionalID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GrantAccess(c echo.Context) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	var req struct {
		ProfessionalID uuid.UUID `json:"professional_id"`
		ExpiresAt      time.Time `json:"expires_at"`
		Reason         *string   `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	g, err := h.svc.GrantAccess(c.Request().Context(), adminID, req.ProfessionalID, req.ExpiresAt, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) RevokeAccess(c echo.Context) error {
	var req struct {
		ProfessionalID uuid.UUID `json:"professional_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	if req.ProfessionalID == uuid.Nil {
		return apperr.New(apperr.ValidationFailed, "informe o profissional")
	}
	if err := h.svc.RevokeAccess(c.Request().Context(), req.ProfessionalID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetAccess(c echo.Context) error {
	professionalID, err := uuid.Parse(c.Param("professionalID"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	g, err := h.svc.GetAccess(c.Request().Context(), professionalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": g,
		"active": g.ActiveAt(time.Now()),
	})
}
