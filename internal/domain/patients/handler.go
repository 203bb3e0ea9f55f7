package patients

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clientGroup := api.Group("", auth.RequireRole(auth.RoleClient))
	clientGroup.POST("/dependents", h.CreateDependent)
	clientGroup.GET("/dependents", h.ListDependents)
	clientGroup.PUT("/dependents/:id", h.UpdateDependent)
	clientGroup.DELETE("/dependents/:id", h.DeleteDependent)

	lookupGroup := api.Group("", auth.RequireRole(auth.RoleProfessional))
	lookupGroup.GET("/dependents/lookup", h.LookupDependent)

	profGroup := api.Group("", auth.RequireRole(auth.RoleProfessional))
	profGroup.POST("/private-patients", h.CreatePrivatePatient)
	profGroup.GET("/private-patients", h.ListPrivatePatients)
	profGroup.GET("/private-patients/:id", h.GetPrivatePatient)
	profGroup.PUT("/private-patients/:id", h.UpdatePrivatePatient)
	profGroup.DELETE("/private-patients/:id", h.DeletePrivatePatient)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	return id, nil
}

func (h *Handler) CreateDependent(c echo.Context) error {
	clientID, err := callerID(c)
	if err != nil {
		return err
	}
	var in DependentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	d, err := h.svc.CreateDependent(c.Request().Context(), clientID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDependents(c echo.Context) error {
	clientID, err := callerID(c)
	if err != nil {
		return err
	}
	deps, err := h.svc.ListDependents(c.Request().Context(), clientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deps)
}

func (h *Handler) LookupDependent(c echo.Context) error {
	cpf := c.QueryParam("cpf")
	if cpf == "" {
		return apperr.New(apperr.ValidationFailed, "parâmetro cpf é obrigatório")
	}
	d, err := h.svc.LookupDependent(c.Request().Context(), cpf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDependent(c echo.Context) error {
	clientID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var in DependentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()
	d, err := h.svc.UpdateDependent(ctx, clientID, auth.IsAdmin(ctx), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDependent(c echo.Context) error {
	clientID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteDependent(ctx, clientID, auth.IsAdmin(ctx), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreatePrivatePatient(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var in PrivatePatientInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	p, err := h.svc.CreatePrivatePatient(c.Request().Context(), professionalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrivatePatient(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	p, err := h.svc.GetPrivatePatient(c.Request().Context(), professionalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrivatePatients(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPrivatePatients(c.Request().Context(), professionalID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePrivatePatient(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var in PrivatePatientInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	p, err := h.svc.UpdatePrivatePatient(c.Request().Context(), professionalID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePrivatePatient(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	if err := h.svc.DeletePrivatePatient(c.Request().Context(), professionalID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
