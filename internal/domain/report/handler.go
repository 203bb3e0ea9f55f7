package report

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
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/reports/revenue", h.ClinicRevenue)
	adminGroup.GET("/reports/clients-by-city", h.ClientsByCity)
	adminGroup.GET("/reports/professionals-by-city", h.ProfessionalsByCity)

	profGroup := api.Group("", auth.RequireRole(auth.RoleProfessional))
	profGroup.GET("/reports/professional-revenue", h.ProfessionalRevenue)
	profGroup.GET("/reports/professional-detailed", h.ProfessionalDetail)

	// Admins and professionals both reach this one; the service scopes it.
	api.GET("/reports/cancelled-consultations", h.Cancellations,
		auth.RequireRole(auth.RoleProfessional))
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	return id, nil
}

// rangeFrom reads the start/end query parameters as YYYY-MM-DD dates.
func rangeFrom(c echo.Context) (Range, error) {
	var r Range
	var err error
	if raw := c.QueryParam("start"); raw != "" {
		if r.Start, err = time.Parse("2006-01-02", raw); err != nil {
			return r, apperr.New(apperr.ValidationFailed, "data inicial inválida, use AAAA-MM-DD")
		}
	}
	if raw := c.QueryParam("end"); raw != "" {
		if r.End, err = time.Parse("2006-01-02", raw); err != nil {
			return r, apperr.New(apperr.ValidationFailed, "data final inválida, use AAAA-MM-DD")
		}
	}
	return r, nil
}

func (h *Handler) ClinicRevenue(c echo.Context) error {
	r, err := rangeFrom(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ClinicRevenue(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// professionalTarget resolves which professional the report is about: the
// caller, unless an admin names another via professional_id.
func professionalTarget(c echo.Context) (uuid.UUID, error) {
	if raw := c.QueryParam("professional_id"); raw != "" && auth.IsAdmin(c.Request().Context()) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperr.New(apperr.ValidationFailed, "identificador do profissional inválido")
		}
		return id, nil
	}
	return callerID(c)
}

func (h *Handler) ProfessionalRevenue(c echo.Context) error {
	target, err := professionalTarget(c)
	if err != nil {
		return err
	}
	r, err := rangeFrom(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ProfessionalRevenue(c.Request().Context(), target, r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ProfessionalDetail(c echo.Context) error {
	target, err := professionalTarget(c)
	if err != nil {
		return err
	}
	r, err := rangeFrom(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ProfessionalDetail(c.Request().Context(), target, r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Cancellations(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	r, err := rangeFrom(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Cancellations(c.Request().Context(), id, r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ClientsByCity(c echo.Context) error {
	out, err := h.svc.ClientsByCity(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ProfessionalsByCity(c echo.Context) error {
	out, err := h.svc.ProfessionalsByCity(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
