package consultation

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/pkg/money"
	"github.com/convenio/convenio/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/consultations", h.List)
	api.GET("/consultations/:id", h.Get)

	profGroup := api.Group("", auth.RequireRole(auth.RoleProfessional))
	profGroup.POST("/consultations", h.Create)
	profGroup.POST("/consultations/recurring", h.CreateRecurring)
	profGroup.PUT("/consultations/:id/status", h.UpdateStatus)
	profGroup.PUT("/consultations/:id/reschedule", h.Reschedule)
	profGroup.PUT("/consultations/:id/notes", h.UpdateNotes)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.DELETE("/consultations/:id", h.Delete)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	return id, nil
}

type createRequest struct {
	ClientID          *uuid.UUID  `json:"client_id"`
	DependentID       *uuid.UUID  `json:"dependent_id"`
	PrivatePatientID  *uuid.UUID  `json:"private_patient_id"`
	ServiceID         uuid.UUID   `json:"service_id"`
	LocationID        *uuid.UUID  `json:"location_id"`
	Value             money.Cents `json:"value"`
	ScheduledAt       time.Time   `json:"scheduled_at"`
	Status            string      `json:"status"`
	Notes             *string     `json:"notes"`
	CreateAppointment bool        `json:"create_appointment"`
}

func (r createRequest) input() CreateInput {
	return CreateInput{
		Patient: PatientRef{
			ClientID:         r.ClientID,
			DependentID:      r.DependentID,
			PrivatePatientID: r.PrivatePatientID,
		},
		ServiceID:         r.ServiceID,
		LocationID:        r.LocationID,
		Value:             r.Value,
		ScheduledAt:       r.ScheduledAt,
		Status:            r.Status,
		Notes:             r.Notes,
		CreateAppointment: r.CreateAppointment,
	}
}

func (h *Handler) Create(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	cons, err := h.svc.Create(c.Request().Context(), professionalID, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cons)
}

func (h *Handler) CreateRecurring(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var req struct {
		createRequest
		Recurrence Recurrence `json:"recurrence"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	created, err := h.svc.CreateRecurring(c.Request().Context(), professionalID, req.input(), req.Recurrence)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]int{"created": created})
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
	cons, err := h.svc.Get(ctx, caller, auth.CurrentRoleFromContext(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	var f ListFilter
	f.Status = c.QueryParam("status")
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.New(apperr.ValidationFailed, "parâmetro from inválido")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.New(apperr.ValidationFailed, "parâmetro to inválido")
		}
		f.To = &t
	}
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(ctx, caller, auth.CurrentRoleFromContext(ctx), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
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
		Status string  `json:"status"`
		Reason *string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()
	cons, err := h.svc.UpdateStatus(ctx, caller, auth.IsAdmin(ctx), id, req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) Reschedule(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var req struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()
	cons, err := h.svc.Reschedule(ctx, caller, auth.IsAdmin(ctx), id, req.ScheduledAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) UpdateNotes(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var req struct {
		Notes *string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()
	cons, err := h.svc.UpdateNotes(ctx, caller, auth.IsAdmin(ctx), id, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
