package medrecord

import (
	"net/http"

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
	g := api.Group("", auth.RequireRole(auth.RoleProfessional))
	g.POST("/medical-records", h.CreateRecord)
	g.GET("/medical-records/:id", h.GetRecord)
	g.GET("/private-patients/:patientID/medical-records", h.ListRecords)
	g.PUT("/medical-records/:id", h.UpdateRecord)
	g.DELETE("/medical-records/:id", h.DeleteRecord)

	g.POST("/medical-documents", h.GenerateDocument)
	g.GET("/medical-documents/:id", h.GetDocument)
	g.GET("/private-patients/:patientID/medical-documents", h.ListDocuments)
	g.DELETE("/medical-documents/:id", h.DeleteDocument)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.ValidationFailed, "id inválido")
	}
	return id, nil
}

func (h *Handler) CreateRecord(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	rec, err := h.svc.CreateRecord(c.Request().Context(), professionalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), professionalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListRecords(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patientID")
	if err != nil {
		return err
	}
	items, err := h.svc.ListRecords(c.Request().Context(), professionalID, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	rec, err := h.svc.UpdateRecord(c.Request().Context(), professionalID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRecord(c.Request().Context(), professionalID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GenerateDocument(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	var in DocumentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	d, err := h.svc.GenerateDocument(c.Request().Context(), professionalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDocument(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDocument(c.Request().Context(), professionalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patientID")
	if err != nil {
		return err
	}
	items, err := h.svc.ListDocuments(c.Request().Context(), professionalID, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteDocument(c echo.Context) error {
	professionalID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDocument(c.Request().Context(), professionalID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
