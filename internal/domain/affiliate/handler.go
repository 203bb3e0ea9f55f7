package affiliate

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

// RegisterRoutes wires the click endpoints on the public group (clicks
// arrive before any session exists) and the reporting endpoints on the
// authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/affiliates/track", h.Track)
	public.GET("/affiliates/check/:visitor", h.Check)

	api.POST("/affiliates/link-user", h.LinkUser)

	vendedorGroup := api.Group("", auth.RequireRole(auth.RoleVendedor))
	vendedorGroup.GET("/affiliates/my-referrals", h.MyReferrals)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/affiliates/all", h.All)
	adminGroup.POST("/affiliates/convert", h.Convert)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	return id, nil
}

func (h *Handler) Track(c echo.Context) error {
	var in TrackInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	if in.UserAgent == "" {
		in.UserAgent = c.Request().UserAgent()
	}
	ref, err := h.svc.Track(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"referral_id": ref.ID})
}

func (h *Handler) Check(c echo.Context) error {
	ref, err := h.svc.Check(c.Request().Context(), c.Param("visitor"))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return c.JSON(http.StatusOK, echo.Map{"referred": false})
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"referred": true, "referral_id": ref.ID})
}

// LinkUser binds the caller's session user to the visitor's anonymous
// referral. Registration already links when a visitor id is supplied; this
// endpoint covers clients that only obtain the identifier afterwards.
func (h *Handler) LinkUser(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req struct {
		VisitorID string `json:"visitor_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	if req.VisitorID == "" {
		return apperr.New(apperr.ValidationFailed, "informe o identificador do visitante")
	}
	if err := h.svc.LinkUser(c.Request().Context(), userID, req.VisitorID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MyReferrals(c echo.Context) error {
	affiliateID, err := callerID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.MyReferrals(c.Request().Context(), affiliateID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) All(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.All(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Convert(c echo.Context) error {
	var req struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	if req.UserID == uuid.Nil {
		return apperr.New(apperr.ValidationFailed, "informe o usuário")
	}
	if err := h.svc.Convert(c.Request().Context(), req.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
