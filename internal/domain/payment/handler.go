package payment

import (
	"net/http"
	"strconv"

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

// RegisterRoutes wires the webhook on the public group (the provider does
// not authenticate) and the checkout endpoints on the authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/webhooks/mercadopago", h.Webhook)

	clientGroup := api.Group("", auth.RequireRole(auth.RoleClient))
	clientGroup.POST("/create-subscription", h.CreateSubscription)
	clientGroup.POST("/dependents/:id/create-payment", h.CreateDependentPayment)

	profGroup := api.Group("", auth.RequireRole(auth.RoleProfessional))
	profGroup.POST("/professional/create-payment", h.CreateProfessionalPayment)

	api.GET("/payments/mine", h.Mine)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/payments", h.All)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	return id, nil
}

func (h *Handler) CreateSubscription(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	intent, err := h.svc.CreateSubscription(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, intent)
}

func (h *Handler) CreateDependentPayment(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	dependentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "identificador do dependente inválido")
	}
	ctx := c.Request().Context()
	intent, err := h.svc.CreateDependentPayment(ctx, userID, auth.IsAdmin(ctx), dependentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, intent)
}

func (h *Handler) CreateProfessionalPayment(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req struct {
		Amount money.Cents `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	intent, err := h.svc.CreateProfessionalPayment(c.Request().Context(), userID, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, intent)
}

// Webhook accepts both the JSON body and the query-string form Mercado Pago
// uses for notifications.
func (h *Handler) Webhook(c echo.Context) error {
	var body struct {
		Type string `json:"type"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	_ = c.Bind(&body)

	n := Notification{Type: body.Type}
	rawID := body.Data.ID
	if n.Type == "" {
		n.Type = c.QueryParam("type")
	}
	if rawID == "" {
		rawID = c.QueryParam("data.id")
	}
	if rawID != "" {
		n.PaymentID, _ = strconv.ParseInt(rawID, 10, 64)
	}

	if err := h.svc.HandleWebhook(c.Request().Context(), n); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) Mine(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListMine(c.Request().Context(), userID)
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
