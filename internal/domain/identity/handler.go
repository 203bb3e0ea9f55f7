package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/internal/platform/imagehost"
	"github.com/convenio/convenio/pkg/pagination"
)

type Handler struct {
	svc          *Service
	signer       *auth.TokenSigner
	images       imagehost.Client
	secureCookie bool
}

func NewHandler(svc *Service, signer *auth.TokenSigner, images imagehost.Client, secureCookie bool) *Handler {
	return &Handler{svc: svc, signer: signer, images: images, secureCookie: secureCookie}
}

// RegisterRoutes wires the public auth endpoints and the protected user
// endpoints. public carries no auth middleware; api does.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/select-role", h.SelectRole)
	public.POST("/auth/logout", h.Logout)

	api.POST("/auth/switch-role", h.SwitchRole)
	api.GET("/auth/me", h.Me)

	lookupGroup := api.Group("", auth.RequireRole(auth.RoleProfessional))
	lookupGroup.GET("/clients/lookup", h.LookupClient)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/users", h.List)
	adminGroup.POST("/users", h.AdminCreate)
	adminGroup.DELETE("/users/:id", h.Delete)
	adminGroup.PUT("/users/:id/activate", h.ActivateClient)
	adminGroup.PUT("/users/:id/roles", h.AssignRoles)

	api.GET("/users/:id", h.Get)
	api.PUT("/users/:id", h.Update)
	api.PUT("/users/:id/password", h.ChangePassword)
	api.POST("/users/:id/photo", h.UploadPhoto)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	CPF      string `json:"cpf"`
	Password string `json:"password"`
}

// Login verifies credentials and returns the user with its role set. No
// token is minted here; the caller picks a role via select-role.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	u, err := h.svc.Authenticate(c.Request().Context(), req.CPF, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type selectRoleRequest struct {
	CPF      string `json:"cpf"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	Token       string `json:"token"`
	CurrentRole string `json:"current_role"`
	User        *User  `json:"user"`
}

// SelectRole re-verifies credentials, checks the requested role is in the
// user's role set, and mints the session token (also set as an HTTP-only
// cookie).
func (h *Handler) SelectRole(c echo.Context) error {
	var req selectRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	u, err := h.svc.Authenticate(c.Request().Context(), req.CPF, req.Password)
	if err != nil {
		return err
	}
	if !u.HasRole(req.Role) {
		return apperr.New(apperr.Forbidden, "perfil não atribuído ao usuário")
	}

	token, err := h.signer.Sign(u.ID.String(), u.Roles, req.Role)
	if err != nil {
		return err
	}
	auth.SetTokenCookie(c, token, h.secureCookie)
	return c.JSON(http.StatusOK, sessionResponse{Token: token, CurrentRole: req.Role, User: u})
}

type switchRoleRequest struct {
	Role string `json:"role"`
}

// SwitchRole replaces the session token with one bound to another role from
// the same role set.
func (h *Handler) SwitchRole(c echo.Context) error {
	var req switchRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	ctx := c.Request().Context()

	found := false
	for _, r := range auth.RolesFromContext(ctx) {
		if r == req.Role {
			found = true
			break
		}
	}
	if !found {
		return apperr.New(apperr.Forbidden, "perfil não atribuído ao usuário")
	}

	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	u, err := h.svc.Get(ctx, userID)
	if err != nil {
		return err
	}

	token, err := h.signer.Sign(u.ID.String(), u.Roles, req.Role)
	if err != nil {
		return err
	}
	auth.SetTokenCookie(c, token, h.secureCookie)
	return c.JSON(http.StatusOK, sessionResponse{Token: token, CurrentRole: req.Role, User: u})
}

func (h *Handler) Logout(c echo.Context) error {
	auth.ClearTokenCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	u, err := h.svc.Get(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	if !auth.IsAdmin(ctx) && auth.UserIDFromContext(ctx) != id.String() {
		return apperr.New(apperr.Forbidden, "acesso restrito ao próprio usuário")
	}
	u, err := h.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), c.QueryParam("role"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

// LookupClient resolves a client by CPF. Used by professionals at the front
// desk before booking.
func (h *Handler) LookupClient(c echo.Context) error {
	cpf := c.QueryParam("cpf")
	if cpf == "" {
		return apperr.New(apperr.ValidationFailed, "parâmetro cpf é obrigatório")
	}
	u, err := h.svc.GetByCPF(c.Request().Context(), cpf)
	if err != nil {
		return err
	}
	if !u.HasRole(auth.RoleClient) {
		return apperr.New(apperr.NotFound, "cliente não encontrado")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) AdminCreate(c echo.Context) error {
	var in AdminCreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	u, err := h.svc.AdminCreate(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	if !auth.IsAdmin(ctx) && auth.UserIDFromContext(ctx) != id.String() {
		return apperr.New(apperr.Forbidden, "acesso restrito ao próprio usuário")
	}
	var in UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	u, err := h.svc.UpdateProfile(ctx, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	if auth.UserIDFromContext(ctx) != id.String() {
		return apperr.New(apperr.Forbidden, "somente o próprio usuário pode trocar a senha")
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	if err := h.svc.ChangePassword(ctx, id, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type assignRolesRequest struct {
	Roles []string `json:"roles"`
}

func (h *Handler) AssignRoles(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var req assignRolesRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	if err := h.svc.AssignRoles(c.Request().Context(), id, req.Roles); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	callerID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.New(apperr.Unauthenticated, "sessão inválida")
	}
	if err := h.svc.Delete(ctx, callerID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type activateRequest struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) ActivateClient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	var req activateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	u, err := h.svc.ActivateClient(c.Request().Context(), id, req.ExpiresAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type uploadPhotoRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// UploadPhoto sends the image to the external host and stores the returned
// URL on the professional's record.
func (h *Handler) UploadPhoto(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.ValidationFailed, "id inválido")
	}
	ctx := c.Request().Context()
	if !auth.IsAdmin(ctx) && auth.UserIDFromContext(ctx) != id.String() {
		return apperr.New(apperr.Forbidden, "acesso restrito ao próprio usuário")
	}
	var req uploadPhotoRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "corpo da requisição inválido", err)
	}
	if req.ImageBase64 == "" {
		return apperr.New(apperr.ValidationFailed, "imagem é obrigatória")
	}

	url, err := h.images.Upload(ctx, req.ImageBase64)
	if err != nil {
		return err
	}
	if err := h.svc.users.UpdatePhotoURL(ctx, id, url); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"photo_url": url})
}
