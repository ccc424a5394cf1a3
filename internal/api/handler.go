package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/service"
	"github.com/jwsummers/techmetrix/pkg/logger"
)

type Handler struct {
	teams  *service.TeamService
	users  *service.UserService
	orders *service.OrderService
	auth   *service.AuthService

	healthChecker HealthChecker

	tokenSecret string
	logger      *zap.Logger
}

func NewHandler(logger *zap.Logger, tokenSecret string) *Handler {
	return &Handler{
		logger:      logger,
		tokenSecret: tokenSecret,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithTeamService(teams *service.TeamService) *Handler {
	h.teams = teams
	return h
}

func (h *Handler) WithUserService(users *service.UserService) *Handler {
	h.users = users
	return h
}

func (h *Handler) WithOrderService(orders *service.OrderService) *Handler {
	h.orders = orders
	return h
}

func (h *Handler) WithAuthService(auth *service.AuthService) *Handler {
	h.auth = auth
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.healthChecker.HealthCheck())

	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)

	secured := e.Group("", AuthMiddleware(h.tokenSecret))

	secured.GET("/teams", h.ListTeams)
	secured.DELETE("/teams/:id", h.DeleteTeam)
	secured.GET("/teams/:id/metrics", h.TeamMetrics)
	secured.POST("/teams/:id/addUser", h.AddUser)
	secured.POST("/teams/:id/removeUser", h.RemoveUser)

	secured.GET("/users", h.SearchUsers)

	secured.GET("/repair-orders", h.ListOrders)
	secured.GET("/repair-orders/metrics", h.UserMetrics)
	secured.POST("/repair-orders", h.CreateOrder)
	secured.PUT("/repair-orders/:id", h.UpdateOrder)
	secured.DELETE("/repair-orders/:id", h.DeleteOrder)

	adminSecured := e.Group("", AuthMiddleware(h.tokenSecret), RequireRole(model.RoleAdmin))

	adminSecured.POST("/teams", h.CreateTeam)
}

func (h *Handler) Register(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Name     string `json:"name" validate:"required"`
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleUser
	}

	l.Info("registering user", zap.String("username", req.Username))

	user, err := h.auth.Register(e.Request().Context(), req.Name, req.Username, req.Password, role)
	if err != nil {
		l.Error("failed to register user", zap.String("username", req.Username), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, user)
}

func (h *Handler) Login(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	token, identity, err := h.auth.Login(e.Request().Context(), req.Username, req.Password)
	if err != nil {
		l.Warn("login failed", zap.String("username", req.Username), zap.Any("error", err))
		return h.transportError(e, err)
	}

	response := struct {
		Token    string          `json:"token"`
		Identity *model.Identity `json:"identity"`
	}{Token: token, Identity: identity}

	return e.JSON(http.StatusOK, response)
}

func (h *Handler) ListTeams(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teams, err := h.teams.ListTeams(e.Request().Context(), CallerFromContext(e))
	if err != nil {
		l.Error("failed to list teams", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) CreateTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Name string `json:"name" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating team", zap.String("team_name", req.Name))

	team, err := h.teams.CreateTeam(e.Request().Context(), CallerFromContext(e), req.Name)
	if err != nil {
		l.Error("failed to create team", zap.String("team_name", req.Name), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) DeleteTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("id")

	l.Info("deleting team", zap.String("team_id", teamID))

	if err := h.teams.DeleteTeam(e.Request().Context(), CallerFromContext(e), teamID); err != nil {
		l.Error("failed to delete team", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, echo.Map{"message": "Team deleted successfully"})
}

func (h *Handler) TeamMetrics(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("id")

	metrics, err := h.teams.TeamMetrics(e.Request().Context(), CallerFromContext(e), teamID, time.Now())
	if err != nil {
		l.Error("failed to compute team metrics", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, metrics)
}

func (h *Handler) AddUser(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("id")

	var req struct {
		UserID string `json:"userId" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("adding user to team",
		zap.String("team_id", teamID),
		zap.String("user_id", req.UserID))

	team, err := h.teams.AddUser(e.Request().Context(), CallerFromContext(e), teamID, req.UserID)
	if err != nil {
		l.Error("failed to add user to team",
			zap.String("team_id", teamID),
			zap.String("user_id", req.UserID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) RemoveUser(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("id")

	var req struct {
		UserID string `json:"userId" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("removing user from team",
		zap.String("team_id", teamID),
		zap.String("user_id", req.UserID))

	team, err := h.teams.RemoveUser(e.Request().Context(), CallerFromContext(e), teamID, req.UserID)
	if err != nil {
		l.Error("failed to remove user from team",
			zap.String("team_id", teamID),
			zap.String("user_id", req.UserID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) SearchUsers(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	query := e.QueryParam("search")

	users, err := h.users.SearchUsers(e.Request().Context(), CallerFromContext(e), query)
	if err != nil {
		l.Error("failed to search users", zap.String("query", query), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, users)
}

func (h *Handler) ListOrders(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	orders, err := h.orders.ListOrders(e.Request().Context(), CallerFromContext(e))
	if err != nil {
		l.Error("failed to list repair orders", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, orders)
}

func (h *Handler) UserMetrics(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	metrics, err := h.orders.UserMetrics(e.Request().Context(), CallerFromContext(e), time.Now())
	if err != nil {
		l.Error("failed to compute metrics", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, metrics)
}

func (h *Handler) CreateOrder(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	req := &service.RepairOrderInput{}

	if err := h.decodeRequest(e, req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	order, err := h.orders.CreateOrder(e.Request().Context(), CallerFromContext(e), req)
	if err != nil {
		l.Error("failed to create repair order", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrder(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	orderID := e.Param("id")

	patch := &model.RepairOrderPatch{}

	if err := h.decodeRequest(e, patch); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	order, err := h.orders.UpdateOrder(e.Request().Context(), CallerFromContext(e), orderID, patch)
	if err != nil {
		l.Error("failed to update repair order", zap.String("order_id", orderID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, order)
}

func (h *Handler) DeleteOrder(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	orderID := e.Param("id")

	l.Info("deleting repair order", zap.String("order_id", orderID))

	if err := h.orders.DeleteOrder(e.Request().Context(), CallerFromContext(e), orderID); err != nil {
		l.Error("failed to delete repair order", zap.String("order_id", orderID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, echo.Map{"message": "Repair order deleted"})
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

// errorResponse is the single error envelope every failure path emits,
// middleware rejections included.
type errorResponse struct {
	Error *service.Error `json:"error"`
}

// transportError maps service error codes onto HTTP statuses. Internal
// store errors are never echoed to the client.
func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := errorResponse{Error: err}

	switch err.Code {
	case service.ErrorCodeUnauthenticated, service.ErrorCodeInvalidCredentials:
		return e.JSON(http.StatusUnauthorized, response)
	case service.ErrorCodeForbidden, service.ErrorCodeDemoRestricted:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeInvalidBody, service.ErrorCodeUserExists:
		return e.JSON(http.StatusBadRequest, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
