package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// Accounts is the user service consumed by AuthHandler.
type Accounts interface {
	Register(ctx context.Context, eNumber int, password, role string) (model.User, error)
	Authenticate(ctx context.Context, eNumber int, password string) (model.User, utils.AccessToken, error)
	Get(ctx context.Context, id uint64) (model.User, error)
}

// AuthHandler serves staff registration, login and identity endpoints.
type AuthHandler struct {
	Users Accounts
	Log   *slog.Logger
}

func NewAuthHandler(users Accounts, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Log: log}
}

// ----- DTOs -----

type createUserReq struct {
	ENumber  int    `json:"e_number"`
	Password string `json:"password"`
	Role     string `json:"role"` // EMPLOYEE | ADMIN
}
type loginReq struct {
	ENumber  int    `json:"e_number"`
	Password string `json:"password"`
}

type userResp struct {
	ID        uint64    `json:"id"`
	ENumber   int       `json:"e_number"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
type tokenResp struct {
	User        userResp  `json:"user"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expires     time.Time `json:"expires"`
}

func toUserResp(u model.User) userResp {
	return userResp{ID: u.ID, ENumber: u.ENumber, Role: u.Role, IsActive: u.IsActive, CreatedAt: u.CreatedAt}
}

// CreateUser handles POST /v1/users (ADMIN).
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Register(ctx, req.ENumber, req.Password, req.Role)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login handles POST /v1/users/login and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ENumber == 0 || req.Password == "" {
		return badRequest(c, "e_number/password required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, tok, err := h.Users.Authenticate(ctx, req.ENumber, req.Password)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, tokenResp{
		User:        toUserResp(u),
		AccessToken: tok.Token,
		TokenType:   "bearer",
		Expires:     tok.Exp,
	})
}

// Info handles GET /v1/users/info for the authenticated user.
func (h *AuthHandler) Info(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.Users.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}
