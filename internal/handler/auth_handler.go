package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"userauth/internal/auth"
	"userauth/internal/errors"
	"userauth/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	limiter     auth.LoginLimiterInterface
	cookieName  string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, limiter auth.LoginLimiterInterface, cookieName string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		limiter:     limiter,
		cookieName:  cookieName,
	}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ResetTokenRequest represents a password reset token request.
type ResetTokenRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// UpdatePasswordRequest represents a password reset completion.
// Email is only echoed back; the reset token identifies the user.
type UpdatePasswordRequest struct {
	Email       string `json:"email" form:"email"`
	ResetToken  string `json:"reset_token" form:"reset_token" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required"`
}

// EmailMessageResponse echoes the email an operation applied to.
type EmailMessageResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ProfileResponse is returned by the profile endpoint.
type ProfileResponse struct {
	Email string `json:"email"`
}

// ResetTokenResponse carries a freshly issued reset token.
type ResetTokenResponse struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

// Home godoc
// @Summary Welcome message
// @Tags meta
// @Produce json
// @Success 200 {object} errors.MessageResponse
// @Router / [get]
func (h *AuthHandler) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, errors.MessageResponse{Message: "Bienvenue"})
}

// Register godoc
// @Summary Register a new user
// @Tags users
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 200 {object} EmailMessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.authService.Register(c.Request().Context(), req.Email, req.Password); err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, EmailMessageResponse{
		Email:   req.Email,
		Message: "user created",
	})
}

// Login godoc
// @Summary Log in and start a session
// @Tags sessions
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} EmailMessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /sessions [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if !h.limiter.Allow(ctx, req.Email) {
		return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
			Error: "too many failed login attempts",
			Code:  "LOGIN_RATE_LIMITED",
		})
	}

	if !h.authService.ValidLogin(ctx, req.Email, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid email or password",
			Code:  "INVALID_CREDENTIALS",
		})
	}
	h.limiter.Reset(ctx, req.Email)

	sessionID, err := h.authService.CreateSession(ctx, req.Email)
	if err != nil {
		return respondError(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, EmailMessageResponse{
		Email:   req.Email,
		Message: "logged in",
	})
}

// Logout godoc
// @Summary Log out the current session
// @Tags sessions
// @Success 302
// @Failure 403 {object} errors.ErrorResponse
// @Router /sessions [delete]
func (h *AuthHandler) Logout(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	if err := h.authService.DestroySession(c.Request().Context(), user.ID); err != nil {
		return respondError(err)
	}

	c.SetCookie(&http.Cookie{
		Name:   h.cookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.Redirect(http.StatusFound, "/")
}

// Profile godoc
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	return c.JSON(http.StatusOK, ProfileResponse{Email: user.Email})
}

// GetResetPasswordToken godoc
// @Summary Request a password reset token
// @Tags password
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body ResetTokenRequest true "Account email"
// @Success 200 {object} ResetTokenResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /reset_password [post]
func (h *AuthHandler) GetResetPasswordToken(c echo.Context) error {
	var req ResetTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	resetToken, err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, ResetTokenResponse{
		Email:      req.Email,
		ResetToken: resetToken,
	})
}

// UpdatePassword godoc
// @Summary Complete a password reset
// @Tags password
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body UpdatePasswordRequest true "Reset token and new password"
// @Success 200 {object} EmailMessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /reset_password [put]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	if err := h.authService.CompletePasswordReset(c.Request().Context(), req.ResetToken, req.NewPassword); err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, EmailMessageResponse{
		Email:   req.Email,
		Message: "Password updated",
	})
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_FAILED",
		})
	}
	return nil
}

// respondError converts a service error into an echo error with the standard envelope.
func respondError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
