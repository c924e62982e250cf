package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"userauth/internal/config"
	"userauth/internal/handler"
	"userauth/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public routes
	e.GET("/", authHandler.Home)
	e.POST("/users", authHandler.Register)
	e.POST("/sessions", authHandler.Login)
	e.POST("/reset_password", authHandler.GetResetPasswordToken)
	e.PUT("/reset_password", authHandler.UpdatePassword)

	// Session routes (require a valid session cookie)
	requireSession := handler.RequireSession(authService, cfg.SessionCookieName)
	e.DELETE("/sessions", authHandler.Logout, requireSession)
	e.GET("/profile", authHandler.Profile, requireSession)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator used by handlers.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
