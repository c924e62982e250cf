package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"userauth/internal/model"
	"userauth/internal/service"
)

const testCookie = "session_id"

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) ValidLogin(ctx context.Context, email, password string) bool {
	args := m.Called(ctx, email, password)
	return args.Bool(0)
}

func (m *MockAuthService) CreateSession(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) GetUserBySession(ctx context.Context, sessionID string) (*model.User, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) DestroySession(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	args := m.Called(ctx, resetToken, newPassword)
	return args.Error(0)
}

// MockLoginLimiter is a mock implementation of auth.LoginLimiterInterface.
type MockLoginLimiter struct {
	mock.Mock
}

func (m *MockLoginLimiter) Allow(ctx context.Context, email string) bool {
	args := m.Called(ctx, email)
	return args.Bool(0)
}

func (m *MockLoginLimiter) Reset(ctx context.Context, email string) {
	m.Called(ctx, email)
}

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestServer(svc *MockAuthService, limiter *MockLoginLimiter) *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	h := NewAuthHandler(svc, limiter, testCookie)
	requireSession := RequireSession(svc, testCookie)

	e.GET("/", h.Home)
	e.POST("/users", h.Register)
	e.POST("/sessions", h.Login)
	e.DELETE("/sessions", h.Logout, requireSession)
	e.GET("/profile", h.Profile, requireSession)
	e.POST("/reset_password", h.GetResetPasswordToken)
	e.PUT("/reset_password", h.UpdatePassword)
	return e
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandler_Home(t *testing.T) {
	e := newTestServer(new(MockAuthService), new(MockLoginLimiter))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Bienvenue"}`, rec.Body.String())
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		setupMock  func(*MockAuthService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "user created",
			form: url.Values{"email": {"a@x.com"}, "password": {"pw1"}},
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "a@x.com", "pw1").Return(&model.User{ID: 1, Email: "a@x.com"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"email":"a@x.com","message":"user created"}`,
		},
		{
			name: "email already registered",
			form: url.Values{"email": {"a@x.com"}, "password": {"pw1"}},
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "a@x.com", "pw1").Return(nil, service.ErrAlreadyRegistered)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"email already registered","code":"EMAIL_ALREADY_REGISTERED"}`,
		},
		{
			name:       "missing password",
			form:       url.Values{"email": {"a@x.com"}},
			setupMock:  func(m *MockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure",
			form: url.Values{"email": {"a@x.com"}, "password": {"pw1"}},
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "a@x.com", "pw1").Return(nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			tt.setupMock(svc)
			e := newTestServer(svc, new(MockLoginLimiter))

			rec := serve(e, formRequest(http.MethodPost, "/users", tt.form))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("valid credentials set the session cookie", func(t *testing.T) {
		svc := new(MockAuthService)
		limiter := new(MockLoginLimiter)
		limiter.On("Allow", mock.Anything, "a@x.com").Return(true)
		limiter.On("Reset", mock.Anything, "a@x.com").Return()
		svc.On("ValidLogin", mock.Anything, "a@x.com", "pw1").Return(true)
		svc.On("CreateSession", mock.Anything, "a@x.com").Return("sess-1", nil)

		rec := serve(newTestServer(svc, limiter), formRequest(http.MethodPost, "/sessions",
			url.Values{"email": {"a@x.com"}, "password": {"pw1"}}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"a@x.com","message":"logged in"}`, rec.Body.String())
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, testCookie, cookies[0].Name)
		assert.Equal(t, "sess-1", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		svc.AssertExpectations(t)
		limiter.AssertExpectations(t)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		svc := new(MockAuthService)
		limiter := new(MockLoginLimiter)
		limiter.On("Allow", mock.Anything, "a@x.com").Return(true)
		svc.On("ValidLogin", mock.Anything, "a@x.com", "bad").Return(false)

		rec := serve(newTestServer(svc, limiter), formRequest(http.MethodPost, "/sessions",
			url.Values{"email": {"a@x.com"}, "password": {"bad"}}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
		svc.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
		limiter.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
		limiter.AssertExpectations(t)
	})

	t.Run("throttled email is rejected before verification", func(t *testing.T) {
		svc := new(MockAuthService)
		limiter := new(MockLoginLimiter)
		limiter.On("Allow", mock.Anything, "a@x.com").Return(false)

		rec := serve(newTestServer(svc, limiter), formRequest(http.MethodPost, "/sessions",
			url.Values{"email": {"a@x.com"}, "password": {"pw1"}}))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		svc.AssertNotCalled(t, "ValidLogin", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Profile(t *testing.T) {
	t.Run("resolved session", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("GetUserBySession", mock.Anything, "sess-1").Return(&model.User{ID: 1, Email: "a@x.com"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: "sess-1"})
		rec := serve(newTestServer(svc, new(MockLoginLimiter)), req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"a@x.com"}`, rec.Body.String())
	})

	t.Run("no cookie", func(t *testing.T) {
		svc := new(MockAuthService)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), httptest.NewRequest(http.MethodGet, "/profile", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		svc.AssertNotCalled(t, "GetUserBySession", mock.Anything, mock.Anything)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("GetUserBySession", mock.Anything, "stale").Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: "stale"})
		rec := serve(newTestServer(svc, new(MockLoginLimiter)), req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("destroys session and redirects home", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("GetUserBySession", mock.Anything, "sess-1").Return(&model.User{ID: 7, Email: "a@x.com"}, nil)
		svc.On("DestroySession", mock.Anything, uint(7)).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: "sess-1"})
		rec := serve(newTestServer(svc, new(MockLoginLimiter)), req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
		svc.AssertExpectations(t)
	})

	t.Run("unresolved session is forbidden without destroying", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("GetUserBySession", mock.Anything, "stale").Return(nil, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: "stale"})
		rec := serve(newTestServer(svc, new(MockLoginLimiter)), req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		svc.AssertNotCalled(t, "DestroySession", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_GetResetPasswordToken(t *testing.T) {
	t.Run("known email", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RequestPasswordReset", mock.Anything, "a@x.com").Return("reset-1", nil)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), formRequest(http.MethodPost, "/reset_password",
			url.Values{"email": {"a@x.com"}}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"a@x.com","reset_token":"reset-1"}`, rec.Body.String())
	})

	t.Run("unknown email is forbidden", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RequestPasswordReset", mock.Anything, "b@x.com").Return("", service.ErrNotFound)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), formRequest(http.MethodPost, "/reset_password",
			url.Values{"email": {"b@x.com"}}))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing email is forbidden", func(t *testing.T) {
		svc := new(MockAuthService)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), formRequest(http.MethodPost, "/reset_password", url.Values{}))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		svc.AssertNotCalled(t, "RequestPasswordReset", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_UpdatePassword(t *testing.T) {
	t.Run("password updated", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("CompletePasswordReset", mock.Anything, "reset-1", "pw2").Return(nil)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), formRequest(http.MethodPut, "/reset_password",
			url.Values{"email": {"a@x.com"}, "reset_token": {"reset-1"}, "new_password": {"pw2"}}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"a@x.com","message":"Password updated"}`, rec.Body.String())
	})

	t.Run("email is echoed without validation", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("CompletePasswordReset", mock.Anything, "reset-1", "pw2").Return(nil)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), formRequest(http.MethodPut, "/reset_password",
			url.Values{"email": {"not-an-email"}, "reset_token": {"reset-1"}, "new_password": {"pw2"}}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"not-an-email","message":"Password updated"}`, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("missing token is forbidden", func(t *testing.T) {
		svc := new(MockAuthService)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), formRequest(http.MethodPut, "/reset_password",
			url.Values{"email": {"a@x.com"}, "new_password": {"pw2"}}))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		svc.AssertNotCalled(t, "CompletePasswordReset", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("used token is forbidden", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("CompletePasswordReset", mock.Anything, "reset-1", "pw3").Return(service.ErrNotFound)

		rec := serve(newTestServer(svc, new(MockLoginLimiter)), formRequest(http.MethodPut, "/reset_password",
			url.Values{"email": {"a@x.com"}, "reset_token": {"reset-1"}, "new_password": {"pw3"}}))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
