package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-api/internal/app"
	"portfolio-api/internal/repository"
	"portfolio-api/internal/transport/http/middleware"
	"portfolio-api/internal/transport/http/response"
)

// sessionCookieMaxAge keeps the browser session at seven days whatever the
// token lifetime is; an expired token inside a live cookie still gets a 401.
const sessionCookieMaxAge = 7 * 24 * 60 * 60

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	authService *app.AuthService
	cookie      CookieConfig
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(authService *app.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{authService: authService, cookie: cookie}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingCredentials),
			errors.Is(err, app.ErrInvalidEmail),
			errors.Is(err, app.ErrPasswordTooShort):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmailExists):
			response.Error(c, http.StatusConflict, response.CodeEmailExists, err.Error())
		default:
			writeOperationalError(c, err, "register failed")
		}
		return
	}

	h.setSessionCookie(c, result.Token)
	response.JSON(c, http.StatusCreated, gin.H{
		"message": "registered",
		"user":    result.User.Public(),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingCredentials):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		default:
			writeOperationalError(c, err, "login failed")
		}
		return
	}

	h.setSessionCookie(c, result.Token)
	response.OK(c, gin.H{
		"message": "logged in",
		"user":    result.User.Public(),
	})
}

// Logout always succeeds; tokens are stateless so only the cookie is cleared.
func (h *AuthHandler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	response.OK(c, gin.H{"message": "logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, app.ErrUnauthenticated.Error())
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthenticated):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
		default:
			writeOperationalError(c, err, "fetch current user failed")
		}
		return
	}

	// the full record minus the password hash, which never serializes
	response.OK(c, gin.H{"user": user})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeOperationalError maps storage and configuration faults to fixed
// public messages; anything else gets the caller supplied fallback.
func writeOperationalError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrStorageNotConfigured):
		response.Error(c, http.StatusInternalServerError, response.CodeMisconfigured, "storage connection is not configured")
	case errors.Is(err, repository.ErrStorageUnavailable):
		response.Error(c, http.StatusInternalServerError, response.CodeStorage, "storage is unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
	_ = c.Error(err)
}
