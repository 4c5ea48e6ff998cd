package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recon-engine/internal/service"
	"recon-engine/pkg/logger"
	"recon-engine/pkg/response"
)

// AuthHandler exposes the registration/login/logout boundary
// (`POST /api/v1/auth/register`, `POST /api/v1/auth/login`,
// `POST /api/v1/auth/logout`) ahead of the core's own operations.
type AuthHandler struct {
	auth service.AuthService
}

func NewAuthHandler(auth service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration payload"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	user, err := h.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("username", req.Username).Warn("registration failed")
		response.BadRequest(c, "registration failed", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, "user registered", user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Authenticate and obtain a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login payload"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	token, user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", "")
		return
	}
	response.Success(c, http.StatusOK, "login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout godoc
// @Summary Invalidate the caller's session token
// @Tags auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := header
	if len(header) > 7 && header[:7] == "Bearer " {
		token = header[7:]
	}
	h.auth.Logout(token)
	response.Success(c, http.StatusOK, "logged out", nil)
}
