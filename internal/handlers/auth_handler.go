package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/tour-booking-api/internal/middleware"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/services"
)

type SignupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// sendToken sets the session cookie and answers with the token and user.
func (h *Handler) sendToken(c *gin.Context, code int, user *models.User, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, token, int(h.CookieTTL/time.Second), "/", "", h.Production, true)
	c.JSON(code, gin.H{
		"status": statusSuccess,
		"token":  token,
		"data":   gin.H{"user": user},
	})
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, err)
		return
	}
	user, token, err := h.Auth.Signup(c.Request.Context(), services.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		AccountURL:      baseURL(c) + "/account",
	})
	if err != nil {
		abort(c, err)
		return
	}
	h.sendToken(c, http.StatusCreated, user, token)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, err)
		return
	}
	user, token, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abort(c, err)
		return
	}
	h.sendToken(c, http.StatusOK, user, token)
}

// Logout overwrites the session cookie with a short-lived placeholder.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, middleware.LoggedOutValue, 10, "/", "", h.Production, true)
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, err)
		return
	}
	base := baseURL(c)
	_, err := h.Auth.IssuePasswordReset(c.Request.Context(), req.Email, func(raw string) string {
		return base + "/api/v1/users/resetPassword/" + raw
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "message": "Token sent to email!"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, err)
		return
	}
	user, token, err := h.Auth.ConsumePasswordReset(c.Request.Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		abort(c, err)
		return
	}
	h.sendToken(c, http.StatusOK, user, token)
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, err)
		return
	}
	me := middleware.CurrentUser(c)
	user, token, err := h.Auth.UpdatePassword(c.Request.Context(), me.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		abort(c, err)
		return
	}
	h.sendToken(c, http.StatusOK, user, token)
}
