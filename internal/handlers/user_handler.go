package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/middleware"
)

const maxUploadBytes = 10 << 20

type updateMeRequest struct {
	Name            *string `json:"name" form:"name"`
	Email           *string `json:"email" form:"email" binding:"omitempty,email"`
	Password        *string `json:"password" form:"password"`
	PasswordConfirm *string `json:"passwordConfirm" form:"passwordConfirm"`
}

type userPatch struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Photo  *string `json:"photo"`
	Role   *string `json:"role" binding:"omitempty,oneof=user guide lead-guide admin"`
	Active *bool   `json:"active"`
}

func (p *userPatch) fields() bson.M {
	m := bson.M{}
	set(m, "name", p.Name)
	set(m, "email", p.Email)
	set(m, "photo", p.Photo)
	set(m, "role", p.Role)
	set(m, "active", p.Active)
	return m
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEMultipartPOSTForm
}

func (h *Handler) GetMe(c *gin.Context) {
	me := middleware.CurrentUser(c)
	user, err := h.Users.Get(c.Request.Context(), me.ID)
	if err != nil {
		abort(c, err)
		return
	}
	respondOne(c, http.StatusOK, user)
}

// UpdateMe changes the caller's name, email and photo. Password changes go
// through UpdatePassword.
func (h *Handler) UpdateMe(c *gin.Context) {
	me := middleware.CurrentUser(c)
	if isMultipart(c) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	}
	var req updateMeRequest
	if err := c.ShouldBind(&req); err != nil {
		abort(c, err)
		return
	}
	if req.Password != nil || req.PasswordConfirm != nil {
		abort(c, apperr.Validation("This route is not for password updates. Please use /updatePassword."))
		return
	}

	fields := bson.M{}
	set(fields, "name", req.Name)
	set(fields, "email", req.Email)

	if isMultipart(c) {
		file, err := c.FormFile("photo")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			abort(c, err)
			return
		default:
			src, err := file.Open()
			if err != nil {
				abort(c, err)
				return
			}
			defer src.Close()
			name, err := h.Images.UserPhoto(c.Request.Context(), me.ID.Hex(), src)
			if err != nil {
				abort(c, err)
				return
			}
			fields["photo"] = name
		}
	}
	if len(fields) == 0 {
		abort(c, apperr.Validation("No update fields provided"))
		return
	}

	user, err := h.Users.Update(c.Request.Context(), me.ID, fields)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "data": gin.H{"user": user}})
}

// DeleteMe deactivates the caller's account.
func (h *Handler) DeleteMe(c *gin.Context) {
	me := middleware.CurrentUser(c)
	if err := h.Users.Deactivate(c.Request.Context(), me.ID); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateUser(c *gin.Context) {
	abort(c, apperr.InvalidInput("This route is not defined! Please use /signup instead"))
}

func (h *Handler) GetUsers(c *gin.Context)   { h.users.List(c) }
func (h *Handler) GetUser(c *gin.Context)    { h.users.Get(c) }
func (h *Handler) UpdateUser(c *gin.Context) { h.users.Update(c) }
func (h *Handler) DeleteUser(c *gin.Context) { h.users.Delete(c) }
