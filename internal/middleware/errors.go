package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
)

const (
	genericAPIMessage  = "Something went very wrong!"
	genericPageMessage = "Please try again later."
)

// classify turns any handler error into an *apperr.Error.
func classify(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return apperr.Wrap(apperr.KindValidation, "Invalid input data. "+strings.Join(msgs, ". "), err)
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return apperr.Wrap(apperr.KindValidation, "Invalid input data. Malformed JSON body", err)
	case errors.As(err, &typeErr):
		return apperr.Wrap(apperr.KindValidation, fmt.Sprintf("Invalid input data. Invalid value for %s", typeErr.Field), err)
	case errors.As(err, &sizeErr):
		return apperr.Wrap(apperr.KindValidation, "Request body is too large", err)
	}
	return apperr.Internal("unexpected error", err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "eqfield":
		return "Passwords are not the same!"
	case "ltfield":
		return fmt.Sprintf("%s should be below %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func statusWord(code int) string {
	if code >= 500 {
		return "error"
	}
	return "fail"
}

// ErrorHandler renders the last error attached to the context. Requests under
// /api get JSON, everything else gets the error page. In production only
// operational messages reach the client.
func ErrorHandler(log *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		raw := c.Errors.Last().Err
		e := classify(raw)
		code := e.Kind.Status()

		if !e.Operational() {
			log.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(raw),
			)
		}

		api := strings.HasPrefix(c.Request.URL.Path, "/api")
		switch {
		case api && production:
			msg := e.Message
			if !e.Operational() {
				msg = genericAPIMessage
			}
			c.JSON(code, gin.H{"status": statusWord(code), "message": msg})
		case api:
			c.JSON(code, gin.H{
				"status":  statusWord(code),
				"error":   e.Kind.String(),
				"message": raw.Error(),
			})
		default:
			msg := raw.Error()
			if production {
				msg = e.Message
				if !e.Operational() {
					msg = genericPageMessage
				}
			}
			c.HTML(code, "error.html", gin.H{"title": "Something went wrong!", "msg": msg})
		}
	}
}

// NoRoute reports unknown paths through ErrorHandler.
func NoRoute(c *gin.Context) {
	_ = c.Error(apperr.Newf(apperr.KindNotFound, "Can't find %s on this server!", c.Request.URL.Path))
	c.Abort()
}

// Recovery converts panics into Internal errors for ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		_ = c.Error(apperr.Internal("panic", fmt.Errorf("%v", rec)))
		c.Abort()
	})
}
