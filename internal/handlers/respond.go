package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
)

const statusSuccess = "success"

func respondList[T any](c *gin.Context, items []T) {
	c.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"results": len(items),
		"data":    gin.H{"data": items},
	})
}

func respondOne(c *gin.Context, code int, doc any) {
	c.JSON(code, gin.H{"status": statusSuccess, "data": gin.H{"data": doc}})
}

// abort hands err to the error middleware and stops the chain.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func objectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	raw := c.Param(param)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		abort(c, apperr.Wrap(apperr.KindValidation, "Invalid _id: "+raw+".", err))
		return primitive.NilObjectID, false
	}
	return id, true
}
