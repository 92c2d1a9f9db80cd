package search

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func internalError(c *gin.Context, err error, requestID, logMessage string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error(logMessage, zap.Error(err), zap.String("requestID", requestID))
}
