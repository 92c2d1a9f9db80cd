package auth

import (
	"net/http"
	"strconv"

	"jobber/auth-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxSeedCount = 1000

func Seed(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	count, err := strconv.Atoi(c.Param("count"))
	if err != nil || count <= 0 || count > maxSeedCount {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "count must be a number between 1 and 1000",
			"requestID": requestID,
		})
		return
	}

	created, err := d.Lifecycle.Seed(c.Request.Context(), count)
	if err != nil {
		fail(c, err, requestID, "Failed to seed users")
		return
	}

	zap.L().Info("Seeded users", zap.Int("count", created), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"message": "Seed users created successfully",
		"created": created,
	})
}
