package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is polled by the gateway and the orchestrator
func Health(c *gin.Context) {
	c.String(http.StatusOK, "Auth service is healthy and OK.")
}
