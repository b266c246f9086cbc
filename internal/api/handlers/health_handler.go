package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ogtalent/dispatch/internal/version"
)

// Health handles GET /api/v1/health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    version.Name,
		"version": version.Full(),
	})
}
