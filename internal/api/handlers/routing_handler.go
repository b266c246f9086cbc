package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ogtalent/dispatch/internal/routing"
	"github.com/ogtalent/dispatch/internal/services"
)

type RoutingHandler struct {
	service *services.RoutingService
}

func NewRoutingHandler(service *services.RoutingService) *RoutingHandler {
	return &RoutingHandler{service: service}
}

// Decide handles POST /api/v1/routing/decide
func (h *RoutingHandler) Decide(c *gin.Context) {
	var env routing.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Decide(env)
	if err != nil {
		if errors.Is(err, routing.ErrMissingTarget) || errors.Is(err, routing.ErrMissingTimestamp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Rules handles GET /api/v1/routing/rules
func (h *RoutingHandler) Rules(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Rules())
}
