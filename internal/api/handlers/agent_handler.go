package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ogtalent/dispatch/internal/services"
)

type AgentHandler struct {
	service *services.AgentService
}

func NewAgentHandler(service *services.AgentService) *AgentHandler {
	return &AgentHandler{service: service}
}

// Heartbeat handles POST /api/v1/agents/:name/heartbeat
func (h *AgentHandler) Heartbeat(c *gin.Context) {
	var hb services.Heartbeat
	if err := c.ShouldBindJSON(&hb); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hb.Name = c.Param("name")

	status, err := h.service.Ingest(hb)
	if err != nil {
		if errors.Is(err, services.ErrInvalidHeartbeat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// List handles GET /api/v1/agents
func (h *AgentHandler) List(c *gin.Context) {
	agents, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agents)
}

// Get handles GET /api/v1/agents/:name
func (h *AgentHandler) Get(c *gin.Context) {
	status, err := h.service.Get(c.Param("name"))
	if err != nil {
		if errors.Is(err, services.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
