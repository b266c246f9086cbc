package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ogtalent/dispatch/internal/models"
	"github.com/ogtalent/dispatch/internal/services"
)

type DNSHandler struct {
	service *services.DNSService
}

func NewDNSHandler(service *services.DNSService) *DNSHandler {
	return &DNSHandler{service: service}
}

// List handles GET /api/v1/dns
func (h *DNSHandler) List(c *gin.Context) {
	entries, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Create handles POST /api/v1/dns
func (h *DNSHandler) Create(c *gin.Context) {
	var entry models.DNSEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Create(&entry); err != nil {
		if errors.Is(err, services.ErrDNSEntryInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Delete handles DELETE /api/v1/dns/:uuid
func (h *DNSHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Param("uuid")); err != nil {
		if errors.Is(err, services.ErrDNSEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
