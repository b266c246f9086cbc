package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ogtalent/dispatch/internal/conflict"
	"github.com/ogtalent/dispatch/internal/services"
)

type SubmissionHandler struct {
	service *services.SubmissionService
}

func NewSubmissionHandler(service *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Check handles POST /api/v1/submissions/check
func (h *SubmissionHandler) Check(c *gin.Context) {
	var req conflict.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.service.Check(req)
	if err != nil {
		if errors.Is(err, conflict.ErrMissingConsultant) || errors.Is(err, conflict.ErrMissingTimestamp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, d)
}

// CheckAndRecord handles POST /api/v1/submissions
func (h *SubmissionHandler) CheckAndRecord(c *gin.Context) {
	var req conflict.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CheckAndRecord(req)
	if err != nil {
		if errors.Is(err, conflict.ErrMissingConsultant) || errors.Is(err, conflict.ErrMissingTimestamp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if result.Recorded != nil {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// History handles GET /api/v1/submissions/:consultant_id
func (h *SubmissionHandler) History(c *gin.Context) {
	records, err := h.service.History(c.Param("consultant_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
