package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ogtalent/dispatch/internal/cannibal"
	"github.com/ogtalent/dispatch/internal/filters"
	"github.com/ogtalent/dispatch/internal/services"
)

type ScreeningHandler struct {
	service *services.ScreeningService
}

func NewScreeningHandler(service *services.ScreeningService) *ScreeningHandler {
	return &ScreeningHandler{service: service}
}

// ScreenRequest pairs a candidate and a job for the hard filters.
type ScreenRequest struct {
	Candidate filters.Candidate `json:"candidate" binding:"required"`
	Job       filters.Job       `json:"job" binding:"required"`
	At        time.Time         `json:"at"`
}

// Screen handles POST /api/v1/screening/filters
func (h *ScreeningHandler) Screen(c *gin.Context) {
	var req ScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	d, err := h.service.Screen(req.Candidate, req.Job, req.At)
	if err != nil {
		if errors.Is(err, filters.ErrMissingCandidate) || errors.Is(err, filters.ErrMissingTimestamp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, d)
}

// Cannibalization handles POST /api/v1/screening/cannibalization
func (h *ScreeningHandler) Cannibalization(c *gin.Context) {
	var app cannibal.Application
	if err := c.ShouldBindJSON(&app); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if app.Timestamp.IsZero() {
		app.Timestamp = time.Now().UTC()
	}

	d, err := h.service.CheckCannibalization(app)
	if err != nil {
		if errors.Is(err, cannibal.ErrMissingCandidate) || errors.Is(err, cannibal.ErrMissingTimestamp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, d)
}
