package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/config"
	"github.com/ogtalent/dispatch/internal/routing"
)

func TestNew(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	cfg := config.Config{
		Environment:  "test",
		JWTSecret:    "test-secret",
		TokenTTL:     time.Hour,
		AuditLogPath: filepath.Join(t.TempDir(), "audit-log.jsonl"),
	}
	rules := &routing.Rules{
		Version:         "1.0",
		ValidationAgent: "screening-agent",
		DependencyGraph: map[string]routing.AgentRules{
			"screening-agent": {Accepts: []string{routing.TypeSubmissionRequest}},
		},
	}
	require.NoError(t, rules.Validate())

	srv, err := New(db, cfg, rules)
	require.NoError(t, err)
	require.NotNil(t, srv.Engine)
	require.NotNil(t, srv.Services)

	req, _ := http.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
