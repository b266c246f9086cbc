package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ogtalent/dispatch/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Submission{},
		&models.DNSEntry{},
		&models.AgentStatus{},
		&models.AuditEvent{},
		&models.Notification{},
		&models.User{},
	))
	return db
}

func setupAudit(t *testing.T, db *gorm.DB) *AuditService {
	t.Helper()
	return NewAuditService(db, filepath.Join(t.TempDir(), "audit-log.jsonl"))
}
