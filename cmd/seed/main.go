package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ogtalent/dispatch/internal/config"
	"github.com/ogtalent/dispatch/internal/database"
	"github.com/ogtalent/dispatch/internal/models"
)

// Seeds the database with demo data for local development. Run once after a
// fresh checkout:
//
//	go run ./cmd/seed
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Submission{},
		&models.DNSEntry{},
		&models.AgentStatus{},
		&models.AuditEvent{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	now := time.Now().UTC()

	admin := models.User{
		Email:   "admin@example.com",
		Name:    "Admin",
		Role:    "admin",
		Enabled: true,
	}
	if err := admin.SetPassword("changeme123"); err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	if err := db.Where("email = ?", admin.Email).FirstOrCreate(&admin).Error; err != nil {
		log.Fatalf("seed admin user: %v", err)
	}

	submissions := []models.Submission{
		{
			ConsultantID: "CONS-101",
			ProfileID:    "P-101-A",
			EndClient:    "Acme Corp",
			VendorName:   "TechVendor Inc",
			JobPostingID: "JOB-1001",
			Status:       models.SubmissionStatusPending,
			SubmittedAt:  now.AddDate(0, 0, -12),
		},
		{
			ConsultantID: "CONS-101",
			ProfileID:    "P-101-A",
			EndClient:    "Globex",
			VendorName:   "StaffRight LLC",
			JobPostingID: "JOB-2040",
			Status:       models.SubmissionStatusAccepted,
			SubmittedAt:  now.AddDate(0, 0, -45),
		},
		{
			ConsultantID: "CONS-202",
			ProfileID:    "P-202-B",
			EndClient:    "Initech",
			VendorName:   "TechVendor Inc",
			JobPostingID: "JOB-3090",
			Status:       models.SubmissionStatusPlaced,
			SubmittedAt:  now.AddDate(0, 0, -120),
		},
	}
	for i := range submissions {
		s := &submissions[i]
		err := db.Where("consultant_id = ? AND job_posting_id = ?", s.ConsultantID, s.JobPostingID).
			FirstOrCreate(s).Error
		if err != nil {
			log.Fatalf("seed submission %s/%s: %v", s.ConsultantID, s.JobPostingID, err)
		}
	}

	expiry := now.AddDate(0, 6, 0)
	dnsEntries := []models.DNSEntry{
		{
			ConsultantID: "CONS-101",
			Company:      "Stark Industries",
			Reason:       "Candidate requested no further submissions",
		},
		{
			ConsultantID: "CONS-202",
			Company:      "Initech",
			Vendor:       "StaffRight LLC",
			Reason:       "Vendor dispute, revisit next quarter",
			ExpiresAt:    &expiry,
		},
	}
	for i := range dnsEntries {
		e := &dnsEntries[i]
		err := db.Where("consultant_id = ? AND company = ? AND vendor = ?", e.ConsultantID, e.Company, e.Vendor).
			FirstOrCreate(e).Error
		if err != nil {
			log.Fatalf("seed dns entry %s/%s: %v", e.ConsultantID, e.Company, err)
		}
	}

	agents := []models.AgentStatus{
		{Name: "screening-agent", State: models.AgentStateActive, LastActivity: now, QueueDepth: 2, DataAgeMinutes: 15},
		{Name: "sourcing-agent", State: models.AgentStateIdle, LastActivity: now.Add(-10 * time.Minute), QueueDepth: 0, DataAgeMinutes: 60},
		{Name: "outreach-agent", State: models.AgentStateSlow, LastActivity: now.Add(-40 * time.Minute), QueueDepth: 7, DataAgeMinutes: 200},
	}
	for i := range agents {
		a := &agents[i]
		if err := db.Where("name = ?", a.Name).FirstOrCreate(a).Error; err != nil {
			log.Fatalf("seed agent %s: %v", a.Name, err)
		}
	}

	if err := writeRulesFile(cfg.RoutingRulesPath); err != nil {
		log.Fatalf("write routing rules: %v", err)
	}

	log.Printf("seeded %s: admin user, %d submissions, %d dns entries, %d agents",
		cfg.DatabasePath, len(submissions), len(dnsEntries), len(agents))
	log.Printf("routing rules at %s", cfg.RoutingRulesPath)
	log.Println("admin login: admin@example.com / changeme123 (change it)")
}

// writeRulesFile drops a starter routing_rules.json unless one already exists.
func writeRulesFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rules := `{
  "version": "1",
  "validation_agent": "screening-agent",
  "alert_channel": "#recruiting-alerts",
  "liveness_minutes": 30,
  "freshness_minutes": 240,
  "dependency_graph": {
    "screening-agent": {
      "accepts": ["SUBMISSION_REQUEST", "STATUS_UPDATE"]
    },
    "sourcing-agent": {
      "accepts": ["SUBMISSION_REQUEST", "STATUS_UPDATE"],
      "requires_approval": {"SUBMISSION_REQUEST": "screening-agent"},
      "max_queue_depth": 10
    },
    "outreach-agent": {
      "accepts": ["STATUS_UPDATE", "CRITICAL_ALERT"],
      "max_queue_depth": 5
    }
  }
}
`
	return os.WriteFile(path, []byte(rules), 0o644)
}
