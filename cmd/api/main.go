package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ogtalent/dispatch/internal/config"
	"github.com/ogtalent/dispatch/internal/database"
	"github.com/ogtalent/dispatch/internal/logger"
	"github.com/ogtalent/dispatch/internal/models"
	"github.com/ogtalent/dispatch/internal/routing"
	"github.com/ogtalent/dispatch/internal/server"
	"github.com/ogtalent/dispatch/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "reset-password" {
		resetPassword(os.Args)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Log to stdout and a rotated file.
	logDir := filepath.Join(filepath.Dir(cfg.DatabasePath), "logs")
	_ = os.MkdirAll(logDir, 0o755)
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "dispatch.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.Environment == "development", io.MultiWriter(os.Stdout, rotator))

	logger.Log().Infof("starting %s %s", version.Name, version.Full())

	// Routing rules are load-bearing: refuse to run without a valid file
	// rather than guess at a weaker default.
	rules, err := routing.LoadRules(cfg.RoutingRulesPath)
	if err != nil {
		logger.Log().WithError(err).Fatalf("load routing rules from %s", cfg.RoutingRulesPath)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Log().WithError(err).Fatal("open database")
	}

	srv, err := server.New(db, cfg, rules)
	if err != nil {
		logger.Log().WithError(err).Fatal("build server")
	}

	// Periodic liveness sweep: agents silent past the threshold go DEAD and
	// someone gets paged.
	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSpec, func() {
		marked, err := srv.Services.Agents.Sweep(cfg.LivenessMinutes, time.Now().UTC())
		if err != nil {
			logger.Log().WithError(err).Error("agent liveness sweep failed")
			return
		}
		if marked > 0 {
			logger.Log().Infof("liveness sweep marked %d agent(s) DEAD", marked)
		}
	}); err != nil {
		logger.Log().WithError(err).Fatalf("invalid sweep schedule %q", cfg.SweepSpec)
	}
	c.Start()
	defer c.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log().Infof("listening on :%s", cfg.HTTPPort)
	if err := srv.Run(ctx); err != nil {
		logger.Log().WithError(err).Fatal("server error")
	}
	logger.Log().Info("shutdown complete")
}

// resetPassword handles the `dispatch reset-password <email> <new-password>`
// CLI command, also clearing any login lockout.
func resetPassword(args []string) {
	if len(args) != 4 {
		log.Fatalf("Usage: %s reset-password <email> <new-password>", args[0])
	}
	email, newPassword := args[2], args[3]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}

	if err := user.SetPassword(newPassword); err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	user.LockedUntil = nil
	user.FailedLoginAttempts = 0

	if err := db.Save(&user).Error; err != nil {
		log.Fatalf("failed to save user: %v", err)
	}

	log.Printf("Password updated successfully for user %s", email)
}
