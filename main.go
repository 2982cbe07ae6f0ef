package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/cppla/bbsforum/config"
	"github.com/cppla/bbsforum/routes"
	"github.com/cppla/bbsforum/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase()

	var cache utils.Cache
	rc, err := utils.NewRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		utils.Logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		_ = rc.Close()
		cache = utils.NewMemoryCache(5 * time.Minute)
	} else {
		defer rc.Close()
		cache = utils.NewRedisCache(rc)
	}

	var mailer utils.Mailer = utils.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = utils.NewSMTPMailer(utils.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			TLS:      cfg.SMTPTLS,
		})
	} else {
		utils.Logger.Warn("smtp not configured, mails are only logged")
	}

	r, err := routes.SetupRouter(cfg, db, cache, mailer)
	if err != nil {
		utils.Sugar.Fatalf("router setup failed: %v", err)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
