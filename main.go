package main

import (
	"context"

	"github.com/24rabbit/material-service/config"
	"github.com/24rabbit/material-service/database"
	"github.com/24rabbit/material-service/events"
	"github.com/24rabbit/material-service/handler"
	"github.com/24rabbit/material-service/middleware"
	"github.com/24rabbit/material-service/models"
	"github.com/24rabbit/material-service/pkg/metrics"
	"github.com/24rabbit/material-service/repository"
	"github.com/24rabbit/material-service/router"
	"github.com/24rabbit/material-service/service"
	"github.com/24rabbit/material-service/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func autoMigrate(db *gorm.DB, logger *logrus.Logger) {
	if err := db.AutoMigrate(&models.Material{}); err != nil {
		logger.Fatalf("auto migrate failed: %v", err)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.LoadConfig()

	metrics.StartMetricsServer(cfg.Server.MetricsPort)
	logger.Infof("Prometheus metrics server started on :%s", cfg.Server.MetricsPort)

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatalf("failed to connect database: %v", err)
	}
	autoMigrate(db, logger)

	repo := repository.NewMaterialRepository(db)

	presigner, err := storage.NewMinIOPresigner(cfg.MinIO)
	if err != nil {
		logger.Fatalf("failed to create presigner: %v", err)
	}

	svc := service.NewMaterialService(repo, presigner, cfg.Upload)
	materialHandler := handler.NewMaterialHandler(svc, logger)
	authn := middleware.NewAuthenticator(cfg.Auth.JWTSecret)

	if cfg.Kafka.Brokers != "" {
		consumer := events.NewResultConsumer(cfg.Kafka, repo, logger)
		go consumer.Run(context.Background())
	} else {
		logger.Info("Kafka result consumer disabled (missing config)")
	}

	r := router.Setup(materialHandler, authn)
	logger.Infof("Material service listening on %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
