package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/24rabbit/material-service/config"
	"github.com/24rabbit/material-service/models"
	"github.com/24rabbit/material-service/pkg/metrics"
	"github.com/24rabbit/material-service/repository"
	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// pipelineResult mirrors the schema published by the content-generation
// pipeline when it finishes with a material.
type pipelineResult struct {
	MaterialID string `json:"material_id"`
	Status     string `json:"status"` // completed | failed
	Error      string `json:"error,omitempty"`
}

// ResultConsumer ingests pipeline result events and settles PROCESSING rows
// into READY or FAILED. Unknown or already-settled materials are logged and
// skipped; the offset is committed either way.
type ResultConsumer struct {
	reader *kafka.Reader
	repo   repository.MaterialRepository
	logger *logrus.Logger
}

func NewResultConsumer(cfg config.KafkaConfig, repo repository.MaterialRepository, logger *logrus.Logger) *ResultConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.ResultsTopic,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
	return &ResultConsumer{
		reader: reader,
		repo:   repo,
		logger: logger,
	}
}

func (c *ResultConsumer) Run(ctx context.Context) {
	defer c.reader.Close()
	c.logger.WithField("component", "result-consumer").Info("Kafka result consumer started")

	for {
		fctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := c.reader.FetchMessage(fctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.logger.WithField("component", "result-consumer").WithError(err).Warn("kafka fetch")
			time.Sleep(time.Second)
			continue
		}

		c.handle(ctx, msg.Value)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithField("component", "result-consumer").WithError(err).Warn("kafka commit")
		}
	}
}

func (c *ResultConsumer) handle(ctx context.Context, value []byte) {
	log := c.logger.WithField("component", "result-consumer")

	var result pipelineResult
	if err := json.Unmarshal(value, &result); err != nil {
		log.WithError(err).Warn("bad result json")
		return
	}

	materialID, err := uuid.Parse(result.MaterialID)
	if err != nil {
		log.WithField("material_id", result.MaterialID).Warn("bad material id in result")
		return
	}

	status := models.StatusReady
	var metadata datatypes.JSON
	if result.Status != "completed" {
		status = models.StatusFailed
		if result.Error != "" {
			metadata, _ = json.Marshal(map[string]string{"error": result.Error})
		}
	}

	if err := c.repo.MarkProcessed(materialID, status, metadata); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// not PROCESSING anymore, or never existed; nothing to settle
			log.WithField("material_id", result.MaterialID).Warn("result for unknown or settled material")
			return
		}
		log.WithField("material_id", result.MaterialID).WithError(err).Error("failed to settle material")
		return
	}

	metrics.PipelineResults.WithLabelValues(status).Inc()
	log.WithFields(logrus.Fields{
		"material_id": result.MaterialID,
		"status":      status,
	}).Info("material settled")
}

func splitBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
