// Package export persists consolidated metrics snapshots so downstream
// dashboards and jobs can pick them up without re-running the analysis.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/commercelab/retail-analytics/internal/config"
	"github.com/commercelab/retail-analytics/internal/models"
)

// Cache is the slice of the Redis client the exporter needs.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Exporter writes a metrics snapshot to a JSON file and, when a cache
// is attached, publishes the same payload under a fixed key so the
// latest run is always one GET away.
type Exporter struct {
	cfg    config.ExportConfig
	cache  Cache
	logger *slog.Logger
}

// NewExporter builds an exporter. cache may be nil when Redis is
// disabled; the file export still happens.
func NewExporter(cfg config.ExportConfig, cache Cache, logger *slog.Logger) *Exporter {
	return &Exporter{cfg: cfg, cache: cache, logger: logger.With("component", "exporter")}
}

// Export serializes the snapshot once and fans it out to every
// configured sink. Re-running with the same snapshot overwrites the
// previous outputs, so exports are idempotent.
func (e *Exporter) Export(ctx context.Context, metrics *models.ConsolidatedMetrics) error {
	payload, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	if err := e.writeFile(payload); err != nil {
		return err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, e.cfg.RedisKey, payload, 0); err != nil {
			return fmt.Errorf("publish metrics to redis: %w", err)
		}
		e.logger.Info("Metrics published to redis",
			"run_id", metrics.RunID,
			"key", e.cfg.RedisKey,
		)
	}
	return nil
}

func (e *Exporter) writeFile(payload []byte) error {
	dir := filepath.Dir(e.cfg.OutputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	if err := os.WriteFile(e.cfg.OutputPath, payload, 0o644); err != nil {
		return fmt.Errorf("write metrics file %s: %w", e.cfg.OutputPath, err)
	}
	e.logger.Info("Metrics written to file",
		"path", e.cfg.OutputPath,
		"bytes", len(payload),
	)
	return nil
}
