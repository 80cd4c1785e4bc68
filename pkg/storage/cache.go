package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/labcollate/pkg/common/logger"
	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

// Setter is the subset of the Redis client the cache sink needs.
type Setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CacheSink caches each patient's collated record under labs:patient:<id>.
type CacheSink struct {
	client Setter
	ttl    time.Duration
}

func NewCacheSink(client Setter, ttl time.Duration) *CacheSink {
	return &CacheSink{client: client, ttl: ttl}
}

func (c *CacheSink) Name() string { return "redis" }

func PatientKey(id string) string {
	return fmt.Sprintf("labs:patient:%s", id)
}

func (c *CacheSink) Write(ctx context.Context, runID string, doc *models.Document) error {
	for _, patient := range doc.Patients {
		data, err := json.Marshal(patient)
		if err != nil {
			return err
		}
		if err := c.client.Set(ctx, PatientKey(patient.ID), data, c.ttl).Err(); err != nil {
			return fmt.Errorf("caching patient %s: %w", patient.ID, err)
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"run_id":   runID,
		"patients": len(doc.Patients),
		"ttl":      c.ttl.String(),
	}).Debug("Patient records cached")
	return nil
}
