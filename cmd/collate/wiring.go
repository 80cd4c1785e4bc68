package main

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/labcollate/pkg/collate"
	"github.com/synaptica-ai/labcollate/pkg/common/config"
	"github.com/synaptica-ai/labcollate/pkg/common/database"
	"github.com/synaptica-ai/labcollate/pkg/common/kafka"
	"github.com/synaptica-ai/labcollate/pkg/common/logger"
	"github.com/synaptica-ai/labcollate/pkg/identity"
	"github.com/synaptica-ai/labcollate/pkg/ingestion"
	"github.com/synaptica-ai/labcollate/pkg/storage"
)

// buildService connects the configured sinks. The returned cleanup closes
// every connection that was opened.
func buildService(cfg *config.Config) (*collate.Service, func(), error) {
	var (
		sinks   []storage.Sink
		runs    collate.RunStore
		links   collate.LinkStore
		closers []func() error
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Log.WithError(err).Warn("failed to close connection")
			}
		}
	}

	for _, name := range cfg.Sinks {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "file":
			sinks = append(sinks, storage.NewFileSink(cfg.OutputPath))
		case "redis":
			closers = append(closers, database.CloseRedis)
			client, err := database.GetRedis(cfg)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("connecting to redis: %w", err)
			}
			sinks = append(sinks, storage.NewCacheSink(client, cfg.CacheTTL))
		case "kafka":
			producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
			closers = append(closers, producer.Close)
			sinks = append(sinks, storage.NewEventSink(producer, "labcollate", kafka.NewEvent))
		case "postgres":
			db, err := database.GetPostgres(cfg)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
			}
			closers = append(closers, database.ClosePostgres)

			panels := storage.NewPanelStore(db)
			runRepo := collate.NewRepository(db)
			linkRepo := identity.NewRepository(db)
			for _, m := range []interface{ AutoMigrate() error }{panels, runRepo, linkRepo} {
				if err := m.AutoMigrate(); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("migrating tables: %w", err)
				}
			}
			sinks = append(sinks, panels)
			runs = runRepo
			links = linkRepo
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unknown sink %q", name)
		}
	}

	opts := ingestion.DefaultOptions()
	opts.ProfileCodeIndex = cfg.ProfileCodeIndex

	logger.Log.WithField("sinks", cfg.Sinks).Info("Collation service configured")
	return collate.NewService(opts, cfg.InputEncoding, sinks, runs, links), cleanup, nil
}
