// Package backend builds the storage and event adapters selected by the configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simaogato/networth-backend/internal/adapter/events"
	amqpevents "github.com/simaogato/networth-backend/internal/adapter/events/amqp"
	"github.com/simaogato/networth-backend/internal/adapter/events/sheets"
	"github.com/simaogato/networth-backend/internal/adapter/repository/file"
	"github.com/simaogato/networth-backend/internal/adapter/repository/memory"
	"github.com/simaogato/networth-backend/internal/adapter/repository/mongo"
	"github.com/simaogato/networth-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/networth-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/networth-backend/internal/config"
	"github.com/simaogato/networth-backend/internal/domain"
)

// CleanupFunc releases the resources held by a backend
type CleanupFunc func(ctx context.Context) error

// StoreResult contains the store and its optional capabilities
type StoreResult struct {
	Store domain.SnapshotStore
	// Revisions is nil for backends without a save log
	Revisions domain.RevisionLister
	Cleanup   CleanupFunc
}

// EventsResult contains the configured event sinks
type EventsResult struct {
	// Publisher is nil when no sink is configured
	Publisher domain.EventPublisher
	Cleanup   CleanupFunc
}

func noCleanup(context.Context) error { return nil }

// OpenStore creates the SnapshotStore selected by cfg.DataBackend
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*StoreResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DataBackend {
	case config.BackendFile:
		logger.Info("initialized file backend", "path", cfg.DataFile)
		return &StoreResult{Store: file.NewStore(cfg.DataFile), Cleanup: noCleanup}, nil

	case config.BackendMemory:
		logger.Info("initialized memory backend")
		return &StoreResult{Store: memory.NewStore(nil), Cleanup: noCleanup}, nil

	case config.BackendPostgres:
		db, err := postgres.NewDB(cfg.DBConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := postgres.NewDocumentRepository(db)
		logger.Info("initialized postgres backend")
		return &StoreResult{
			Store:     repo,
			Revisions: repo,
			Cleanup:   func(context.Context) error { return db.Close() },
		}, nil

	case config.BackendSQLite:
		db, err := sqlite.NewDB(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		repo := sqlite.NewDocumentRepository(db)
		logger.Info("initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return &StoreResult{
			Store:     repo,
			Revisions: repo,
			Cleanup:   func(context.Context) error { return db.Close() },
		}, nil

	case config.BackendMongo:
		store, err := mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		logger.Info("initialized mongo backend", "database", cfg.MongoDB)
		return &StoreResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

// OpenEvents creates the event sinks enabled in cfg.
// A sink that fails to initialize is logged and skipped so the API still starts.
func OpenEvents(ctx context.Context, cfg *config.Config, logger *slog.Logger) *EventsResult {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		sinks    []domain.EventPublisher
		cleanups []CleanupFunc
	)

	if cfg.AMQPURL != "" {
		publisher, err := amqpevents.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("failed to initialize AMQP publisher, continuing without it", "error", err)
		} else {
			logger.Info("initialized AMQP publisher", "exchange", cfg.AMQPExchange)
			sinks = append(sinks, publisher)
			cleanups = append(cleanups, func(context.Context) error { return publisher.Close() })
		}
	}

	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := sheets.NewExporter(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
			cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			logger.Warn("failed to initialize Google Sheets exporter, continuing without it", "error", err)
		} else {
			logger.Info("initialized Google Sheets exporter", "sheet", cfg.GoogleSheetName)
			sinks = append(sinks, exporter)
		}
	}

	result := &EventsResult{
		Cleanup: func(ctx context.Context) error {
			var errs []error
			for _, c := range cleanups {
				errs = append(errs, c(ctx))
			}
			return errors.Join(errs...)
		},
	}
	if len(sinks) > 0 {
		result.Publisher = events.NewFanout(sinks...)
	}
	return result
}
