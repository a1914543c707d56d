package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finance/internal/amqp"
	applog "finance/internal/log"
	"finance/internal/observability"
	"finance/internal/ports"
	"finance/internal/storage"
	"finance/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *applog.Logger
	metrics *observability.Metrics
}

func NewFactory(metrics *observability.Metrics) Factory {
	return &DefaultFactory{
		logger:  applog.New(applog.Config{Component: applog.ComponentBackend, Handler: slog.Default().Handler()}),
		metrics: metrics,
	}
}

// CreateBackend opens the configured store. A broker that cannot be
// reached is logged and skipped so the API keeps working without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var result *BackendResult
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		result = &BackendResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend")
		result = &BackendResult{
			Store:   memory.New(),
			Ping:    func(context.Context) error { return nil },
			Cleanup: func() error { return nil },
		}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.AMQPURL == "" {
		return result, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.metrics)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return result, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)

	storeCleanup := result.Cleanup
	result.Publisher = ports.EventPublisher(client)
	result.Cleanup = func() error {
		return errors.Join(client.Close(), storeCleanup())
	}
	return result, nil
}
