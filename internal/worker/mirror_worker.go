// Package worker consumes ledger events from the broker and copies them to
// a ledger mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finance/internal/amqp"
	"finance/internal/cache"
	applog "finance/internal/log"
	"finance/internal/observability"
	"finance/internal/ports"
)

// Consumer is the part of the AMQP client the worker drives.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, prefetch int, handler amqp.Handler) error
	Reconnect(ctx context.Context) error
}

type Config struct {
	// Prefetch bounds unacknowledged deliveries (default: 10).
	Prefetch int
	// RetryDelay is the pause before resuming after the consumer stops (default: 5s).
	RetryDelay time.Duration
	// DedupeSize and DedupeTTL bound the memory of already mirrored message ids.
	DedupeSize int
	DedupeTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Prefetch:   10,
		RetryDelay: 5 * time.Second,
		DedupeSize: 10000,
		DedupeTTL:  24 * time.Hour,
	}
}

type MirrorWorker struct {
	consumer Consumer
	mirror   ports.LedgerMirror
	metrics  *observability.Metrics
	logger   *applog.Logger
	config   Config
	seen     *cache.LRU[struct{}]
}

func NewMirrorWorker(consumer Consumer, mirror ports.LedgerMirror, metrics *observability.Metrics, config Config) *MirrorWorker {
	def := DefaultConfig()
	if config.Prefetch <= 0 {
		config.Prefetch = def.Prefetch
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.DedupeSize <= 0 {
		config.DedupeSize = def.DedupeSize
	}
	if config.DedupeTTL <= 0 {
		config.DedupeTTL = def.DedupeTTL
	}
	return &MirrorWorker{
		consumer: consumer,
		mirror:   mirror,
		metrics:  metrics,
		logger:   applog.New(applog.Config{Component: applog.ComponentWorker, Handler: slog.Default().Handler()}),
		config:   config,
		seen:     cache.NewLRU[struct{}](config.DedupeSize, config.DedupeTTL),
	}
}

// HandleLedgerEvent mirrors one message. Messages that cannot be decoded
// are dropped; mirror failures are returned so the delivery is retried.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	ev, err := msg.Event()
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping undecodable ledger event",
			"message_id", msg.ID,
			applog.FieldError, err)
		return nil
	}
	if !w.seen.Add(msg.ID, struct{}{}) {
		w.logger.DebugContext(ctx, "Skipping duplicate ledger event", "message_id", msg.ID)
		return nil
	}

	ref, err := w.mirror.AppendEntry(ctx, ev)
	w.metrics.MirroredEvent(err)
	if err != nil {
		w.seen.Delete(msg.ID)
		return fmt.Errorf("mirror entry %d: %w", ev.EntryID, err)
	}

	w.logger.InfoContext(ctx, "Mirrored ledger event",
		applog.FieldOperation, applog.OpMirror,
		applog.FieldEntryID, ev.EntryID,
		applog.FieldKind, ev.Kind,
		applog.FieldUserID, ev.UserID,
		applog.FieldSheetsRef, ref)
	return nil
}

// Run consumes until ctx is cancelled, reconnecting whenever the consumer
// loop ends early.
func (w *MirrorWorker) Run(ctx context.Context) error {
	go cache.RunJanitor(ctx, time.Hour, nil, w.seen)

	w.logger.InfoContext(ctx, "Mirror worker started", "prefetch", w.config.Prefetch)
	for {
		err := w.consumer.ConsumeLedgerEvents(ctx, w.config.Prefetch, w.HandleLedgerEvent)
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "Mirror worker stopped")
			return nil
		}
		w.logger.WarnContext(ctx, "Ledger event consumer stopped, retrying",
			applog.FieldError, err,
			"retry_in", w.config.RetryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.config.RetryDelay):
		}
		if err := w.consumer.Reconnect(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Reconnect failed", applog.FieldError, err)
		}
	}
}
