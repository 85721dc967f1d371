// Package worker consumes change events and keeps derived caches fresh.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/opensource-finance/storefront/internal/domain"
)

// StatisticTables are the tables whose changes make a cached sales statistic stale.
var StatisticTables = []string{"orders", "order_items", "products", "customers"}

// Invalidator drops a derived value so it is recomputed on next use.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Worker invalidates the cached sales statistic when a committed unit of
// work touches one of StatisticTables.
type Worker struct {
	bus         domain.EventBus
	invalidator Invalidator

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	processed     atomic.Int64
	invalidations atomic.Int64
}

// NewWorker creates a new change-event worker.
func NewWorker(bus domain.EventBus, invalidator Invalidator) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:         bus,
		invalidator: invalidator,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start subscribes to committed change events.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicEntitiesChanged, w.handleMessage)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("worker started", "topic", domain.TopicEntitiesChanged)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	w.processed.Add(1)

	var event domain.ChangeEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse change event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if !event.Touches(StatisticTables...) {
		return nil
	}

	if err := w.invalidator.Invalidate(ctx); err != nil {
		slog.Error("failed to invalidate sales statistic",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	w.invalidations.Add(1)

	slog.Debug("sales statistic invalidated",
		"message_id", msg.ID,
		"tables", event.Tables,
		"rows_affected", event.RowsAffected,
	)
	return nil
}

// Stop cancels and removes all subscriptions.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Invalidations     int64    `json:"invalidations"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Invalidations:     w.invalidations.Load(),
	}
}
