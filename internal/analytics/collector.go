// Package analytics streams a summary event for every analysis run to Kafka
// and aggregates those events into coverage and latency statistics.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/kafka"
)

// Publisher delivers one event. kafka.Producer and Aggregator implement it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector queues events and publishes them from a background goroutine
// so analysis requests never wait on the broker.
type Collector struct {
	publisher Publisher
	eventCh   chan AnalysisEvent
	logger    *slog.Logger
	done      chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewCollector creates a Collector with a queue of bufferSize events.
func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan AnalysisEvent, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. When ctx is cancelled the queued events
// are flushed before the loop exits.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event. It never blocks; a full queue drops the event.
func (c *Collector) Track(event AnalysisEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	if event.Type == "" {
		event.Type = EventAnalysis
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)", "run_id", event.RunID)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the queue to drain. Start must
// have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event AnalysisEvent) {
	if err := c.publisher.Publish(ctx, kafka.Event{Key: event.RunID, Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "run_id", event.RunID, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
