// Package publish pushes committed trade lifecycle events to NATS JetStream
// for downstream consumers (risk, confirmations, regulatory reporting).
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"SwapDesk/internal/lifecycle"
	"SwapDesk/internal/observability"
)

// StreamName holds every trade lifecycle subject.
const StreamName = "SWAPDESK_TRADES"

// TradePublisher drains lifecycle events from a channel and publishes them to
// subjects of the form swapdesk.trades.{action}. The channel decouples the
// trade path from NATS: a full buffer drops the event rather than blocking a
// booking.
type TradePublisher struct {
	js      jetstream.JetStream
	events  chan lifecycle.Event
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewTradePublisher creates a publisher with the given buffer size. metrics
// may be nil.
func NewTradePublisher(js jetstream.JetStream, buffer int, metrics *observability.Metrics, log zerolog.Logger) *TradePublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &TradePublisher{
		js:      js,
		events:  make(chan lifecycle.Event, buffer),
		metrics: metrics,
		log:     log,
	}
}

// NotifyTrade implements lifecycle.Notifier. It never blocks; when the buffer
// is full the event is dropped and counted.
func (p *TradePublisher) NotifyTrade(ev lifecycle.Event) {
	select {
	case p.events <- ev:
	default:
		if p.metrics != nil {
			p.metrics.PublishDrops.Inc()
		}
		p.log.Warn().
			Int64("trade_id", ev.TradeID).
			Str("action", ev.Action).
			Msg("publish buffer full, event dropped")
	}
}

// Run drains the event channel until ctx is cancelled.
func (p *TradePublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-p.events:
			if err := p.publish(ctx, ev); err != nil {
				// Non-fatal: consumers can reconcile from the trades table.
				p.log.Warn().
					Err(err).
					Int64("trade_id", ev.TradeID).
					Str("action", ev.Action).
					Msg("outbound publish failed")
			}
		}
	}
}

func (p *TradePublisher) publish(ctx context.Context, ev lifecycle.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("swapdesk.trades.%s", ev.Action)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(ev.Action).Inc()
	}
	return nil
}

// EnsureStream creates or updates the trade events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream, log zerolog.Logger) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"swapdesk.trades.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create trade stream: %w", err)
	}

	log.Info().Str("stream", StreamName).Msg("ensured trade events stream")
	return nil
}
