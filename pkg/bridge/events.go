package bridge

import (
	"context"
	"log/slog"

	"adsbridge/pkg/bus"
)

func observeDeliveries(ctx context.Context, b *bus.Bus, log *slog.Logger) {
	log = log.With("component", "bus.deliveries")
	deliveries, unsubscribe := b.SubscribeDeliveries(ctx, 32)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			logDelivery(log, d)
		}
	}
}

func logDelivery(log *slog.Logger, d bus.Delivery) {
	// Keep a stable attribute set so outcomes are easy to grep by session.
	attrs := []any{
		"status", d.Status,
		"session_id", d.SessionID,
		"provider", d.Provider,
		"phase", d.Event.Phase(),
		"type", d.Event.Type(),
		"is_error", d.Event.IsError(),
		"timestamp", d.At.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
	if response, ok := d.Event.Response(); ok {
		attrs = append(attrs, "response", response)
	}

	switch d.Status {
	case bus.StatusFailed:
		log.Error("Delivery", append(attrs, "error", d.Error)...)
	case bus.StatusDropped:
		log.Warn("Delivery", attrs...)
	case bus.StatusDelivered:
		log.Info("Delivery", attrs...)
	default:
		log.Debug("Delivery", attrs...)
	}
}
