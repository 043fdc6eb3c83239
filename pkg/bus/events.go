package bus

import (
	"context"
	"sync"
	"time"
)

// PublishDelivery fans d out to every subscriber without blocking.
func (b *Bus) PublishDelivery(ctx context.Context, d Delivery) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if d.At.IsZero() {
		d.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	default:
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.deliverySubscribers {
		select {
		case ch <- d:
		default:
			// Slow subscribers miss deliveries rather than stall dispatch.
		}
	}

	return true
}

func (b *Bus) SubscribeDeliveries(ctx context.Context, buffer int) (<-chan Delivery, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Delivery, buffer)

	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := b.nextDeliverySubscriberID
	b.nextDeliverySubscriberID++
	b.deliverySubscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			if deliveryCh, ok := b.deliverySubscribers[id]; ok {
				delete(b.deliverySubscribers, id)
				close(deliveryCh)
			}
			b.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-b.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}
