package bus

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

// Bus carries operator commands into the bridge and fans delivery outcomes
// out to observers.
type Bus struct {
	commands chan Command

	deliverySubscribers      map[uint64]chan Delivery
	nextDeliverySubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func New() *Bus {
	return &Bus{
		commands:            make(chan Command, defaultBufferSize),
		deliverySubscribers: make(map[uint64]chan Delivery),
		done:                make(chan struct{}),
	}
}

func (b *Bus) PublishCommand(ctx context.Context, cmd Command) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	case b.commands <- cmd:
		return true
	}
}

func (b *Bus) ConsumeCommand(ctx context.Context) (Command, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return Command{}, false
	case <-b.done:
		return Command{}, false
	case cmd := <-b.commands:
		return cmd, true
	}
}

func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		for id, ch := range b.deliverySubscribers {
			close(ch)
			delete(b.deliverySubscribers, id)
		}
		b.mu.Unlock()
	})
}
