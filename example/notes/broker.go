package notes

// broker.go sends new notes to subscribers

import (
	"context"
	"sync"
)

// Broker fans out published notes to all current subscribers.  A slow subscriber only delays delivery
// to itself (up to the size of its buffer), after which notes are dropped for that subscriber.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Note]struct{}
}

const subscriberBuffer = 16

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Note]struct{})}
}

// Subscribe returns a channel that receives published notes until ctx is cancelled, when it is closed
func (b *Broker) Subscribe(ctx context.Context) <-chan Note {
	ch := make(chan Note, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (b *Broker) Publish(n Note) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
