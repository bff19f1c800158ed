package chat

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Bus carries inbox invalidation events between service instances. An event
// for a user means one of their conversations changed and the inbox view
// should be recomputed.
type Bus interface {
	PublishInbox(ctx context.Context, userID string) error
	// SubscribeInbox returns an event channel for userID and a cancel
	// function releasing the underlying listener.
	SubscribeInbox(ctx context.Context, userID string) (<-chan struct{}, func(), error)
}

const inboxChannelPrefix = "inbox:"

// RedisBus fans inbox events out over Redis pub/sub so every instance sees
// writes made by its peers.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) PublishInbox(ctx context.Context, userID string) error {
	return b.rdb.Publish(ctx, inboxChannelPrefix+userID, "1").Err()
}

func (b *RedisBus) SubscribeInbox(ctx context.Context, userID string) (<-chan struct{}, func(), error) {
	pubsub := b.rdb.Subscribe(ctx, inboxChannelPrefix+userID)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		for range pubsub.Channel() {
			select {
			case events <- struct{}{}:
			default:
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return events, cancel, nil
}

// MemoryBus is a single-process Bus used in tests and dev mode.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[chan struct{}]bool)}
}

func (b *MemoryBus) PublishInbox(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) SubscribeInbox(ctx context.Context, userID string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan struct{}]bool)
	}
	b.subs[userID][ch] = true
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
