package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshEvent asks every container of a resource to refetch.
const RefreshEvent = "refreshTableData"

// Event is a broadcast signal. An empty Resource addresses every resource.
type Event struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Resource string `json:"resource,omitempty"`
	Origin   string `json:"origin,omitempty"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(name, resource string) Event {
	return Event{ID: uuid.NewString(), Name: name, Resource: resource}
}

// EventBus distributes events to subscribers. Subscribe returns the function
// that removes the subscription.
type EventBus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(name string, fn func(Event)) (unsubscribe func())
}

// LocalBus delivers events in-process, synchronously.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[string]map[string]func(Event)
}

// NewLocalBus creates an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[string]func(Event))}
}

// Publish delivers ev to the current subscribers of ev.Name.
func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	b.dispatch(ev)
	return nil
}

// Subscribe registers fn for events named name.
func (b *LocalBus) Subscribe(name string, fn func(Event)) func() {
	id := uuid.NewString()
	b.mu.Lock()
	if b.subs[name] == nil {
		b.subs[name] = make(map[string]func(Event))
	}
	b.subs[name][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[name], id)
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
		})
	}
}

// Subscribers returns the number of subscriptions for name.
func (b *LocalBus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

func (b *LocalBus) dispatch(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[ev.Name]))
	for _, fn := range b.subs[ev.Name] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// RedisBus distributes events through a redis pub/sub channel so that every
// dashboard instance sees them. Delivery to local subscribers happens when
// the message comes back from redis, including for the publishing instance.
type RedisBus struct {
	client  redis.UniversalClient
	channel string
	origin  string
	local   *LocalBus
	pubsub  *redis.PubSub
	log     *slog.Logger
	done    chan struct{}
}

// NewRedisBus subscribes to channel and starts delivering its messages.
func NewRedisBus(ctx context.Context, client redis.UniversalClient, channel string, log *slog.Logger) (*RedisBus, error) {
	if log == nil {
		log = slog.Default()
	}
	ps := client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %q: %w", channel, err)
	}
	b := &RedisBus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   NewLocalBus(),
		pubsub:  ps,
		log:     log,
		done:    make(chan struct{}),
	}
	go b.run()
	return b, nil
}

// Publish sends ev to every instance.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Origin == "" {
		ev.Origin = b.origin
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe registers fn for events named name.
func (b *RedisBus) Subscribe(name string, fn func(Event)) func() {
	return b.local.Subscribe(name, fn)
}

// Ping checks that redis answers.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close stops the subscription and waits for the delivery loop to exit.
func (b *RedisBus) Close() error {
	err := b.pubsub.Close()
	<-b.done
	return err
}

func (b *RedisBus) run() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.log.Warn("dropping malformed event",
				slog.String("channel", msg.Channel),
				slog.Any("error", err),
			)
			continue
		}
		b.local.dispatch(ev)
	}
}
