package admin

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalBus_PublishSubscribe(t *testing.T) {
	bus := NewLocalBus()
	var got []Event
	unsub := bus.Subscribe(RefreshEvent, func(ev Event) { got = append(got, ev) })
	bus.Subscribe("other", func(Event) { t.Error("wrong event delivered") })

	if err := bus.Publish(context.Background(), Event{Name: RefreshEvent, Resource: "members"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 || got[0].Resource != "members" || got[0].ID == "" {
		t.Fatalf("delivered %+v", got)
	}

	unsub()
	unsub()
	if n := bus.Subscribers(RefreshEvent); n != 0 {
		t.Fatalf("Subscribers() = %d after unsubscribe", n)
	}

	if err := bus.Publish(context.Background(), NewEvent(RefreshEvent, "")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unsubscribed handler still called: %d events", len(got))
	}
}

func TestLocalBus_UnsubscribeInsideHandler(t *testing.T) {
	bus := NewLocalBus()
	calls := 0
	var unsub func()
	unsub = bus.Subscribe(RefreshEvent, func(Event) {
		calls++
		unsub()
	})

	ctx := context.Background()
	for range 2 {
		if err := bus.Publish(ctx, NewEvent(RefreshEvent, "")); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func newRedisBus(t *testing.T) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus, err := NewRedisBus(context.Background(), client, "gymadmin:events", nil)
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus, mr
}

func TestRedisBus_RoundTrip(t *testing.T) {
	bus, _ := newRedisBus(t)
	got := make(chan Event, 1)
	bus.Subscribe(RefreshEvent, func(ev Event) { got <- ev })

	sent := NewEvent(RefreshEvent, "coaches")
	if err := bus.Publish(context.Background(), sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-got:
		if ev.ID != sent.ID || ev.Resource != "coaches" || ev.Origin == "" {
			t.Fatalf("received %+v, sent %+v", ev, sent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestRedisBus_ReachesOtherInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	newBus := func() *RedisBus {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		b, err := NewRedisBus(ctx, client, "gymadmin:events", nil)
		if err != nil {
			t.Fatalf("NewRedisBus: %v", err)
		}
		t.Cleanup(func() { _ = b.Close() })
		return b
	}
	a, b := newBus(), newBus()

	got := make(chan Event, 1)
	b.Subscribe(RefreshEvent, func(ev Event) { got <- ev })
	if err := a.Publish(ctx, NewEvent(RefreshEvent, "meals")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Resource != "meals" {
			t.Fatalf("Resource = %q, want meals", ev.Resource)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered to the second instance")
	}
}

func TestRedisBus_Ping(t *testing.T) {
	bus, mr := newRedisBus(t)
	ctx := context.Background()
	if err := bus.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	mr.SetError("server down")
	if err := bus.Ping(ctx); err == nil {
		t.Fatal("Ping succeeded against a failing server")
	}
	mr.SetError("")
}

func TestRedisBus_SkipsMalformedMessages(t *testing.T) {
	bus, mr := newRedisBus(t)
	got := make(chan Event, 2)
	bus.Subscribe(RefreshEvent, func(ev Event) { got <- ev })

	mr.Publish("gymadmin:events", "{not json")
	if err := bus.Publish(context.Background(), NewEvent(RefreshEvent, "blogs")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Resource != "blogs" {
			t.Fatalf("Resource = %q, want blogs", ev.Resource)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid event not delivered after a malformed one")
	}
}

func TestRedisBus_ClosedConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisBus(ctx, client, "gymadmin:events", nil); err == nil {
		t.Fatal("NewRedisBus succeeded without a server")
	}
}
