package subscription

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable clock for registry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry() (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	r := NewRegistryWithConfig(Config{TTL: DefaultTTL, Now: clock.Now})
	return r, clock
}

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistryWithConfig(Config{})
	if r.TTL() != 24*time.Hour {
		t.Errorf("TTL() = %v, want 24h", r.TTL())
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistrySubscribe(t *testing.T) {
	r, clock := newTestRegistry()

	if added := r.Subscribe("http://10.0.0.2:39500/notify"); !added {
		t.Error("first Subscribe should report added")
	}

	exp, ok := r.Expiration("http://10.0.0.2:39500/notify")
	if !ok {
		t.Fatal("Expiration() not found")
	}
	if want := clock.Now().Add(24 * time.Hour); !exp.Equal(want) {
		t.Errorf("Expiration() = %v, want %v", exp, want)
	}
}

func TestRegistryResubscribeOverwrites(t *testing.T) {
	r, clock := newTestRegistry()
	addr := "http://10.0.0.2:39500/notify"

	r.Subscribe(addr)
	clock.Advance(time.Hour)

	if added := r.Subscribe(addr); added {
		t.Error("second Subscribe should report refreshed, not added")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	exp, _ := r.Expiration(addr)
	if want := clock.Now().Add(DefaultTTL); !exp.Equal(want) {
		t.Errorf("Expiration() = %v, want %v (later call + TTL)", exp, want)
	}
}

func TestRegistryActiveSubscribersBoundary(t *testing.T) {
	r, clock := newTestRegistry()
	start := clock.Now()

	r.Subscribe("http://a/")
	clock.Advance(time.Hour)
	r.Subscribe("http://b/")

	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{"both active", start.Add(time.Hour), []string{"http://a/", "http://b/"}},
		{"just before a expires", start.Add(DefaultTTL - time.Nanosecond), []string{"http://a/", "http://b/"}},
		{"a expiration equals now", start.Add(DefaultTTL), []string{"http://b/"}},
		{"b expiration equals now", start.Add(time.Hour + DefaultTTL), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ActiveSubscribers(tt.now)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("ActiveSubscribers() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistryExpiredEntriesRetained(t *testing.T) {
	r, clock := newTestRegistry()
	r.Subscribe("http://a/")

	later := clock.Now().Add(48 * time.Hour)
	if got := r.ActiveSubscribers(later); len(got) != 0 {
		t.Errorf("ActiveSubscribers() = %v, want none", got)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (expired entry retained)", r.Len())
	}

	clock.Advance(48 * time.Hour)
	if added := r.Subscribe("http://a/"); added {
		t.Error("re-subscribing an expired entry should report refreshed")
	}
	if got := r.ActiveSubscribers(clock.Now()); len(got) != 1 {
		t.Errorf("ActiveSubscribers() = %v, want [http://a/]", got)
	}
}

func TestRegistrySnapshot(t *testing.T) {
	r, clock := newTestRegistry()
	r.Subscribe("http://c/")
	r.Subscribe("http://a/")

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
	if snap[0].Address != "http://a/" || snap[1].Address != "http://c/" {
		t.Errorf("Snapshot() not sorted: %v", snap)
	}
	if !snap[0].Active(clock.Now()) {
		t.Error("fresh subscription should be active")
	}
}

func TestRegistryConcurrentSubscribe(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Subscribe(fmt.Sprintf("http://hub/%d", i%10))
			_ = r.ActiveSubscribers(time.Now())
		}(i)
	}
	wg.Wait()

	if r.Len() != 10 {
		t.Errorf("Len() = %d, want 10", r.Len())
	}
}
