package testkit

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestProbe(t *testing.T) {
	p := NewProbe(t, 1)
	_ = p.Chan()
	p.Put(1)
	if got := p.Expect(50 * time.Millisecond); got.(int) != 1 {
		t.Fatalf("unexpected: %#v", got)
	}
	p.ExpectNoMessage(10 * time.Millisecond)
	NewProbe(t, 0).ExpectNoMessage(0)

	var failed int
	p.fail = func(string, ...any) { failed++ }
	if v := p.Expect(5 * time.Millisecond); v != nil || failed != 1 {
		t.Fatalf("expected timeout failure")
	}
	p.Put(2)
	if v := p.Expect(0); v.(int) != 2 {
		t.Fatalf("expected 2")
	}
	p.Put("x")
	p.ExpectNoMessage(5 * time.Millisecond)
	if failed != 2 {
		t.Fatalf("expected unexpected-message failure")
	}
}

func TestProbeDrain(t *testing.T) {
	p := NewProbe(t, 8)
	p.Put(1)
	p.Put(2)
	p.Put(3)
	got := p.Drain()
	if len(got) != 3 || got[0].(int) != 1 || got[2].(int) != 3 {
		t.Fatalf("drain: %#v", got)
	}
	if got := p.Drain(); len(got) != 0 {
		t.Fatalf("expected empty drain, got %#v", got)
	}
}

func TestFakeClock(t *testing.T) {
	c := NewFakeClock(time.Unix(0, 0))
	_ = c.Now()
	_ = NewFakeClock(time.Time{}).Now()
	ch := c.After(10 * time.Second)
	if c.Pending() != 1 {
		t.Fatalf("expected one pending timer")
	}
	c.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatalf("should not fire")
	default:
	}
	c.Advance(2 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatalf("should fire")
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers")
	}
}

func TestFakeClockFiresInOrder(t *testing.T) {
	c := NewFakeClock(time.Unix(0, 0))
	late := c.After(2 * time.Second)
	early := c.After(1 * time.Second)
	c.Advance(3 * time.Second)
	et := <-early
	lt := <-late
	if et.After(lt) {
		t.Fatalf("fire times out of order: %v %v", et, lt)
	}
}

func TestChaos(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	c := Chaos{DropProbability: 1, MaxDelay: 0, Rand: r}
	called := false
	if ok := c.Apply(func() { called = true }); ok || called {
		t.Fatalf("expected drop")
	}
	c = Chaos{DropProbability: 0, MaxDelay: 50 * time.Microsecond, Rand: r}
	if ok := c.Apply(func() { called = true }); !ok || !called {
		t.Fatalf("expected call")
	}
	c = Chaos{DropProbability: 0, MaxDelay: 0, Rand: nil}
	if ok := c.Apply(func() {}); !ok {
		t.Fatalf("expected ok")
	}
}

func TestChaosApplyErr(t *testing.T) {
	boom := errors.New("boom")
	c := Chaos{Rand: rand.New(rand.NewSource(1))}
	ran, err := c.ApplyErr(func() error { return boom })
	if !ran || err != boom {
		t.Fatalf("apply err: ran=%v err=%v", ran, err)
	}
	c = Chaos{DropProbability: 1, Rand: rand.New(rand.NewSource(1))}
	ran, err = c.ApplyErr(func() error { return boom })
	if ran || err != nil {
		t.Fatalf("expected dropped: ran=%v err=%v", ran, err)
	}
}
