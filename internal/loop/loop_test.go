package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(16)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func TestDo_ReturnsResult(t *testing.T) {
	l := startLoop(t)
	want := errors.New("boom")
	if err := l.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("Do err = %v", err)
	}
	n := 0
	for i := 0; i < 10; i++ {
		_ = l.Do(context.Background(), func() error { n++; return nil })
	}
	if n != 10 {
		t.Fatalf("n = %d", n)
	}
}

func TestDo_SurvivesPanic(t *testing.T) {
	l := startLoop(t)
	l.Post(func() { panic("bad task") })
	if err := l.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("loop died after panic: %v", err)
	}
}

func TestDo_AfterStop(t *testing.T) {
	l := New(1)
	l.Stop()
	if err := l.Do(context.Background(), func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestAfterFunc_StopPreventsRun(t *testing.T) {
	l := startLoop(t)
	var ran atomic.Int32
	tm := l.AfterFunc(20*time.Millisecond, func() { ran.Add(1) })
	if !tm.Stop() {
		t.Fatalf("first Stop should report true")
	}
	if tm.Stop() {
		t.Fatalf("second Stop should report false")
	}
	time.Sleep(60 * time.Millisecond)
	_ = l.Do(context.Background(), func() error { return nil })
	if ran.Load() != 0 {
		t.Fatalf("stopped timer ran")
	}

	done := make(chan struct{})
	l.AfterFunc(5*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timer never fired")
	}
}

func TestEvery_TicksUntilStopped(t *testing.T) {
	l := startLoop(t)
	var n atomic.Int32
	tm := l.Every(5*time.Millisecond, func() { n.Add(1) })
	deadline := time.Now().Add(time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	tm.Stop()
	_ = l.Do(context.Background(), func() error { return nil })
	seen := n.Load()
	if seen < 3 {
		t.Fatalf("ticks = %d", seen)
	}
	time.Sleep(30 * time.Millisecond)
	_ = l.Do(context.Background(), func() error { return nil })
	if n.Load() != seen {
		t.Fatalf("ticked after Stop: %d -> %d", seen, n.Load())
	}
}

func TestManual_AdvanceFiresInOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	m.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	stopped := m.AfterFunc(2*time.Second, func() { order = append(order, "x") })
	m.Every(2*time.Second, func() { order = append(order, "tick") })
	stopped.Stop()

	m.Advance(4 * time.Second)
	got := ""
	for _, s := range order {
		got += s + " "
	}
	if got != "a tick c tick " {
		t.Fatalf("order = %q", got)
	}
	if m.Pending() != 1 {
		t.Fatalf("pending = %d, want the ticker", m.Pending())
	}
	if !m.Now().Equal(time.Unix(4, 0)) {
		t.Fatalf("now = %v", m.Now())
	}
}
