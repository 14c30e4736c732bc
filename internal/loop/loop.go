package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

// Timer is a cancellable delayed callback. A stopped timer never runs.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks on the single goroutine that owns game state.
type Scheduler interface {
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) Timer
}

var ErrStopped = errors.New("loop stopped")

// Loop serialises all game mutation onto one goroutine. Transport code posts
// closures; timers post their callbacks when due.
type Loop struct {
	queue    chan func()
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		queue:  make(chan func(), buffer),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run processes posted work until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.stopCh:
			return nil
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("loop_task_panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

// Post enqueues fn. Work posted after Stop is dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case l.queue <- fn:
	case <-l.stopCh:
	}
}

// Do runs fn on the loop and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	posted := func() { res <- fn() }
	select {
	case l.queue <- posted:
	case <-l.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-l.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
	quit    chan struct{}
	once    sync.Once
}

func (lt *loopTimer) Stop() bool {
	first := !lt.stopped.Swap(true)
	if lt.t != nil {
		lt.t.Stop()
	}
	if lt.quit != nil {
		lt.once.Do(func() { close(lt.quit) })
	}
	return first
}

// AfterFunc posts fn into the loop after d unless the timer is stopped first.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.stopped.Swap(true) {
				return
			}
			fn()
		})
	})
	return lt
}

// Every posts fn into the loop every d until stopped.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	lt := &loopTimer{quit: make(chan struct{})}
	if d <= 0 {
		d = time.Second
	}
	go func() {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-lt.quit:
				return
			case <-l.stopCh:
				return
			case <-t.C:
				l.Post(func() {
					if lt.stopped.Load() {
						return
					}
					fn()
				})
			}
		}
	}()
	return lt
}
