package hostlink

import (
	"context"
	"sync"
	"time"

	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/obslog"
	"github.com/park285/chesscraft-go/internal/panel"
	"go.uber.org/zap"
)

// Sender is the part of Client the outbox drives.
type Sender interface {
	SendMessage(ctx context.Context, player, text string) error
	Broadcast(ctx context.Context, text string) error
	PaintSigns(ctx context.Context, world string, signs []panel.Sign) error
	PaintPosition(ctx context.Context, world, board, fen string) error
	Teleport(ctx context.Context, player, world string, pos board.Point) error
}

type job struct {
	kind string
	run  func(ctx context.Context) error
}

// Outbox queues host calls made from the game loop and sends them in order
// on its own goroutine. It implements chessgame.Notifier and panel.Painter.
// When the queue is full new calls are dropped and logged.
type Outbox struct {
	sender  Sender
	timeout time.Duration

	// OnDrop, when set, is told about every dropped call.
	OnDrop func(kind string)
	// OnError, when set, is told about every failed call.
	OnError func(kind string, err error)

	mu     sync.Mutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

func NewOutbox(sender Sender, size int, timeout time.Duration) *Outbox {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := &Outbox{
		sender:  sender,
		timeout: timeout,
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *Outbox) run() {
	defer close(o.done)
	for j := range o.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		err := j.run(ctx)
		cancel()
		if err != nil {
			obslog.L().Warn("host_send_error", zap.String("kind", j.kind), zap.Error(err))
			if o.OnError != nil {
				o.OnError(j.kind, err)
			}
		}
	}
}

func (o *Outbox) enqueue(kind string, fn func(ctx context.Context) error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.jobs <- job{kind: kind, run: fn}:
	default:
		obslog.L().Warn("host_outbox_full", zap.String("kind", kind))
		if o.OnDrop != nil {
			o.OnDrop(kind)
		}
	}
}

func (o *Outbox) Alert(player, message string) {
	o.enqueue("message", func(ctx context.Context) error { return o.sender.SendMessage(ctx, player, message) })
}

func (o *Outbox) Broadcast(message string) {
	o.enqueue("broadcast", func(ctx context.Context) error { return o.sender.Broadcast(ctx, message) })
}

func (o *Outbox) PaintSigns(world string, signs []panel.Sign) {
	o.enqueue("signs", func(ctx context.Context) error { return o.sender.PaintSigns(ctx, world, signs) })
}

func (o *Outbox) PaintPosition(world, board, fen string) {
	o.enqueue("position", func(ctx context.Context) error { return o.sender.PaintPosition(ctx, world, board, fen) })
}

func (o *Outbox) Teleport(player, world string, pos board.Point) {
	o.enqueue("teleport", func(ctx context.Context) error { return o.sender.Teleport(ctx, player, world, pos) })
}

// Close stops accepting calls and waits for queued ones to be sent.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.jobs)
	}
	o.mu.Unlock()
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
