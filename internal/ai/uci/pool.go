package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
)

var errBucketAtCapacity = errors.New("session bucket at capacity")

// Pool keeps idle engine sessions per option set so levels with different
// skill settings never share a process.
type Pool struct {
	binaryPath string
	capacity   int

	mu       sync.Mutex
	buckets  map[string]*bucket
	sessions map[*Session]*bucket
	closed   bool
}

func NewPool(binaryPath string, perOptionCapacity int) (*Pool, error) {
	if binaryPath == "" {
		return nil, errors.New("engine binary path required")
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	if perOptionCapacity <= 0 {
		perOptionCapacity = defaultCapacity()
	}
	return &Pool{
		binaryPath: binaryPath,
		capacity:   perOptionCapacity,
		buckets:    make(map[string]*bucket),
		sessions:   make(map[*Session]*bucket),
	}, nil
}

// Acquire hands out a ready session for opt, starting one when the bucket
// has room and waiting for a release otherwise.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	b, err := p.bucketFor(opt)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case s := <-b.idle:
			if p.ready(ctx, s, b) {
				return s, nil
			}
			continue
		default:
		}

		s, err := b.create(ctx, p.binaryPath)
		if err == nil {
			p.track(s, b)
			return s, nil
		}
		if !errors.Is(err, errBucketAtCapacity) {
			return nil, err
		}

		select {
		case s := <-b.idle:
			if p.ready(ctx, s, b) {
				return s, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) ready(ctx context.Context, s *Session, b *bucket) bool {
	if s == nil {
		return false
	}
	if err := s.EnsureReady(ctx); err != nil {
		b.discard(s)
		return false
	}
	p.track(s, b)
	return true
}

// Release returns s to its bucket. A session that failed is closed instead.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	b, ok := p.sessions[s]
	delete(p.sessions, s)
	closed := p.closed
	p.mu.Unlock()
	if !ok {
		_ = s.Close()
		return
	}
	if err != nil || closed || !b.put(s) {
		b.discard(s)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	buckets := make([]*bucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.mu.Unlock()

	var errs []error
	for _, b := range buckets {
		errs = append(errs, b.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) track(s *Session, b *bucket) {
	p.mu.Lock()
	p.sessions[s] = b
	p.mu.Unlock()
}

func (p *Pool) bucketFor(opt Options) (*bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("engine pool closed")
	}
	key := optionsKey(opt)
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{opt: opt, capacity: p.capacity, idle: make(chan *Session, p.capacity)}
		p.buckets[key] = b
	}
	return b, nil
}

type bucket struct {
	opt      Options
	capacity int

	mu    sync.Mutex
	total int
	idle  chan *Session
}

func (b *bucket) create(ctx context.Context, binaryPath string) (*Session, error) {
	b.mu.Lock()
	if b.total >= b.capacity {
		b.mu.Unlock()
		return nil, errBucketAtCapacity
	}
	b.total++
	b.mu.Unlock()

	s, err := NewSession(ctx, binaryPath, b.opt)
	if err != nil {
		b.decrement()
		return nil, err
	}
	return s, nil
}

func (b *bucket) put(s *Session) bool {
	select {
	case b.idle <- s:
		return true
	default:
		return false
	}
}

func (b *bucket) discard(s *Session) {
	_ = s.Close()
	b.decrement()
}

func (b *bucket) drain() []error {
	var errs []error
	for {
		select {
		case s := <-b.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			b.decrement()
		default:
			return errs
		}
	}
}

func (b *bucket) decrement() {
	b.mu.Lock()
	if b.total > 0 {
		b.total--
	}
	b.mu.Unlock()
}

func optionsKey(opt Options) string {
	return fmt.Sprintf("thr=%d|skill=%d|hash=%d|elo=%d", opt.Threads, opt.SkillLevel, opt.HashMB, opt.Elo)
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
