package locking

import (
	"context"
	"errors"
	"sync"
	"time"
)

type localEntry struct {
	token chan struct{}
	refs  int
}

// Local is an in-process keyed mutex. Entries are dropped once no goroutine
// holds or waits for them.
type Local struct {
	wait    time.Duration
	mu      sync.Mutex
	entries map[string]*localEntry
}

// NewLocal returns a Local that waits at most wait for a busy key. A
// non-positive wait blocks until the caller's context ends.
func NewLocal(wait time.Duration) *Local {
	return &Local{wait: wait, entries: map[string]*localEntry{}}
}

// Acquire blocks until key is free, ctx ends or the wait expires.
func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{token: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case entry.token <- struct{}{}:
	case <-waitCtx.Done():
		l.unref(key, entry)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrBusy
		}
		return nil, waitCtx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.token
			l.unref(key, entry)
		})
	}, nil
}

func (l *Local) unref(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 && l.entries[key] == entry {
		delete(l.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
