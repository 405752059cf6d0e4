package locking_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tmsbridge/internal/locking"
	"tmsbridge/internal/services"
)

func TestLocalSerializesSameKey(t *testing.T) {
	locker := locking.NewLocal(time.Second)
	var (
		active  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "unit:node:1")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()
			now := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxSeen)
				if now <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d concurrent holders", maxSeen)
	}
	if locker.Len() != 0 {
		t.Fatalf("expected entries to be dropped, got %d", locker.Len())
	}
}

func TestLocalIndependentKeys(t *testing.T) {
	locker := locking.NewLocal(50 * time.Millisecond)
	releaseA, err := locker.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer releaseA()
	releaseB, err := locker.Acquire(context.Background(), "b")
	if err != nil {
		t.Fatalf("Acquire b should not wait for a: %v", err)
	}
	releaseB()
}

func TestLocalBusyAfterWait(t *testing.T) {
	locker := locking.NewLocal(20 * time.Millisecond)
	release, err := locker.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_, err = locker.Acquire(context.Background(), "k")
	if !errors.Is(err, locking.ErrBusy) || !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	release()
	release()

	again, err := locker.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
}

func TestLocalHonoursContext(t *testing.T) {
	locker := locking.NewLocal(0)
	release, err := locker.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locker.Acquire(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
