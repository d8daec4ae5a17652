package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalLockerSerialisesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Obtain(ctx, []string{"stock:b:1:1"}, time.Second)
			if err != nil {
				t.Errorf("Obtain: %v", err)
				return
			}
			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("%d holders at once, want 1", maxInside)
	}
	if len(locker.slots) != 0 {
		t.Fatalf("%d lock slots leaked", len(locker.slots))
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()

	release, err := locker.Obtain(context.Background(), []string{"party:b:Customer:1"}, time.Second)
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Obtain(ctx, []string{"party:b:Customer:1"}, time.Second)
	if !errors.Is(err, ErrorLockNotObtained) {
		t.Fatalf("expected ErrorLockNotObtained, got %v", err)
	}
}

func TestLocalLockerOverlappingKeySetsDoNotDeadlock(t *testing.T) {
	locker := NewLocalLocker()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		keys := []string{"a", "b", "c"}
		if i%2 == 0 {
			keys = []string{"c", "b", "a", "a"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Obtain(ctx, keys, time.Second)
			if err != nil {
				t.Errorf("Obtain(%v): %v", keys, err)
				return
			}
			release()
		}()
	}
	wg.Wait()
}

func TestRedisLockerRequiresClient(t *testing.T) {
	var locker *RedisLocker
	if _, err := locker.Obtain(context.Background(), []string{"k"}, time.Second); err == nil {
		t.Fatalf("expected an error from an uninitialised redis locker")
	}
}
