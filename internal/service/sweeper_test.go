package service

import (
	"context"
	"testing"
	"time"
)

func TestCacheSweeper_RemovesExpiredEntries(t *testing.T) {
	fetcher := staticLister("a.png")
	cache := newTestCache(t, fetcher, 30*time.Millisecond, 0.99)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	sweeper := NewCacheSweeper(cache, 20*time.Millisecond, testLogger())
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	waitFor(t, 2*time.Second, func() bool {
		total, _ := cache.Stats()
		return total == 0
	}, "уборка не удалила просроченную запись")
}

func TestCacheSweeper_StopTerminates(t *testing.T) {
	fetcher := staticLister("a.png")
	cache := newTestCache(t, fetcher, time.Minute, 0.8)

	sweeper := NewCacheSweeper(cache, 10*time.Millisecond, testLogger())
	sweeper.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop не завершился")
	}
}
