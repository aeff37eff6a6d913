// sweeper.go — сервис периодической уборки просроченных записей кэша листингов.
//
// CacheSweeper запускает фоновую горутину с ticker (CM_CACHE_SWEEP_INTERVAL),
// которая удаляет из ListingCache просроченные снапшоты. Уборка только
// освобождает память: на корректность чтений она не влияет, просроченность
// и так проверяется при каждом обращении.
package service

import (
	"context"
	"log/slog"
	"time"
)

// CacheSweeper — фоновый сервис уборки кэша листингов.
type CacheSweeper struct {
	cache    *ListingCache
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewCacheSweeper создаёт сервис уборки кэша.
func NewCacheSweeper(cache *ListingCache, interval time.Duration, logger *slog.Logger) *CacheSweeper {
	return &CacheSweeper{
		cache:    cache,
		interval: interval,
		logger:   logger.With(slog.String("component", "cache_sweeper")),
	}
}

// Start запускает фоновую горутину с периодической уборкой.
// Вызывается один раз при старте приложения.
func (s *CacheSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая уборка кэша листингов запущена",
			slog.String("interval", s.interval.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая уборка кэша листингов остановлена")
				return
			case <-ticker.C:
				removed := s.cache.SweepExpired()
				if removed > 0 {
					s.logger.Info("Просроченные записи кэша удалены",
						slog.Int("removed", removed),
					)
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *CacheSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}
