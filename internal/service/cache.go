// Пакет service — бизнес-логика Catalog Module.
// ListingCache — in-memory кэш полных листингов хранилища (по категориям)
// с TTL, фоновым обновлением и административными операциями.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
	"github.com/bigkaa/edustore/catalog-module/internal/storclient"
)

// Prometheus-метрики кэша листингов.
var (
	listingCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_listing_cache_hits_total",
		Help: "Общее количество попаданий в кэш листингов.",
	})
	listingCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_listing_cache_misses_total",
		Help: "Общее количество промахов кэша листингов (включая просроченные снапшоты).",
	})
	listingRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_listing_refresh_total",
		Help: "Количество обновлений листинга по результату (ok, error).",
	}, []string{"mode", "result"})
	listingFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cm_listing_fetch_duration_seconds",
		Help:    "Длительность полного обхода листинга хранилища.",
		Buckets: prometheus.DefBuckets,
	})
)

// Lister — источник полного листинга категории (Storage API).
type Lister interface {
	ListFiles(ctx context.Context, category string) ([]model.ObjectRecord, error)
}

// cacheEntry — запись таблицы кэша: текущий снапшот категории
// и флаг запущенного фонового обновления.
type cacheEntry struct {
	snap       *model.ListingSnapshot
	refreshing atomic.Bool
}

// ListingCache — кэш полных листингов хранилища, по одному снапшоту
// на категорию. Snapshot неизменяем: обновление подменяет его целиком.
//
// Попадание обслуживается под read-lock без I/O. Промах или истёкший TTL
// ведут к синхронной загрузке ВНЕ блокировок: сетевой запрос никогда
// не держит таблицу. Когда возраст снапшота превышает долю TTL
// (refreshThreshold), GetAll немедленно возвращает текущий снапшот
// и запускает фоновое обновление — не более одного на категорию.
type ListingCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	fetcher          Lister
	ttl              time.Duration
	refreshThreshold float64
	fetchTimeout     time.Duration
	logger           *slog.Logger
}

// NewListingCache создаёт пустой кэш листингов.
// ttl — срок жизни снапшота; refreshThreshold — доля TTL (0..1), после
// которой запускается фоновое обновление; fetchTimeout ограничивает
// полный обход листинга, в том числе в фоновых обновлениях.
func NewListingCache(fetcher Lister, ttl time.Duration, refreshThreshold float64, fetchTimeout time.Duration, logger *slog.Logger) *ListingCache {
	return &ListingCache{
		entries:          make(map[string]*cacheEntry),
		fetcher:          fetcher,
		ttl:              ttl,
		refreshThreshold: refreshThreshold,
		fetchTimeout:     fetchTimeout,
		logger:           logger.With(slog.String("component", "listing_cache")),
	}
}

// GetAll возвращает снапшот листинга категории.
// Непросроченный снапшот возвращается немедленно; промах и истёкший TTL
// ведут к синхронной загрузке из хранилища. Ошибка загрузки не трогает
// прежнее состояние таблицы: просроченная запись остаётся для повторной
// попытки, отравление таблицы ошибочным снапшотом исключено.
func (c *ListingCache) GetAll(ctx context.Context, category string) (*model.ListingSnapshot, error) {
	now := time.Now()

	c.mu.RLock()
	e := c.entries[category]
	var snap *model.ListingSnapshot
	if e != nil {
		snap = e.snap
	}
	c.mu.RUnlock()

	if snap != nil && !snap.Expired(now) {
		listingCacheHitsTotal.Inc()
		if snap.Age(now) > c.refreshAfter() {
			c.maybeSpawnRefresh(e, category)
		}
		return snap, nil
	}

	listingCacheMissesTotal.Inc()
	return c.fetchAndInstall(ctx, category)
}

// refreshAfter возвращает возраст снапшота, после которого пора
// запускать фоновое обновление.
func (c *ListingCache) refreshAfter() time.Duration {
	return time.Duration(float64(c.ttl) * c.refreshThreshold)
}

// fetchAndInstall синхронно загружает листинг и устанавливает снапшот.
// Загрузка выполняется вне блокировок таблицы.
func (c *ListingCache) fetchAndInstall(ctx context.Context, category string) (*model.ListingSnapshot, error) {
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	start := time.Now()
	records, err := c.fetcher.ListFiles(fctx, category)
	listingFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		listingRefreshTotal.WithLabelValues("sync", "error").Inc()
		return nil, wrapFetchError(category, err)
	}
	listingRefreshTotal.WithLabelValues("sync", "ok").Inc()

	snap := &model.ListingSnapshot{
		Category:  category,
		Records:   records,
		CreatedAt: time.Now(),
		TTL:       c.ttl,
	}
	c.install(category, snap)
	return snap, nil
}

// install помещает снапшот в таблицу. Последняя завершившаяся установка
// для категории побеждает.
func (c *ListingCache) install(category string, snap *model.ListingSnapshot) {
	c.mu.Lock()
	e, ok := c.entries[category]
	if !ok {
		e = &cacheEntry{}
		c.entries[category] = e
	}
	e.snap = snap
	c.mu.Unlock()
}

// maybeSpawnRefresh запускает фоновое обновление категории, если оно
// ещё не запущено. Обновление не блокирует вызвавший запрос, его ошибка
// никому не возвращается.
func (c *ListingCache) maybeSpawnRefresh(e *cacheEntry, category string) {
	if !e.refreshing.CompareAndSwap(false, true) {
		return
	}
	go c.backgroundRefresh(e, category)
}

// backgroundRefresh выполняет фоновое обновление снапшота категории.
// Контекст независим от запроса-триггера, но ограничен fetchTimeout.
// Результат устанавливается только если запись не была инвалидирована:
// очистка таблицы во время обновления не должна воскреснуть.
func (c *ListingCache) backgroundRefresh(e *cacheEntry, category string) {
	defer e.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	start := time.Now()
	records, err := c.fetcher.ListFiles(ctx, category)
	listingFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		listingRefreshTotal.WithLabelValues("background", "error").Inc()
		c.logger.Warn("фоновое обновление листинга не удалось, продолжаем отдавать прежний снапшот",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return
	}

	snap := &model.ListingSnapshot{
		Category:  category,
		Records:   records,
		CreatedAt: time.Now(),
		TTL:       c.ttl,
	}

	c.mu.Lock()
	cur, ok := c.entries[category]
	if ok && cur == e {
		cur.snap = snap
	}
	c.mu.Unlock()

	listingRefreshTotal.WithLabelValues("background", "ok").Inc()
	c.logger.Debug("фоновое обновление листинга завершено",
		slog.String("category", category),
		slog.Int("records", len(records)),
		slog.Duration("took", time.Since(start)),
	)
}

// wrapFetchError классифицирует ошибку загрузки листинга.
func wrapFetchError(category string, err error) error {
	sentinel := ErrUpstreamUnavailable
	if errors.Is(err, storclient.ErrBadResponse) {
		sentinel = ErrUpstreamParse
	}
	return fmt.Errorf("листинг категории %q: %v: %w", category, err, sentinel)
}

// --- Административные операции ---

// InvalidateAll очищает таблицу целиком. Следующий GetAll любой категории
// загрузит листинг заново. Идемпотентна.
func (c *ListingCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	c.logger.Info("кэш листингов очищен")
}

// Invalidate сбрасывает кэш после мутации по указанному пути.
// Один плоский листинг питает несколько производных представлений,
// поэтому частичная инвалидация по под-пути не выводима без повторной
// загрузки — таблица очищается целиком.
func (c *ListingCache) Invalidate(pathHint string) {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	c.logger.Info("кэш листингов очищен после мутации",
		slog.String("path", pathHint),
	)
}

// SweepExpired удаляет просроченные записи и возвращает их количество.
// Нужна только для возврата памяти: GetAll и так проверяет срок жизни
// при каждом чтении. Идемпотентна.
func (c *ListingCache) SweepExpired() int {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for category, e := range c.entries {
		if e.snap != nil && e.snap.Expired(now) {
			delete(c.entries, category)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("просроченные снапшоты удалены", slog.Int("removed", removed))
	}
	return removed
}

// Stats возвращает количество записей и количество просроченных.
// Значения вычисляются в момент вызова, инкрементально не поддерживаются.
func (c *ListingCache) Stats() (total, expired int) {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	total = len(c.entries)
	for _, e := range c.entries {
		if e.snap != nil && e.snap.Expired(now) {
			expired++
		}
	}
	return total, expired
}
