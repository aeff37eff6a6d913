package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
	"github.com/bigkaa/edustore/catalog-module/internal/storclient"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockLister — управляемый источник листинга с подсчётом вызовов.
type mockLister struct {
	calls  atomic.Int32
	listFn func(ctx context.Context, category string) ([]model.ObjectRecord, error)
}

func (m *mockLister) ListFiles(ctx context.Context, category string) ([]model.ObjectRecord, error) {
	m.calls.Add(1)
	return m.listFn(ctx, category)
}

// recordsFor строит листинг из одних ключей.
func recordsFor(keys ...string) []model.ObjectRecord {
	records := make([]model.ObjectRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, model.ObjectRecord{Key: k})
	}
	return records
}

// staticLister возвращает фиксированный набор ключей.
func staticLister(keys ...string) *mockLister {
	return &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			return recordsFor(keys...), nil
		},
	}
}

// newTestCache создаёт кэш с заданным TTL и порогом фонового обновления.
func newTestCache(t *testing.T, fetcher Lister, ttl time.Duration, threshold float64) *ListingCache {
	t.Helper()
	return NewListingCache(fetcher, ttl, threshold, 5*time.Second, testLogger())
}

// waitFor ждёт выполнения условия с дедлайном.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("не дождались условия: %s", msg)
}

// TestSnapshotExpiry проверяет вычисление срока жизни на границах TTL.
func TestSnapshotExpiry(t *testing.T) {
	ttl := 10 * time.Minute
	now := time.Now()

	fresh := &model.ListingSnapshot{CreatedAt: now.Add(-ttl + time.Second), TTL: ttl}
	if fresh.Expired(now) {
		t.Error("снапшот моложе TTL считается просроченным")
	}

	stale := &model.ListingSnapshot{CreatedAt: now.Add(-ttl - time.Second), TTL: ttl}
	if !stale.Expired(now) {
		t.Error("снапшот старше TTL не считается просроченным")
	}
}

// TestListingCache_ColdMissFetchesOnce: холодный кэш выполняет ровно одну
// синхронную загрузку и возвращает её результат.
func TestListingCache_ColdMissFetchesOnce(t *testing.T) {
	fetcher := staticLister("G1/January/cover.png", "G1/January/book.mp4")
	cache := newTestCache(t, fetcher, time.Minute, 0.8)

	snap, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("загрузок: %d, ожидалась 1", got)
	}
	if len(snap.Records) != 2 {
		t.Errorf("записей: %d, ожидалось 2", len(snap.Records))
	}
	if snap.Category != "assets" {
		t.Errorf("Category = %q, ожидался assets", snap.Category)
	}
	if snap.TTL != time.Minute {
		t.Errorf("TTL = %v, ожидался 1m", snap.TTL)
	}
	if snap.CreatedAt.IsZero() {
		t.Error("CreatedAt не заполнен")
	}
}

// TestListingCache_WarmHitAvoidsFetch: повторный GetAll по тёплому кэшу
// не обращается к хранилищу.
func TestListingCache_WarmHitAvoidsFetch(t *testing.T) {
	fetcher := staticLister("a.png")
	cache := newTestCache(t, fetcher, time.Minute, 0.8)

	first, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}
	second, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("повторный GetAll вернул ошибку: %v", err)
	}

	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("загрузок: %d, ожидалась 1 (hit не должен обращаться к хранилищу)", got)
	}
	if first != second {
		t.Error("hit вернул другой снапшот")
	}
}

// TestListingCache_ExpiredEntryRefetches: просроченный снапшот ведёт
// к повторной синхронной загрузке.
func TestListingCache_ExpiredEntryRefetches(t *testing.T) {
	version := atomic.Int32{}
	fetcher := &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			return recordsFor(fmt.Sprintf("v%d.png", version.Add(1))), nil
		},
	}
	cache := newTestCache(t, fetcher, 40*time.Millisecond, 0.99)

	first, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	second, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll после истечения TTL вернул ошибку: %v", err)
	}

	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("загрузок: %d, ожидалось 2", got)
	}
	if first.Records[0].Key == second.Records[0].Key {
		t.Error("после истечения TTL вернулся прежний листинг")
	}
}

// TestListingCache_BackgroundPreRefresh: пересечение порога возвращает
// старый снапшот немедленно и обновляет его в фоне.
func TestListingCache_BackgroundPreRefresh(t *testing.T) {
	version := atomic.Int32{}
	fetcher := &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			return recordsFor(fmt.Sprintf("v%d.png", version.Add(1))), nil
		},
	}
	// Порог 25% от 400ms = 100ms: к моменту второго GetAll снапшот ещё
	// действителен, но уже «стареет».
	cache := newTestCache(t, fetcher, 400*time.Millisecond, 0.25)

	first, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	second, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll за порогом вернул ошибку: %v", err)
	}
	if second != first {
		t.Error("GetAll за порогом должен немедленно вернуть прежний снапшот")
	}

	// Фоновое обновление завершается без участия вызывающего.
	waitFor(t, 2*time.Second, func() bool { return fetcher.calls.Load() == 2 },
		"фоновая загрузка не запустилась")
	waitFor(t, 2*time.Second, func() bool {
		snap, err := cache.GetAll(context.Background(), "assets")
		return err == nil && snap.Records[0].Key == "v2.png"
	}, "новый снапшот не установлен после фонового обновления")

	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("загрузок: %d, ожидалось 2", got)
	}
}

// TestListingCache_SingleBackgroundRefreshInFlight: конкурентные чтения
// за порогом запускают не более одного фонового обновления.
func TestListingCache_SingleBackgroundRefreshInFlight(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockLister{}
	fetcher.listFn = func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
		if fetcher.calls.Load() > 1 {
			// Все фоновые обновления ждут освобождения.
			<-release
		}
		return recordsFor("a.png"), nil
	}
	cache := newTestCache(t, fetcher, 400*time.Millisecond, 0.25)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
				t.Errorf("конкурентный GetAll вернул ошибку: %v", err)
			}
		}()
	}
	wg.Wait()
	close(release)

	waitFor(t, 2*time.Second, func() bool { return fetcher.calls.Load() >= 2 },
		"фоновая загрузка не запустилась")
	// Даём потенциальным лишним горутинам шанс проявиться.
	time.Sleep(50 * time.Millisecond)

	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("загрузок: %d, ожидалось 2 (одна синхронная + одна фоновая)", got)
	}
}

// TestListingCache_BackgroundFailureKeepsSnapshot: ошибка фонового
// обновления не видна читателям, прежний снапшот продолжает отдаваться.
func TestListingCache_BackgroundFailureKeepsSnapshot(t *testing.T) {
	fetcher := &mockLister{}
	fetcher.listFn = func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
		if fetcher.calls.Load() > 1 {
			return nil, errors.New("хранилище прилегло")
		}
		return recordsFor("stable.png"), nil
	}
	cache := newTestCache(t, fetcher, 400*time.Millisecond, 0.25)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	snap, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll за порогом вернул ошибку: %v", err)
	}
	if snap.Records[0].Key != "stable.png" {
		t.Errorf("ключ = %q, ожидался stable.png", snap.Records[0].Key)
	}

	waitFor(t, 2*time.Second, func() bool { return fetcher.calls.Load() >= 2 },
		"фоновая загрузка не запустилась")

	// Снапшот ещё действителен и отдаётся несмотря на сбой обновления.
	snap, err = cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll после сбоя фонового обновления вернул ошибку: %v", err)
	}
	if snap.Records[0].Key != "stable.png" {
		t.Errorf("ключ = %q, ожидался stable.png", snap.Records[0].Key)
	}
}

// TestListingCache_InvalidateAllForcesRefetch: после полной инвалидации
// следующий GetAll загружает листинг заново даже при живом TTL.
func TestListingCache_InvalidateAllForcesRefetch(t *testing.T) {
	fetcher := staticLister("a.png")
	cache := newTestCache(t, fetcher, time.Hour, 0.8)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	cache.InvalidateAll()

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll после InvalidateAll вернул ошибку: %v", err)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("загрузок: %d, ожидалось 2", got)
	}

	// Идемпотентность: повторная инвалидация пустой таблицы безвредна.
	cache.InvalidateAll()
	cache.InvalidateAll()
}

// TestListingCache_InvalidateClearsWholeTable: инвалидация по пути
// очищает таблицу целиком, включая другие категории.
func TestListingCache_InvalidateClearsWholeTable(t *testing.T) {
	fetcher := staticLister("a.png")
	cache := newTestCache(t, fetcher, time.Hour, 0.8)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}
	if _, err := cache.GetAll(context.Background(), "media"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	cache.Invalidate("G1/January/")

	total, _ := cache.Stats()
	if total != 0 {
		t.Errorf("записей после Invalidate: %d, ожидалось 0", total)
	}
}

// TestListingCache_InvalidateDuringBackgroundRefresh: результат фонового
// обновления, завершившегося после инвалидации, не воскрешает запись.
func TestListingCache_InvalidateDuringBackgroundRefresh(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockLister{}
	fetcher.listFn = func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
		if fetcher.calls.Load() == 2 {
			<-release
		}
		return recordsFor("a.png"), nil
	}
	cache := newTestCache(t, fetcher, 400*time.Millisecond, 0.25)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	// Запускаем фоновое обновление и блокируем его.
	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll за порогом вернул ошибку: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return fetcher.calls.Load() == 2 },
		"фоновая загрузка не запустилась")

	cache.InvalidateAll()
	close(release)

	// Ждём завершения фоновой горутины и убеждаемся, что таблица пуста.
	waitFor(t, 2*time.Second, func() bool {
		total, _ := cache.Stats()
		return total == 0
	}, "таблица должна остаться пустой")

	time.Sleep(50 * time.Millisecond)
	total, _ := cache.Stats()
	if total != 0 {
		t.Errorf("записей: %d — фоновое обновление воскресило инвалидированную запись", total)
	}
}

// TestListingCache_ColdFetchFailureReturnsError: сбой загрузки на холодном
// кэше возвращает ошибку и не отравляет таблицу.
func TestListingCache_ColdFetchFailureReturnsError(t *testing.T) {
	fetcher := &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			return nil, errors.New("connection refused")
		},
	}
	cache := newTestCache(t, fetcher, time.Minute, 0.8)

	_, err := cache.GetAll(context.Background(), "assets")
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("ошибка %v не является ErrUpstreamUnavailable", err)
	}

	total, _ := cache.Stats()
	if total != 0 {
		t.Errorf("записей: %d — ошибочный снапшот попал в таблицу", total)
	}
}

// TestListingCache_ExpiredFetchFailureKeepsEntry: сбой синхронной загрузки
// по просроченной записи возвращает ошибку, запись остаётся для повтора.
func TestListingCache_ExpiredFetchFailureKeepsEntry(t *testing.T) {
	failing := atomic.Bool{}
	fetcher := &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			if failing.Load() {
				return nil, errors.New("хранилище прилегло")
			}
			return recordsFor("a.png"), nil
		},
	}
	cache := newTestCache(t, fetcher, 40*time.Millisecond, 0.99)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	failing.Store(true)

	_, err := cache.GetAll(context.Background(), "assets")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("ожидалась ErrUpstreamUnavailable, получено: %v", err)
	}

	total, expired := cache.Stats()
	if total != 1 || expired != 1 {
		t.Errorf("Stats() = (%d, %d), ожидалось (1, 1): просроченная запись должна остаться", total, expired)
	}

	// Хранилище ожило — следующий GetAll восстанавливает снапшот.
	failing.Store(false)
	snap, err := cache.GetAll(context.Background(), "assets")
	if err != nil {
		t.Fatalf("GetAll после восстановления вернул ошибку: %v", err)
	}
	if snap.Records[0].Key != "a.png" {
		t.Errorf("ключ = %q, ожидался a.png", snap.Records[0].Key)
	}
}

// TestListingCache_ParseErrorClassification: неразбираемый ответ хранилища
// отражается как ErrUpstreamParse.
func TestListingCache_ParseErrorClassification(t *testing.T) {
	fetcher := &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			return nil, fmt.Errorf("декодирование листинга: %w", storclient.ErrBadResponse)
		},
	}
	cache := newTestCache(t, fetcher, time.Minute, 0.8)

	_, err := cache.GetAll(context.Background(), "assets")
	if !errors.Is(err, ErrUpstreamParse) {
		t.Errorf("ошибка %v не является ErrUpstreamParse", err)
	}
}

// TestListingCache_SweepExpiredIdempotent: повторная очистка без течения
// времени ничего не удаляет, статистика совпадает.
func TestListingCache_SweepExpiredIdempotent(t *testing.T) {
	fetcher := staticLister("a.png")
	cache := newTestCache(t, fetcher, 40*time.Millisecond, 0.99)

	if _, err := cache.GetAll(context.Background(), "old"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	// Обновляем вторую категорию: она свежая, первая — просрочена.
	if _, err := cache.GetAll(context.Background(), "fresh"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	if removed := cache.SweepExpired(); removed != 1 {
		t.Errorf("первая очистка удалила %d, ожидалась 1", removed)
	}
	totalAfterFirst, expiredAfterFirst := cache.Stats()

	if removed := cache.SweepExpired(); removed != 0 {
		t.Errorf("повторная очистка удалила %d, ожидалось 0", removed)
	}
	totalAfterSecond, expiredAfterSecond := cache.Stats()

	if totalAfterFirst != totalAfterSecond || expiredAfterFirst != expiredAfterSecond {
		t.Errorf("Stats() изменилась между очистками: (%d,%d) -> (%d,%d)",
			totalAfterFirst, expiredAfterFirst, totalAfterSecond, expiredAfterSecond)
	}
	if totalAfterSecond != 1 || expiredAfterSecond != 0 {
		t.Errorf("Stats() = (%d, %d), ожидалось (1, 0)", totalAfterSecond, expiredAfterSecond)
	}
}

// TestListingCache_StatsComputedAtCallTime: просроченность в статистике
// вычисляется в момент вызова, без обращений к хранилищу.
func TestListingCache_StatsComputedAtCallTime(t *testing.T) {
	fetcher := staticLister("a.png")
	cache := newTestCache(t, fetcher, 40*time.Millisecond, 0.99)

	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}
	if _, err := cache.GetAll(context.Background(), "media"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}

	total, expired := cache.Stats()
	if total != 2 || expired != 0 {
		t.Errorf("Stats() = (%d, %d), ожидалось (2, 0)", total, expired)
	}

	time.Sleep(80 * time.Millisecond)

	total, expired = cache.Stats()
	if total != 2 || expired != 2 {
		t.Errorf("Stats() = (%d, %d), ожидалось (2, 2)", total, expired)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("Stats() обратилась к хранилищу: загрузок %d, ожидалось 2", got)
	}
}

// TestListingCache_ConcurrentGetAll: конкурентные чтения холодного кэша
// безопасны; дублирующиеся загрузки одной категории допустимы.
func TestListingCache_ConcurrentGetAll(t *testing.T) {
	fetcher := staticLister("a.png", "b.png")
	cache := newTestCache(t, fetcher, time.Minute, 0.8)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			category := "assets"
			if n%2 == 1 {
				category = "media"
			}
			snap, err := cache.GetAll(context.Background(), category)
			if err != nil {
				t.Errorf("конкурентный GetAll вернул ошибку: %v", err)
				return
			}
			if len(snap.Records) != 2 {
				t.Errorf("записей: %d, ожидалось 2", len(snap.Records))
			}
		}(i)
	}
	wg.Wait()

	total, _ := cache.Stats()
	if total != 2 {
		t.Errorf("категорий в таблице: %d, ожидалось 2", total)
	}

	// Таблица прогрета: новые чтения не ходят в хранилище.
	before := fetcher.calls.Load()
	if _, err := cache.GetAll(context.Background(), "assets"); err != nil {
		t.Fatalf("GetAll вернул ошибку: %v", err)
	}
	if got := fetcher.calls.Load(); got != before {
		t.Errorf("hit обратился к хранилищу: %d -> %d", before, got)
	}
}
