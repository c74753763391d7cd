package services

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"catererp/server/internal/models"
)

func testNodes(parentID string, count int) []models.DishNode {
	nodes := make([]models.DishNode, 0, count)
	for i := 0; i < count; i++ {
		nodes = append(nodes, models.DishNode{
			ID:       fmt.Sprintf("%s-child-%d", parentID, i+1),
			ParentID: &parentID,
			Code:     fmt.Sprintf("2.01.%02d", i+1),
			Level:    3,
			Name:     fmt.Sprintf("Категория %d", i+1),
			IsActive: true,
		})
	}
	return nodes
}

func TestLoadChildrenCachesResult(t *testing.T) {
	cache := NewTreeCache()
	var loaderCalls int32

	loader := func(nodeID string) ([]models.DishNode, error) {
		atomic.AddInt32(&loaderCalls, 1)
		return testNodes(nodeID, 3), nil
	}

	first, err := cache.LoadChildren("node-1", loader)
	if err != nil {
		t.Fatalf("первая загрузка: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("ожидалось 3 ребенка, получено %d", len(first))
	}

	// Повторное раскрытие той же ветки не ходит в loader
	second, err := cache.LoadChildren("node-1", loader)
	if err != nil {
		t.Fatalf("повторная загрузка: %v", err)
	}
	if len(second) != 3 {
		t.Fatalf("ожидалось 3 ребенка из кэша, получено %d", len(second))
	}
	if calls := atomic.LoadInt32(&loaderCalls); calls != 1 {
		t.Errorf("loader вызван %d раз, ожидался 1", calls)
	}
}

func TestLoadChildrenEmptyBranchIsCached(t *testing.T) {
	cache := NewTreeCache()
	var loaderCalls int32

	loader := func(nodeID string) ([]models.DishNode, error) {
		atomic.AddInt32(&loaderCalls, 1)
		return nil, nil
	}

	kids, err := cache.LoadChildren("empty-node", loader)
	if err != nil {
		t.Fatalf("загрузка пустой ветки: %v", err)
	}
	if kids == nil || len(kids) != 0 {
		t.Fatalf("ожидался пустой загруженный список, получено %v", kids)
	}

	// Пустая ветка — тоже закэшированное состояние, не промах
	if _, ok := cache.GetChildren("empty-node"); !ok {
		t.Error("пустая ветка должна числиться загруженной")
	}

	cache.LoadChildren("empty-node", loader)
	if calls := atomic.LoadInt32(&loaderCalls); calls != 1 {
		t.Errorf("loader вызван %d раз для пустой ветки, ожидался 1", calls)
	}
}

func TestConcurrentLoadsCollapseToOne(t *testing.T) {
	cache := NewTreeCache()
	var loaderCalls int32
	started := make(chan struct{})
	release := make(chan struct{})

	loader := func(nodeID string) ([]models.DishNode, error) {
		if atomic.AddInt32(&loaderCalls, 1) == 1 {
			close(started)
			<-release
		}
		return testNodes(nodeID, 2), nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		kids, err := cache.LoadChildren("node-1", loader)
		if err != nil {
			t.Errorf("первая горутина: %v", err)
		}
		results[0] = len(kids)
	}()

	<-started
	// Пока первая загрузка висит в loader, запускаем конкурирующие раскрытия
	for i := 1; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			kids, err := cache.LoadChildren("node-1", loader)
			if err != nil {
				t.Errorf("горутина %d: %v", idx, err)
			}
			results[idx] = len(kids)
		}(i)
	}
	close(release)
	wg.Wait()

	if calls := atomic.LoadInt32(&loaderCalls); calls != 1 {
		t.Errorf("loader вызван %d раз при конкурентном раскрытии, ожидался 1", calls)
	}
	for i, n := range results {
		if n != 2 {
			t.Errorf("горутина %d получила %d детей, ожидалось 2", i, n)
		}
	}
}

func TestFailedLoadLeavesBranchAbsent(t *testing.T) {
	cache := NewTreeCache()
	var loaderCalls int32
	loadErr := errors.New("база недоступна")

	failing := func(nodeID string) ([]models.DishNode, error) {
		atomic.AddInt32(&loaderCalls, 1)
		return nil, loadErr
	}

	if _, err := cache.LoadChildren("node-1", failing); !errors.Is(err, loadErr) {
		t.Fatalf("ожидалась ошибка загрузки, получено %v", err)
	}

	// Ошибка не кэшируется: ветка остается незагруженной
	if _, ok := cache.GetChildren("node-1"); ok {
		t.Error("проваленная загрузка не должна оставлять запись в кэше")
	}

	// Следующее раскрытие повторяет попытку
	ok := func(nodeID string) ([]models.DishNode, error) {
		atomic.AddInt32(&loaderCalls, 1)
		return testNodes(nodeID, 1), nil
	}
	kids, err := cache.LoadChildren("node-1", ok)
	if err != nil {
		t.Fatalf("повторная загрузка: %v", err)
	}
	if len(kids) != 1 {
		t.Fatalf("ожидался 1 ребенок после повтора, получено %d", len(kids))
	}
	if calls := atomic.LoadInt32(&loaderCalls); calls != 2 {
		t.Errorf("loader вызван %d раз, ожидалось 2", calls)
	}
}

func TestInvalidateAllResetsEverything(t *testing.T) {
	cache := NewTreeCache()

	cache.LoadRoots(func() ([]models.DishNode, error) {
		return testNodes("root", 2), nil
	})
	cache.LoadChildren("node-1", func(nodeID string) ([]models.DishNode, error) {
		return testNodes(nodeID, 3), nil
	})
	cache.LeafCount(func() (int64, error) { return 42, nil })

	if cache.CachedBranches() != 2 {
		t.Fatalf("ожидалось 2 загруженные ветки, получено %d", cache.CachedBranches())
	}
	versionBefore := cache.Version()

	cache.InvalidateAll()

	if cache.CachedBranches() != 0 {
		t.Errorf("после инвалидации остались ветки: %d", cache.CachedBranches())
	}
	if cache.Version() != versionBefore+1 {
		t.Errorf("версия кэша не выросла: %d -> %d", versionBefore, cache.Version())
	}

	// Счетчик листьев перечитывается заново
	count, err := cache.LeafCount(func() (int64, error) { return 7, nil })
	if err != nil {
		t.Fatalf("LeafCount после инвалидации: %v", err)
	}
	if count != 7 {
		t.Errorf("счетчик листьев не сброшен: %d", count)
	}
}

func TestLeafCountIsCached(t *testing.T) {
	cache := NewTreeCache()
	var loaderCalls int32

	loader := func() (int64, error) {
		atomic.AddInt32(&loaderCalls, 1)
		return 120, nil
	}

	for i := 0; i < 3; i++ {
		count, err := cache.LeafCount(loader)
		if err != nil {
			t.Fatalf("LeafCount: %v", err)
		}
		if count != 120 {
			t.Fatalf("ожидалось 120 блюд, получено %d", count)
		}
	}
	if calls := atomic.LoadInt32(&loaderCalls); calls != 1 {
		t.Errorf("loader счетчика вызван %d раз, ожидался 1", calls)
	}
}

// Сценарий рабочего дня: раскрытия, мутация с инвалидацией, повторные раскрытия
func TestCacheLifecycleScenario(t *testing.T) {
	cache := NewTreeCache()
	store := map[string][]models.DishNode{
		rootCacheKey: testNodes("root", 2),
		"node-1":     testNodes("node-1", 4),
	}
	var mu sync.Mutex
	var loads []string

	loader := func(nodeID string) ([]models.DishNode, error) {
		mu.Lock()
		loads = append(loads, nodeID)
		mu.Unlock()
		return store[nodeID], nil
	}

	// Утро: клиент раскрывает корни и одну ветку
	cache.LoadRoots(func() ([]models.DishNode, error) { return loader(rootCacheKey) })
	cache.LoadChildren("node-1", loader)
	cache.LoadChildren("node-1", loader) // Повторное раскрытие — из кэша

	// Мутация каталога: добавился ребенок, кэш сбрасывается целиком
	store["node-1"] = testNodes("node-1", 5)
	cache.InvalidateAll()

	kids, err := cache.LoadChildren("node-1", loader)
	if err != nil {
		t.Fatalf("загрузка после мутации: %v", err)
	}
	if len(kids) != 5 {
		t.Errorf("после мутации ожидалось 5 детей, получено %d", len(kids))
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{rootCacheKey, "node-1", "node-1"}
	if len(loads) != len(want) {
		t.Fatalf("последовательность загрузок %v, ожидалась %v", loads, want)
	}
	for i := range want {
		if loads[i] != want[i] {
			t.Errorf("загрузка %d: %q, ожидалась %q", i, loads[i], want[i])
		}
	}
}
