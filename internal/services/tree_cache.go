package services

import (
	"fmt"
	"sync"

	"catererp/server/internal/models"
)

// rootCacheKey — зарезервированный ключ кэша для списка узлов верхнего уровня
const rootCacheKey = "__roots__"

// ChildLoader загружает детей узла из хранилища (по parent_id, только активные)
type ChildLoader func(nodeID string) ([]models.DishNode, error)

// TreeCache — in-memory кэш дерева блюд: nodeID -> загруженный список детей
// Ветка попадает в кэш при первом раскрытии и живет до полной инвалидации
// Кэш общий для REST и WebSocket путей, поэтому все операции под мьютексом
type TreeCache struct {
	mu       sync.RWMutex
	children map[string][]models.DishNode
	inflight map[string]chan struct{} // Дедупликация параллельных загрузок одного узла
	version  uint64                   // Растет при каждой инвалидации; сессии сбрасывают развернутые ветки при смене

	leafCount       int64
	leafCountLoaded bool
}

// NewTreeCache создает пустой кэш дерева
func NewTreeCache() *TreeCache {
	return &TreeCache{
		children: make(map[string][]models.DishNode),
		inflight: make(map[string]chan struct{}),
	}
}

// GetChildren возвращает закэшированный список детей узла
// Второй результат false означает "ветка еще не загружалась" (NOT_LOADED),
// что отличается от загруженного пустого списка
func (c *TreeCache) GetChildren(nodeID string) ([]models.DishNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kids, ok := c.children[nodeID]
	return kids, ok
}

// LoadChildren возвращает детей узла, загружая их через loader при промахе
// Повторный вызов без инвалидации отдает кэш без похода в хранилище
// Параллельные загрузки одного узла схлопываются в одну: второй вызов ждет
// завершения первого вместо дублирующего запроса
// При ошибке загрузки запись в кэше НЕ создается — следующее раскрытие повторит попытку
func (c *TreeCache) LoadChildren(nodeID string, loader ChildLoader) ([]models.DishNode, error) {
	c.mu.Lock()
	if kids, ok := c.children[nodeID]; ok {
		c.mu.Unlock()
		return kids, nil
	}
	if wait, ok := c.inflight[nodeID]; ok {
		// Загрузка уже идет — ждем её результат
		c.mu.Unlock()
		<-wait
		c.mu.RLock()
		kids, ok := c.children[nodeID]
		c.mu.RUnlock()
		if ok {
			return kids, nil
		}
		// Первая загрузка провалилась; не повторяем за неё, вызывающий может раскрыть ветку заново
		return nil, fmt.Errorf("загрузка ветки %s не удалась", nodeID)
	}
	wait := make(chan struct{})
	c.inflight[nodeID] = wait
	c.mu.Unlock()

	kids, err := loader(nodeID)

	c.mu.Lock()
	delete(c.inflight, nodeID)
	if err == nil {
		if kids == nil {
			kids = []models.DishNode{}
		}
		c.children[nodeID] = kids
	}
	c.mu.Unlock()
	close(wait)

	if err != nil {
		return nil, err
	}
	return kids, nil
}

// LoadRoots возвращает узлы верхнего уровня (уровень 2), кэшируя их под зарезервированным ключом
func (c *TreeCache) LoadRoots(loader func() ([]models.DishNode, error)) ([]models.DishNode, error) {
	return c.LoadChildren(rootCacheKey, func(string) ([]models.DishNode, error) {
		return loader()
	})
}

// LeafCount возвращает общее число блюд (листьев), кэшируя его до инвалидации
func (c *TreeCache) LeafCount(loader func() (int64, error)) (int64, error) {
	c.mu.RLock()
	if c.leafCountLoaded {
		count := c.leafCount
		c.mu.RUnlock()
		return count, nil
	}
	c.mu.RUnlock()

	count, err := loader()
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.leafCount = count
	c.leafCountLoaded = true
	c.mu.Unlock()
	return count, nil
}

// InvalidateAll полностью сбрасывает кэш: список корней, все загруженные ветки
// и счетчик листьев. Вызывается после любой мутации каталога — единственный
// механизм консистентности, полная перезагрузка вместо точечных правок
func (c *TreeCache) InvalidateAll() {
	c.mu.Lock()
	c.children = make(map[string][]models.DishNode)
	c.leafCountLoaded = false
	c.version++
	c.mu.Unlock()
}

// Version возвращает номер поколения кэша
// Сессии каталога сравнивают его со своим, чтобы целиком сбросить развернутые ветки
func (c *TreeCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// CachedBranches возвращает число загруженных веток (для статуса/логов)
func (c *TreeCache) CachedBranches() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.children)
}
