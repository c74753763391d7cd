package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"catererp/server/internal/models"
)

func TestBuildChildNode(t *testing.T) {
	branch := models.DishNode{ID: "node-branch", Code: "2.01", Level: 2, Name: "Горячие блюда"}
	deep := models.DishNode{ID: "node-deep", Code: "2.01.01.01", Level: 4, Name: "Супы на бульоне"}

	tests := []struct {
		name      string
		parent    models.DishNode
		nodeName  string
		isLeaf    bool
		siblings  []string
		wantErr   error
		wantLevel int
		wantLeaf  bool
		wantCode  string
	}{
		{
			name:      "категория под веткой",
			parent:    branch,
			nodeName:  "Супы",
			siblings:  []string{"2.01.01", "2.01.02"},
			wantLevel: 3,
			wantLeaf:  false,
			wantCode:  "2.01.03",
		},
		{
			name:      "первый ребенок ветки",
			parent:    branch,
			nodeName:  "Гарниры",
			wantLevel: 3,
			wantLeaf:  false,
			wantCode:  "2.01.01",
		},
		{
			name:      "на пятом уровне узел становится блюдом даже без запроса",
			parent:    deep,
			nodeName:  "Борщ украинский",
			isLeaf:    false,
			wantLevel: 5,
			wantLeaf:  true,
			wantCode:  "2.01.01.01.01",
		},
		{
			name:      "блюдо на пятом уровне по запросу",
			parent:    deep,
			nodeName:  "Солянка",
			isLeaf:    true,
			wantLevel: 5,
			wantLeaf:  true,
			wantCode:  "2.01.01.01.01",
		},
		{
			name:     "у блюда не может быть детей",
			parent:   models.DishNode{ID: "node-dish", Code: "2.01.01.01.01", Level: 5, IsLeaf: true},
			nodeName: "Вариант",
			wantErr:  ErrParentIsLeaf,
		},
		{
			name:     "под узлом максимальной глубины детей не бывает",
			parent:   models.DishNode{ID: "node-max", Code: "2.01.01.01.02", Level: models.DishNodeMaxLevel},
			nodeName: "Вариант",
			wantErr:  ErrMaxDepthReached,
		},
		{
			name:     "пустое название",
			parent:   branch,
			nodeName: "   ",
			wantErr:  ErrNameRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := buildChildNode(tt.parent, tt.nodeName, "", tt.isLeaf, tt.siblings)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ожидалась ошибка %v, получено %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if node.Level != tt.wantLevel {
				t.Errorf("уровень = %d, ожидался %d", node.Level, tt.wantLevel)
			}
			if node.IsLeaf != tt.wantLeaf {
				t.Errorf("is_leaf = %v, ожидалось %v", node.IsLeaf, tt.wantLeaf)
			}
			if node.Code != tt.wantCode {
				t.Errorf("код = %q, ожидался %q", node.Code, tt.wantCode)
			}
			if node.ParentID == nil || *node.ParentID != tt.parent.ID {
				t.Errorf("parent_id не указывает на родителя")
			}
			if !node.IsActive {
				t.Error("новый узел должен быть активным")
			}
		})
	}
}

func TestBuildChildNodeTrimsName(t *testing.T) {
	parent := models.DishNode{ID: "node-1", Code: "2.02", Level: 2}
	node, err := buildChildNode(parent, "  Десерты  ", "", false, nil)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if node.Name != "Десерты" {
		t.Errorf("название = %q, пробелы должны обрезаться", node.Name)
	}
}

// Деактивация узла убирает его из всех чтений после сброса кэша,
// при этом строка в хранилище остается
func TestDeactivatedNodeDisappearsAfterInvalidation(t *testing.T) {
	type row struct {
		node   models.DishNode
		active bool
	}
	store := map[string][]*row{
		"cat-1": {
			{node: models.DishNode{ID: "dish-1", Code: "2.01.01", Level: 3, IsLeaf: true}, active: true},
			{node: models.DishNode{ID: "dish-2", Code: "2.01.02", Level: 3, IsLeaf: true}, active: true},
		},
	}
	loader := func(nodeID string) ([]models.DishNode, error) {
		var out []models.DishNode
		for _, r := range store[nodeID] {
			if r.active {
				out = append(out, r.node)
			}
		}
		return out, nil
	}
	counter := func() (int64, error) {
		var n int64
		for _, rows := range store {
			for _, r := range rows {
				if r.active && r.node.IsLeaf {
					n++
				}
			}
		}
		return n, nil
	}

	cache := NewTreeCache()

	kids, err := cache.LoadChildren("cat-1", loader)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(kids) != 2 {
		t.Fatalf("до удаления ожидалось 2 блюда, получено %d", len(kids))
	}
	if count, _ := cache.LeafCount(counter); count != 2 {
		t.Fatalf("счетчик блюд = %d, ожидалось 2", count)
	}

	// Деактивация: флаг снимается, строка остается
	store["cat-1"][0].active = false

	// До инвалидации кэш продолжает отдавать прежнюю ветку
	kids, _ = cache.LoadChildren("cat-1", loader)
	if len(kids) != 2 {
		t.Fatalf("до инвалидации кэш должен отдавать прежние 2 узла, получено %d", len(kids))
	}

	cache.InvalidateAll()

	kids, err = cache.LoadChildren("cat-1", loader)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(kids) != 1 {
		t.Fatalf("после инвалидации ожидался 1 узел, получено %d", len(kids))
	}
	if kids[0].ID != "dish-2" {
		t.Errorf("остаться должен был dish-2, получен %s", kids[0].ID)
	}
	if count, _ := cache.LeafCount(counter); count != 1 {
		t.Errorf("счетчик блюд = %d, ожидался 1", count)
	}
	if len(store["cat-1"]) != 2 {
		t.Error("строка деактивированного узла не должна удаляться физически")
	}
}

// При обрыве Pub/Sub канала старая подписка закрывается перед переподпиской
func TestPubSubResubscribeClosesOldSubscription(t *testing.T) {
	svc := NewDishTreeService(nil, 50, 0)

	var mu sync.Mutex
	var closed []int
	var chans []chan *redis.Message
	svc.subscribeFn = func(channel string) (<-chan *redis.Message, func() error) {
		mu.Lock()
		defer mu.Unlock()
		id := len(chans) + 1
		ch := make(chan *redis.Message)
		chans = append(chans, ch)
		return ch, func() error {
			mu.Lock()
			closed = append(closed, id)
			mu.Unlock()
			return nil
		}
	}

	done := make(chan struct{})
	go func() {
		svc.startPubSubListener()
		close(done)
	}()

	waitForCondition(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(chans) == 1
	}, "первая подписка")

	// Обрыв подписки со стороны Redis
	mu.Lock()
	first := chans[0]
	mu.Unlock()
	close(first)

	waitForCondition(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(chans) == 2
	}, "переподписка после обрыва")

	mu.Lock()
	firstClosed := len(closed) >= 1 && closed[0] == 1
	mu.Unlock()
	if !firstClosed {
		t.Fatal("подписка 1 не закрыта при переподписке")
	}

	svc.Stop()
	<-done

	mu.Lock()
	total := len(closed)
	mu.Unlock()
	if total != 2 {
		t.Errorf("закрыто подписок: %d, ожидалось 2 (обрыв + остановка)", total)
	}
}

func waitForCondition(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("не дождались: %s", what)
}
