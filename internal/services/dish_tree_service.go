package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catererp/server/internal/models"
	"catererp/server/internal/utils"
)

const DishTreeUpdateChannel = "catalog:dishtree:update" // Канал Pub/Sub для инвалидации кэша дерева

// SearchTermMinLength - минимальная длина поискового запроса в рунах
// Более короткий ввод поиск не запускает ни по HTTP, ни через WebSocket
const SearchTermMinLength = 2

// Ошибки каталога блюд; контроллер переводит их в HTTP-статусы
var (
	ErrNameRequired      = errors.New("название обязательно")
	ErrTermTooShort      = errors.New("поисковый запрос слишком короткий")
	ErrNodeNotFound      = errors.New("узел каталога не найден")
	ErrParentNotFound    = errors.New("родительский узел не найден")
	ErrParentIsLeaf      = errors.New("у блюда не может быть подкатегорий")
	ErrMaxDepthReached   = errors.New("достигнута максимальная глубина каталога")
	ErrHasActiveChildren = errors.New("узел содержит активные дочерние элементы")
)

// DishTreeService управляет иерархическим каталогом блюд:
// ленивый кэш веток, генерация кодов, поиск и мутации с полной инвалидацией
type DishTreeService struct {
	db        *gorm.DB
	cache     *TreeCache
	redisUtil *utils.RedisClient // Pub/Sub для межинстансной инвалидации
	events    *EventPublisher    // Kafka-события мутаций каталога

	pageSize       int
	reloadInterval time.Duration
	stopPubSub     chan struct{}
	invalidateHook func() // Уведомление WebSocket-клиентов о сбросе дерева

	subscribeFn func(channel string) (<-chan *redis.Message, func() error)
}

// NewDishTreeService создает сервис каталога блюд
func NewDishTreeService(db *gorm.DB, pageSize int, reloadInterval time.Duration) *DishTreeService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &DishTreeService{
		db:             db,
		cache:          NewTreeCache(),
		pageSize:       pageSize,
		reloadInterval: reloadInterval,
		stopPubSub:     make(chan struct{}),
	}
}

// SetRedisUtil подключает Redis для межинстансной инвалидации кэша
func (s *DishTreeService) SetRedisUtil(redisUtil *utils.RedisClient) {
	s.redisUtil = redisUtil
	if redisUtil != nil {
		s.subscribeFn = redisUtil.Subscribe
	}
}

// SetEventPublisher подключает публикацию доменных событий в Kafka
func (s *DishTreeService) SetEventPublisher(events *EventPublisher) {
	s.events = events
}

// SetInvalidateHook устанавливает колбэк, вызываемый при каждой инвалидации кэша
// (рассылка tree:invalidate подключенным WebSocket-клиентам)
func (s *DishTreeService) SetInvalidateHook(hook func()) {
	s.invalidateHook = hook
}

// Cache возвращает кэш дерева (для WebSocket-сессий каталога)
func (s *DishTreeService) Cache() *TreeCache {
	return s.cache
}

// GetRoots возвращает узлы верхнего уровня (уровень 2) из кэша,
// загружая их из БД при первом обращении
func (s *DishTreeService) GetRoots() ([]models.DishNode, error) {
	return s.cache.LoadRoots(func() ([]models.DishNode, error) {
		var nodes []models.DishNode
		if err := s.db.Where("is_active = ? AND level = 2", true).Order("code ASC").Find(&nodes).Error; err != nil {
			return nil, err
		}
		return nodes, nil
	})
}

// GetChildren возвращает детей узла: из кэша, либо лениво из БД при первом раскрытии
func (s *DishTreeService) GetChildren(nodeID string) ([]models.DishNode, error) {
	return s.cache.LoadChildren(nodeID, s.loadChildrenFromDB)
}

// loadChildrenFromDB читает активных детей узла из БД, упорядоченных по коду
func (s *DishTreeService) loadChildrenFromDB(nodeID string) ([]models.DishNode, error) {
	var nodes []models.DishNode
	if err := s.db.Where("is_active = ? AND parent_id = ?", true, nodeID).Order("code ASC").Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// CountLeaves возвращает общее число блюд (листьев) в каталоге
func (s *DishTreeService) CountLeaves() (int64, error) {
	return s.cache.LeafCount(func() (int64, error) {
		var count int64
		if err := s.db.Model(&models.DishNode{}).Where("is_active = ? AND is_leaf = ?", true, true).Count(&count).Error; err != nil {
			return 0, err
		}
		return count, nil
	})
}

// SearchNodes ищет узлы по названию или коду: плоский список без иерархии
// Поиск идет мимо кэша дерева — прямой запрос в БД с лимитом страницы
func (s *DishTreeService) SearchNodes(term string) ([]models.DishNode, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < SearchTermMinLength {
		return nil, ErrTermTooShort
	}

	pattern := "%" + term + "%"
	var nodes []models.DishNode
	if err := s.db.
		Where("is_active = ? AND (name ILIKE ? OR code ILIKE ?)", true, pattern, pattern).
		Order("code ASC").
		Limit(s.pageSize).
		Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNode возвращает узел каталога по ID (только активный)
func (s *DishTreeService) GetNode(id string) (*models.DishNode, error) {
	var node models.DishNode
	if err := s.db.Where("id = ? AND is_active = ?", id, true).First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return &node, nil
}

// GetNodeRecipes возвращает активные рецепты блюда (только для листьев)
func (s *DishTreeService) GetNodeRecipes(nodeID string) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.Where("dish_node_id = ? AND is_active = ?", nodeID, true).Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// CreateNode создает дочерний узел под указанным родителем
// Пустой parentID означает создание категории верхнего уровня под корнем каталога
// Код генерируется по СВЕЖЕМУ списку детей из БД (кэш может быть пуст для
// ни разу не раскрытой ветки), уровень = уровень родителя + 1,
// на максимальной глубине узел всегда становится блюдом независимо от запроса
func (s *DishTreeService) CreateNode(parentID, name, description string, isLeaf bool) (*models.DishNode, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}

	var parent models.DishNode
	var err error
	if parentID == "" {
		// Корень каталога (уровень 1) скрыт от клиентов
		err = s.db.Where("level = 1 AND is_active = ?", true).First(&parent).Error
	} else {
		err = s.db.Where("id = ? AND is_active = ?", parentID, true).First(&parent).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParentNotFound
		}
		return nil, err
	}

	// Всегда перечитываем детей перед генерацией кода
	siblings, err := s.loadChildrenFromDB(parent.ID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить детей родителя: %w", err)
	}
	codes := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		codes = append(codes, sib.Code)
	}

	node, err := buildChildNode(parent, name, description, isLeaf, codes)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(&node).Error; err != nil {
		return nil, err
	}

	s.afterMutation("created", node.ID)
	return &node, nil
}

// buildChildNode проверяет родителя и собирает дочерний узел:
// под блюдом и на максимальной глубине детей не бывает,
// уровень = уровень родителя + 1, на пятом уровне узел всегда блюдо,
// код — следующий свободный среди кодов братьев
func buildChildNode(parent models.DishNode, name, description string, isLeaf bool, siblingCodes []string) (models.DishNode, error) {
	if strings.TrimSpace(name) == "" {
		return models.DishNode{}, ErrNameRequired
	}
	if parent.IsLeaf {
		return models.DishNode{}, ErrParentIsLeaf
	}
	if parent.Level >= models.DishNodeMaxLevel {
		return models.DishNode{}, ErrMaxDepthReached
	}

	level := parent.Level + 1
	if level == models.DishNodeMaxLevel {
		isLeaf = true // Пятый уровень — всегда блюдо
	}

	return models.DishNode{
		ParentID:    &parent.ID,
		Code:        NextDishCode(parent.Code, siblingCodes),
		Level:       level,
		Name:        strings.TrimSpace(name),
		Description: description,
		IsLeaf:      isLeaf,
		IsActive:    true,
	}, nil
}

// UpdateNode обновляет узел: только название, описание и признак блюда
// Код, родитель и уровень неизменяемы после создания и в запрос не попадают
func (s *DishTreeService) UpdateNode(id, name, description string, isLeaf bool) (*models.DishNode, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}

	node, err := s.GetNode(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":        strings.TrimSpace(name),
		"description": description,
		"is_leaf":     isLeaf,
	}
	if err := s.db.Model(node).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.afterMutation("updated", node.ID)
	return node, nil
}

// DeleteNode деактивирует узел (soft delete: is_active=false, строка остается)
// Удаление узла с активными детьми блокируется: каскада нет, и молчаливо
// оставлять активных сирот под неактивным родителем нельзя
func (s *DishTreeService) DeleteNode(id string) error {
	node, err := s.GetNode(id)
	if err != nil {
		return err
	}

	var childCount int64
	if err := s.db.Model(&models.DishNode{}).Where("parent_id = ? AND is_active = ?", id, true).Count(&childCount).Error; err != nil {
		return err
	}
	if childCount > 0 {
		return ErrHasActiveChildren
	}

	if err := s.db.Model(node).Update("is_active", false).Error; err != nil {
		return err
	}

	s.afterMutation("deleted", node.ID)
	return nil
}

// afterMutation выполняет протокол инвалидации после успешной записи:
// локальный сброс кэша, уведомление WebSocket-клиентов, Pub/Sub для других
// инстансов и доменное событие в Kafka
func (s *DishTreeService) afterMutation(action, nodeID string) {
	s.cache.InvalidateAll()

	if s.invalidateHook != nil {
		s.invalidateHook()
	}

	if s.redisUtil != nil {
		if err := s.redisUtil.Publish(DishTreeUpdateChannel, action+":"+nodeID); err != nil {
			log.Printf("⚠️ Не удалось опубликовать инвалидацию дерева: %v", err)
		}
	}

	if s.events != nil {
		s.events.PublishAsync("dish_node."+action, map[string]interface{}{
			"node_id": nodeID,
		})
	}
}

// StartAutoReload запускает слежение за изменениями каталога с других инстансов:
// Redis Pub/Sub для мгновенной инвалидации + таймер как fallback
func (s *DishTreeService) StartAutoReload() {
	if s.redisUtil != nil {
		go s.startPubSubListener()
		log.Println("📡 Redis Pub/Sub для каталога блюд запущен (мгновенная инвалидация)")
	}

	if s.reloadInterval > 0 {
		go func() {
			ticker := time.NewTicker(s.reloadInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					s.cache.InvalidateAll()
					if _, err := s.GetRoots(); err != nil {
						log.Printf("⚠️ Ошибка плановой перезагрузки каталога: %v", err)
					}
				case <-s.stopPubSub:
					return
				}
			}
		}()
		log.Printf("🔄 Fallback-перезагрузка каталога запущена (каждые %v)", s.reloadInterval)
	}
}

// startPubSubListener слушает Redis канал и сбрасывает кэш при событиях других инстансов
func (s *DishTreeService) startPubSubListener() {
	if s.subscribeFn == nil {
		return
	}

	ch, closeFn := s.subscribeFn(DishTreeUpdateChannel)
	defer func() {
		if err := closeFn(); err != nil {
			log.Printf("⚠️ Ошибка закрытия Pub/Sub: %v", err)
		}
	}()

	log.Printf("👂 Слушаем канал Redis: %s", DishTreeUpdateChannel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				log.Println("⚠️ Pub/Sub канал закрыт, переподписываемся...")
				// Старую подписку закрываем, иначе ее соединение утечет
				if err := closeFn(); err != nil {
					log.Printf("⚠️ Ошибка закрытия Pub/Sub: %v", err)
				}
				ch, closeFn = s.subscribeFn(DishTreeUpdateChannel)
				continue
			}
			if msg != nil {
				log.Printf("🔔 Получено событие каталога из Redis: %s", msg.Payload)
				s.cache.InvalidateAll()
				if s.invalidateHook != nil {
					s.invalidateHook()
				}
			}
		case <-s.stopPubSub:
			log.Println("🛑 Остановка Pub/Sub listener каталога")
			return
		}
	}
}

// Stop останавливает фоновые горутины сервиса
func (s *DishTreeService) Stop() {
	close(s.stopPubSub)
}
