package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"catererp/server/internal/models"
	"catererp/server/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Разрешаем подключения с любого origin (для разработки)
		// В продакшене лучше проверять конкретные домены
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ExplorerMessage представляет входящее сообщение от клиента каталога
type ExplorerMessage struct {
	Type   string `json:"type"` // expand | collapse | search | refresh
	NodeID string `json:"node_id,omitempty"`
	Term   string `json:"term,omitempty"`
}

// TreeNodePayload представляет узел дерева в ответе с раскрытыми детьми
// HasChildren для незагруженной ветки оценивается по признаку блюда,
// для загруженной — по фактическому списку
type TreeNodePayload struct {
	models.DishNode
	Expanded    bool              `json:"expanded"`
	HasChildren bool              `json:"has_children"`
	Children    []TreeNodePayload `json:"children,omitempty"`
}

// explorerSession хранит состояние одного WebSocket-подключения каталога:
// набор раскрытых веток, дебаунсер поиска и последнюю виденную версию кэша
type explorerSession struct {
	conn    *websocket.Conn
	hub     *Hub
	service *services.DishTreeService

	expanded  map[string]bool
	seenVer   uint64
	debouncer *services.SearchDebouncer
}

// ExplorerWSController обслуживает WebSocket-сессии проводника каталога блюд
type ExplorerWSController struct {
	service        *services.DishTreeService
	debounceWindow time.Duration
}

// NewExplorerWSController создает контроллер WebSocket-проводника
func NewExplorerWSController(service *services.DishTreeService, debounceWindow time.Duration) *ExplorerWSController {
	if debounceWindow <= 0 {
		debounceWindow = 300 * time.Millisecond
	}
	return &ExplorerWSController{
		service:        service,
		debounceWindow: debounceWindow,
	}
}

// ServeExplorerWS обрабатывает WebSocket подключения проводника каталога
// GET /api/v1/catalog/ws
func (ec *ExplorerWSController) ServeExplorerWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ Ошибка обновления WebSocket соединения каталога: %v", err)
		return
	}

	CatalogHub.AddClient(conn)
	log.Printf("🌲 Клиент каталога подключен. Всего подключений: %d", CatalogHub.GetClientsCount())

	session := &explorerSession{
		conn:      conn,
		hub:       CatalogHub,
		service:   ec.service,
		expanded:  make(map[string]bool),
		seenVer:   ec.service.Cache().Version(),
		debouncer: services.NewSearchDebouncer(ec.debounceWindow),
	}

	defer func() {
		session.debouncer.Cancel()
		CatalogHub.RemoveClient(conn)
		log.Printf("🌲 Клиент каталога отключен. Осталось подключений: %d", CatalogHub.GetClientsCount())
	}()

	// Начальное состояние: корни каталога и счетчик блюд
	session.sendTree()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket каталога ошибка: %v", err)
			}
			break
		}

		var msg ExplorerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			session.sendError("Неверный формат сообщения", err.Error())
			continue
		}

		session.handle(msg)
	}
}

// handle обрабатывает одно сообщение клиента
func (s *explorerSession) handle(msg ExplorerMessage) {
	switch msg.Type {
	case "expand":
		if msg.NodeID == "" {
			s.sendError("Не указан узел для раскрытия", "")
			return
		}
		// Ленивая загрузка: ветка читается из БД только при первом раскрытии
		if _, err := s.service.GetChildren(msg.NodeID); err != nil {
			s.sendError("Ошибка загрузки ветки каталога", err.Error())
			return
		}
		s.expanded[msg.NodeID] = true
		s.sendTree()

	case "collapse":
		delete(s.expanded, msg.NodeID)
		s.sendTree()

	case "search":
		// Короткий запрос поиск не запускает и отменяет уже отложенный:
		// клиент продолжил стирать ввод
		term := strings.TrimSpace(msg.Term)
		if len([]rune(term)) < services.SearchTermMinLength {
			s.debouncer.Cancel()
			return
		}
		// Поиск откладывается до паузы во вводе; каждый новый ввод
		// отменяет предыдущий отложенный запрос
		s.debouncer.Schedule(term, func(t string, gen uint64) {
			s.runSearch(t, gen)
		})

	case "refresh":
		s.sendTree()

	default:
		s.sendError("Неизвестный тип сообщения", msg.Type)
	}
}

// runSearch выполняет отложенный поиск; результат устаревшего поколения отбрасывается
func (s *explorerSession) runSearch(term string, gen uint64) {
	nodes, err := s.service.SearchNodes(term)
	if err != nil {
		if s.debouncer.Stale(gen) {
			return
		}
		s.sendError("Ошибка поиска по каталогу", err.Error())
		return
	}

	// За время запроса к БД клиент мог продолжить ввод
	if s.debouncer.Stale(gen) {
		return
	}

	s.send(map[string]interface{}{
		"type":  "search_results",
		"term":  term,
		"nodes": nodes,
		"count": len(nodes),
	})
}

// sendTree отправляет клиенту текущее дерево с учетом раскрытых веток
// При смене версии кэша (мутация или инвалидация) раскрытые ветки сбрасываются:
// их содержимое могло измениться, клиент раскрывает заново
func (s *explorerSession) sendTree() {
	currentVer := s.service.Cache().Version()
	if currentVer != s.seenVer {
		s.expanded = make(map[string]bool)
		s.seenVer = currentVer
	}

	roots, err := s.service.GetRoots()
	if err != nil {
		s.sendError("Ошибка загрузки каталога", err.Error())
		return
	}

	leafCount, err := s.service.CountLeaves()
	if err != nil {
		leafCount = 0
	}

	payload := make([]TreeNodePayload, 0, len(roots))
	for _, root := range roots {
		payload = append(payload, s.renderNode(root))
	}

	s.send(map[string]interface{}{
		"type":       "tree",
		"version":    currentVer,
		"roots":      payload,
		"leaf_count": leafCount,
	})
}

// renderNode рекурсивно собирает узел с детьми для раскрытых веток
func (s *explorerSession) renderNode(node models.DishNode) TreeNodePayload {
	payload := TreeNodePayload{
		DishNode: node,
		Expanded: s.expanded[node.ID],
	}

	if !node.IsLeaf {
		if kids, loaded := s.service.Cache().GetChildren(node.ID); loaded {
			payload.HasChildren = len(kids) > 0 // Ветка загружена: пустота подтверждена
		} else {
			payload.HasChildren = true
		}
	}

	if payload.Expanded && node.CanHaveChildren() {
		children, err := s.service.GetChildren(node.ID)
		if err != nil {
			payload.Expanded = false
			return payload
		}
		payload.Children = make([]TreeNodePayload, 0, len(children))
		for _, child := range children {
			payload.Children = append(payload.Children, s.renderNode(child))
		}
	}

	return payload
}

// send ставит JSON-сообщение в очередь писателя соединения
// Прямой записи в сокет здесь нет: ей занимается только writePump хаба
func (s *explorerSession) send(payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️ Ошибка маршалинга сообщения каталога: %v", err)
		return
	}

	if !s.hub.SendTo(s.conn, data) {
		log.Printf("⚠️ Сообщение клиенту каталога не доставлено (клиент отключен или очередь переполнена)")
	}
}

// sendError отправляет клиенту сообщение об ошибке
func (s *explorerSession) sendError(message, details string) {
	payload := map[string]interface{}{
		"type":  "error",
		"error": message,
	}
	if details != "" {
		payload["details"] = details
	}
	s.send(payload)
}
