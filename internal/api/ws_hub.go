package api

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// hubClient хранит очередь исходящих кадров одного соединения
// В сокет пишет только writePump: у gorilla/websocket один писатель на соединение
type hubClient struct {
	out  chan []byte
	done chan struct{}
}

// Hub управляет WebSocket соединениями клиентов каталога
type Hub struct {
	clients   map[*websocket.Conn]*hubClient
	broadcast chan []byte
	mutex     sync.RWMutex
}

// NewHub создает пустой хаб
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]*hubClient),
		broadcast: make(chan []byte, 256), // Буферизованный канал для производительности
	}
}

// CatalogHub - глобальный хаб для клиентов каталога блюд (рабочие места закупщиков)
var CatalogHub = NewHub()

// Run раскладывает широковещательные сообщения по очередям клиентов
func (h *Hub) Run() {
	for msg := range h.broadcast {
		h.mutex.RLock()
		for _, client := range h.clients {
			select {
			case client.out <- msg:
			default:
				// Очередь клиента переполнена, кадр пропускаем (не блокируем хаб)
			}
		}
		h.mutex.RUnlock()
	}
}

// AddClient добавляет нового клиента и запускает его писателя
func (h *Hub) AddClient(conn *websocket.Conn) {
	client := &hubClient{
		out:  make(chan []byte, 64),
		done: make(chan struct{}),
	}

	h.mutex.Lock()
	h.clients[conn] = client
	h.mutex.Unlock()

	go h.writePump(conn, client)
}

// writePump - единственный писатель соединения: широковещание хаба и
// адресные ответы сессии проходят через одну очередь
func (h *Hub) writePump(conn *websocket.Conn, client *hubClient) {
	for {
		select {
		case msg := <-client.out:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Удаляем клиента при ошибке записи
				h.RemoveClient(conn)
				return
			}
		case <-client.done:
			return
		}
	}
}

// RemoveClient удаляет клиента и останавливает его писателя (повторный вызов безопасен)
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if client, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(client.done)
		conn.Close()
	}
	h.mutex.Unlock()
}

// BroadcastMessage отправляет сообщение всем подключенным клиентам
func (h *Hub) BroadcastMessage(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		// Если канал переполнен, пропускаем сообщение (не блокируем)
	}
}

// SendTo ставит адресное сообщение в очередь конкретного клиента
// Возвращает false, если клиент уже отключен или его очередь переполнена
func (h *Hub) SendTo(conn *websocket.Conn, message []byte) bool {
	h.mutex.RLock()
	client, ok := h.clients[conn]
	h.mutex.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.out <- message:
		return true
	default:
		return false
	}
}

// GetClientsCount возвращает количество подключенных клиентов
func (h *Hub) GetClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastCatalogUpdate отправляет событие каталога всем подключенным клиентам
// (инвалидация дерева, смены статусов заявок и накладных)
func BroadcastCatalogUpdate(messageType string, data interface{}) {
	update := map[string]interface{}{
		"type":      messageType,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(update)
	if err != nil {
		log.Printf("⚠️ Ошибка маршалинга обновления каталога: %v", err)
		return
	}

	CatalogHub.BroadcastMessage(jsonData)
}
