package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialHubClient поднимает петлевое WebSocket-соединение:
// серверная сторона регистрируется в хабе, клиентская читает кадры
func dialHubClient(t *testing.T, hub *Hub) (client, serverConn *websocket.Conn, cleanup func()) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(conn)
		connCh <- conn
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("не удалось подключиться к тестовому серверу: %v", err)
	}

	serverConn = <-connCh
	cleanup = func() {
		client.Close()
		hub.RemoveClient(serverConn)
		srv.Close()
	}
	return client, serverConn, cleanup
}

// Широковещание хаба и адресные ответы сессии идут одновременно,
// но в сокет пишет только writePump соединения
func TestHubSerializesBroadcastAndDirectWrites(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client, serverConn, cleanup := dialHubClient(t, hub)
	defer cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.BroadcastMessage([]byte(`{"type":"tree:invalidate"}`))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.SendTo(serverConn, []byte(`{"type":"search_results","count":0}`))
			}
		}()
	}

	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	for received := 0; received < 20; received++ {
		msgType, data, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("ошибка чтения кадра %d: %v", received, err)
		}
		if msgType != websocket.TextMessage {
			t.Fatalf("ожидался текстовый кадр, получен тип %d", msgType)
		}
		if !json.Valid(data) {
			t.Fatalf("поврежденный кадр: %q", data)
		}
	}

	wg.Wait()
}

func TestHubRemoveClientIsIdempotent(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	_, serverConn, cleanup := dialHubClient(t, hub)
	defer cleanup()

	if hub.GetClientsCount() != 1 {
		t.Fatalf("клиентов в хабе: %d, ожидался 1", hub.GetClientsCount())
	}

	hub.RemoveClient(serverConn)
	if hub.GetClientsCount() != 0 {
		t.Fatal("клиент не удален из хаба")
	}
	if hub.SendTo(serverConn, []byte(`{}`)) {
		t.Error("SendTo отключенному клиенту должен вернуть false")
	}

	// Повторное удаление (писатель и сессия могут сработать одновременно)
	hub.RemoveClient(serverConn)
}
