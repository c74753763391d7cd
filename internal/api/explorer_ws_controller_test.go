package api

import (
	"testing"
	"time"

	"catererp/server/internal/services"
)

// Ввод короче двух рун поиск не запускает и отменяет уже отложенный запрос
func TestShortSearchTermDoesNotTriggerSearch(t *testing.T) {
	session := &explorerSession{
		expanded:  make(map[string]bool),
		debouncer: services.NewSearchDebouncer(20 * time.Millisecond),
	}

	fired := make(chan string, 1)
	session.debouncer.Schedule("борщ", func(term string, gen uint64) {
		fired <- term
	})

	// Клиент стер ввод до одной буквы
	session.handle(ExplorerMessage{Type: "search", Term: " б "})

	select {
	case term := <-fired:
		t.Fatalf("поиск не должен был выполниться, но выполнился для %q", term)
	case <-time.After(100 * time.Millisecond):
	}
}
