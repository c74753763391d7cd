package services

import (
	"sync"
	"time"
)

// SearchDebouncer откладывает выполнение поиска до паузы во вводе
// Новый ввод в пределах окна отменяет отложенный запрос; результат
// устаревшего запроса отбрасывается по номеру поколения
type SearchDebouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	gen    uint64
}

// NewSearchDebouncer создает дебаунсер с указанным окном
func NewSearchDebouncer(window time.Duration) *SearchDebouncer {
	return &SearchDebouncer{window: window}
}

// Schedule планирует вызов fire(term, gen) после окна тишины
// Повторный вызов до истечения окна отменяет предыдущий таймер целиком
func (d *SearchDebouncer) Schedule(term string, fire func(term string, gen uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		fire(term, gen)
	})
}

// Cancel останавливает отложенный запрос, если он есть
func (d *SearchDebouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Stale сообщает, был ли запрос данного поколения вытеснен более новым вводом
// Результат устаревшего поколения применять нельзя
func (d *SearchDebouncer) Stale(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen != d.gen
}
