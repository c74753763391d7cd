package services

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncerFiresAfterQuietWindow(t *testing.T) {
	d := NewSearchDebouncer(30 * time.Millisecond)

	fired := make(chan string, 1)
	d.Schedule("борщ", func(term string, gen uint64) {
		fired <- term
	})

	select {
	case term := <-fired:
		if term != "борщ" {
			t.Errorf("сработал запрос %q, ожидался %q", term, "борщ")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("поиск не сработал после паузы во вводе")
	}
}

func TestDebouncerCoalescesRapidInput(t *testing.T) {
	d := NewSearchDebouncer(50 * time.Millisecond)

	var mu sync.Mutex
	var fired []string
	done := make(chan struct{})

	// Пользователь набирает слово по буквам быстрее окна дебаунса
	for _, term := range []string{"бо", "бор", "борщ"} {
		last := term == "борщ"
		d.Schedule(term, func(term string, gen uint64) {
			mu.Lock()
			fired = append(fired, term)
			mu.Unlock()
			if last {
				close(done)
			}
		})
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("финальный запрос так и не сработал")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != "борщ" {
		t.Errorf("сработали запросы %v, ожидался только финальный %q", fired, "борщ")
	}
}

func TestDebouncerCancelStopsPendingSearch(t *testing.T) {
	d := NewSearchDebouncer(30 * time.Millisecond)

	fired := make(chan struct{}, 1)
	d.Schedule("салат", func(term string, gen uint64) {
		fired <- struct{}{}
	})
	d.Cancel()

	select {
	case <-fired:
		t.Error("отмененный поиск не должен срабатывать")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestStaleGenerationIsDetected(t *testing.T) {
	d := NewSearchDebouncer(10 * time.Millisecond)

	type result struct {
		term string
		gen  uint64
	}
	fired := make(chan result, 2)

	d.Schedule("пер", func(term string, gen uint64) {
		fired <- result{term, gen}
	})

	var first result
	select {
	case first = <-fired:
	case <-time.After(time.Second):
		t.Fatal("первый запрос не сработал")
	}

	// Пока "выполняется" первый запрос, пользователь продолжил ввод
	d.Schedule("перец", func(term string, gen uint64) {
		fired <- result{term, gen}
	})

	// Поколение первого запроса устарело — его результат отбрасывается
	if !d.Stale(first.gen) {
		t.Error("поколение вытесненного запроса должно считаться устаревшим")
	}

	var second result
	select {
	case second = <-fired:
	case <-time.After(time.Second):
		t.Fatal("второй запрос не сработал")
	}
	if d.Stale(second.gen) {
		t.Error("поколение последнего запроса не должно быть устаревшим")
	}
	if second.term != "перец" {
		t.Errorf("второй запрос %q, ожидался %q", second.term, "перец")
	}
}
