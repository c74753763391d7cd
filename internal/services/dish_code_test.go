package services

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestNextDishCode(t *testing.T) {
	tests := []struct {
		name       string
		parentCode string
		children   []string
		want       string
	}{
		{
			name:       "первый ребенок у пустой ветки",
			parentCode: "2.03",
			children:   nil,
			want:       "2.03.01",
		},
		{
			name:       "следующий номер после существующих",
			parentCode: "2.03",
			children:   []string{"2.03.01", "2.03.02"},
			want:       "2.03.03",
		},
		{
			name:       "дыры в нумерации не заполняются",
			parentCode: "2.01",
			children:   []string{"2.01.01", "2.01.05"},
			want:       "2.01.06",
		},
		{
			name:       "порядок кодов в списке не важен",
			parentCode: "2",
			children:   []string{"2.07", "2.02", "2.04"},
			want:       "2.08",
		},
		{
			name:       "нечисловые сегменты пропускаются",
			parentCode: "2.05",
			children:   []string{"2.05.legacy", "2.05.02"},
			want:       "2.05.03",
		},
		{
			name:       "номер больше 99 не обрезается",
			parentCode: "2.01",
			children:   []string{"2.01.99", "2.01.112"},
			want:       "2.01.113",
		},
		{
			name:       "глубокая ветка пятого уровня",
			parentCode: "2.01.03.07",
			children:   []string{"2.01.03.07.01"},
			want:       "2.01.03.07.02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDishCode(tt.parentCode, tt.children)
			if got != tt.want {
				t.Errorf("NextDishCode(%q, %v) = %q, want %q", tt.parentCode, tt.children, got, tt.want)
			}
		})
	}
}

// Свойство: сгенерированный код всегда имеет префикс родителя и числовой
// суффикс строго больше любого существующего
func TestNextDishCodeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		parentCode := rapid.StringMatching(`2(\.[0-9]{2}){0,3}`).Draw(t, "parent")

		suffixes := rapid.SliceOfN(rapid.IntRange(1, 500), 0, 20).Draw(t, "suffixes")
		children := make([]string, 0, len(suffixes))
		maxSuffix := 0
		for _, n := range suffixes {
			children = append(children, fmt.Sprintf("%s.%02d", parentCode, n))
			if n > maxSuffix {
				maxSuffix = n
			}
		}

		code := NextDishCode(parentCode, children)

		if !strings.HasPrefix(code, parentCode+".") {
			t.Fatalf("код %q не начинается с префикса родителя %q", code, parentCode)
		}

		segments := strings.Split(code, ".")
		last, err := strconv.Atoi(segments[len(segments)-1])
		if err != nil {
			t.Fatalf("суффикс кода %q не число: %v", code, err)
		}
		if last != maxSuffix+1 {
			t.Fatalf("суффикс %d, ожидался %d (дети: %v)", last, maxSuffix+1, children)
		}
	})
}
