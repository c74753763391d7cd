package models

import "testing"

func TestCanHaveChildren(t *testing.T) {
	tests := []struct {
		name string
		node DishNode
		want bool
	}{
		{"категория второго уровня", DishNode{Level: 2, IsLeaf: false}, true},
		{"категория четвертого уровня", DishNode{Level: 4, IsLeaf: false}, true},
		{"блюдо на любом уровне", DishNode{Level: 3, IsLeaf: true}, false},
		{"узел на максимальной глубине", DishNode{Level: DishNodeMaxLevel, IsLeaf: false}, false},
		{"блюдо на максимальной глубине", DishNode{Level: DishNodeMaxLevel, IsLeaf: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.CanHaveChildren(); got != tt.want {
				t.Errorf("CanHaveChildren() = %v, want %v (level=%d, isLeaf=%v)",
					got, tt.want, tt.node.Level, tt.node.IsLeaf)
			}
		})
	}
}

func TestInvoiceDefaultsOnCreate(t *testing.T) {
	inv := &Invoice{}
	if err := inv.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if inv.ID == "" {
		t.Error("ID не сгенерирован")
	}
	if inv.Status != InvoiceStatusDraft {
		t.Errorf("статус по умолчанию %s, ожидался %s", inv.Status, InvoiceStatusDraft)
	}
	if inv.InvoiceDate.IsZero() {
		t.Error("дата накладной не установлена")
	}
}
