package models

import (
	"testing"
	"time"
)

func TestEmployeeTransitions(t *testing.T) {
	tests := []struct {
		from    EmployeeStatus
		to      EmployeeStatus
		allowed bool
	}{
		{EmployeeStatusActive, EmployeeStatusOnLeave, true},
		{EmployeeStatusActive, EmployeeStatusTerminated, true},
		{EmployeeStatusOnLeave, EmployeeStatusActive, true},
		{EmployeeStatusOnLeave, EmployeeStatusTerminated, true},
		{EmployeeStatusTerminated, EmployeeStatusActive, false}, // Увольнение финально
		{EmployeeStatusTerminated, EmployeeStatusOnLeave, false},
	}

	for _, tt := range tests {
		e := &Employee{Status: tt.from}
		if got := e.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("переход %s -> %s: получено %v, ожидалось %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestSafetyDocumentIsExpiringWithin(t *testing.T) {
	in10Days := time.Now().AddDate(0, 0, 10)
	in60Days := time.Now().AddDate(0, 0, 60)
	yesterday := time.Now().AddDate(0, 0, -1)

	tests := []struct {
		name      string
		expiresAt *time.Time
		days      int
		want      bool
	}{
		{"истекает в пределах горизонта", &in10Days, 30, true},
		{"истекает за горизонтом", &in60Days, 30, false},
		{"уже просрочен", &yesterday, 30, true},
		{"бессрочный документ", nil, 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &SafetyDocument{ExpiresAt: tt.expiresAt}
			if got := doc.IsExpiringWithin(tt.days); got != tt.want {
				t.Errorf("IsExpiringWithin(%d) = %v, want %v", tt.days, got, tt.want)
			}
		})
	}
}
