package models

import "testing"

func TestPurchaseRequestTransitions(t *testing.T) {
	tests := []struct {
		from    PurchaseRequestStatus
		to      PurchaseRequestStatus
		allowed bool
	}{
		{RequestStatusDraft, RequestStatusSubmitted, true},
		{RequestStatusDraft, RequestStatusApproved, false}, // Мимо согласования нельзя
		{RequestStatusDraft, RequestStatusCompleted, false},
		{RequestStatusSubmitted, RequestStatusApproved, true},
		{RequestStatusSubmitted, RequestStatusRejected, true},
		{RequestStatusSubmitted, RequestStatusDraft, true}, // Возврат на доработку
		{RequestStatusApproved, RequestStatusCompleted, true},
		{RequestStatusApproved, RequestStatusDraft, false},
		{RequestStatusApproved, RequestStatusRejected, false},
		{RequestStatusCompleted, RequestStatusDraft, false}, // Закрытая заявка финальна
		{RequestStatusCompleted, RequestStatusSubmitted, false},
		{RequestStatusRejected, RequestStatusDraft, false}, // Отклоненная тоже
		{RequestStatusRejected, RequestStatusSubmitted, false},
	}

	for _, tt := range tests {
		pr := &PurchaseRequest{Status: tt.from}
		if got := pr.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("переход %s -> %s: получено %v, ожидалось %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestPurchaseRequestNoSelfTransition(t *testing.T) {
	statuses := []PurchaseRequestStatus{
		RequestStatusDraft, RequestStatusSubmitted, RequestStatusApproved,
		RequestStatusRejected, RequestStatusCompleted,
	}
	for _, status := range statuses {
		pr := &PurchaseRequest{Status: status}
		if pr.CanTransitionTo(status) {
			t.Errorf("переход %s -> %s не должен быть разрешен", status, status)
		}
	}
}
