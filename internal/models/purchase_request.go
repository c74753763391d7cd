package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseRequestStatus представляет статус заявки на закупку
type PurchaseRequestStatus string

const (
	RequestStatusDraft     PurchaseRequestStatus = "draft"     // Черновик
	RequestStatusSubmitted PurchaseRequestStatus = "submitted" // Отправлена на согласование
	RequestStatusApproved  PurchaseRequestStatus = "approved"  // Согласована
	RequestStatusRejected  PurchaseRequestStatus = "rejected"  // Отклонена
	RequestStatusCompleted PurchaseRequestStatus = "completed" // Закрыта поступлением
)

// PurchaseRequest представляет заявку на закупку продуктов
type PurchaseRequest struct {
	ID            string                `json:"id" gorm:"type:uuid;primaryKey"`
	RequestNumber string                `json:"request_number" gorm:"type:varchar(100);uniqueIndex;not null"` // SOL-2026-001
	SupplierID    *string               `json:"supplier_id" gorm:"type:uuid;index"`
	Supplier      *Supplier             `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status        PurchaseRequestStatus `json:"status" gorm:"type:varchar(50);default:'draft';index"`

	RequestDate  time.Time  `json:"request_date" gorm:"type:date;not null;index"`
	NeededByDate *time.Time `json:"needed_by_date" gorm:"type:date"`
	TotalAmount  float64    `json:"total_amount" gorm:"type:decimal(15,2);not null;default:0"`

	// Ответственные лица
	CreatedBy  string  `json:"created_by" gorm:"type:varchar(255);not null"` // Username автора заявки
	ApprovedBy *string `json:"approved_by" gorm:"type:varchar(255)"`
	Notes      string  `json:"notes" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Items []PurchaseRequestItem `gorm:"foreignKey:PurchaseRequestID" json:"items,omitempty"`
}

// TableName указывает имя таблицы
func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// BeforeCreate генерирует UUID и устанавливает значения по умолчанию
func (pr *PurchaseRequest) BeforeCreate(tx *gorm.DB) error {
	if pr.ID == "" {
		pr.ID = uuid.New().String()
	}
	if pr.Status == "" {
		pr.Status = RequestStatusDraft
	}
	if pr.RequestDate.IsZero() {
		pr.RequestDate = time.Now()
	}
	return nil
}

// CanTransitionTo проверяет, разрешен ли переход статуса (State Machine)
func (pr *PurchaseRequest) CanTransitionTo(newStatus PurchaseRequestStatus) bool {
	currentStatus := pr.Status

	// Завершенные и отклоненные заявки не меняют статус
	if currentStatus == RequestStatusCompleted || currentStatus == RequestStatusRejected {
		return false
	}

	allowedTransitions := map[PurchaseRequestStatus][]PurchaseRequestStatus{
		RequestStatusDraft:     {RequestStatusSubmitted},
		RequestStatusSubmitted: {RequestStatusApproved, RequestStatusRejected, RequestStatusDraft},
		RequestStatusApproved:  {RequestStatusCompleted},
	}

	if allowed, ok := allowedTransitions[currentStatus]; ok {
		for _, allowedStatus := range allowed {
			if allowedStatus == newStatus {
				return true
			}
		}
	}

	return false
}

// PurchaseRequestItem представляет позицию заявки на закупку
type PurchaseRequestItem struct {
	ID                string           `json:"id" gorm:"type:uuid;primaryKey"`
	PurchaseRequestID string           `json:"purchase_request_id" gorm:"type:uuid;not null;index"`
	ProductID         *string          `json:"product_id" gorm:"type:uuid;index"` // Позиция каталога поставщика (если выбрана)
	Product           *SupplierProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Name      string  `json:"name" gorm:"type:varchar(255);not null"` // Свободный текст, если позиции нет в каталоге
	Unit      string  `json:"unit" gorm:"type:varchar(20);not null;default:'kg'"`
	Quantity  float64 `json:"quantity" gorm:"type:decimal(10,2);not null"`
	UnitPrice float64 `json:"unit_price" gorm:"type:decimal(10,2);default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (PurchaseRequestItem) TableName() string {
	return "purchase_request_items"
}

// BeforeCreate hook для генерации UUID если не указан
func (i *PurchaseRequestItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
