package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmployeeStatus представляет статус сотрудника
type EmployeeStatus string

const (
	EmployeeStatusActive     EmployeeStatus = "Active"     // Работает
	EmployeeStatusOnLeave    EmployeeStatus = "OnLeave"    // В отпуске / на больничном
	EmployeeStatusTerminated EmployeeStatus = "Terminated" // Уволен
)

// Employee представляет сотрудника кейтеринга (модуль кадров и охраны труда)
type Employee struct {
	ID         string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name       string         `json:"name" gorm:"type:varchar(255);not null"`
	DocumentID string         `json:"document_id" gorm:"type:varchar(50);uniqueIndex;not null"` // Номер удостоверения личности
	Phone      string         `json:"phone" gorm:"type:varchar(20)"`
	Email      string         `json:"email" gorm:"type:varchar(255)"`
	Position   string         `json:"position" gorm:"type:varchar(100);not null"` // Должность
	Status     EmployeeStatus `json:"status" gorm:"type:varchar(20);default:'Active';index"`
	HiredAt    time.Time      `json:"hired_at" gorm:"type:date"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	SafetyDocuments []SafetyDocument `gorm:"foreignKey:EmployeeID" json:"safety_documents,omitempty"`
}

// TableName возвращает имя таблицы
func (Employee) TableName() string {
	return "employees"
}

// BeforeCreate генерирует UUID
func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// CanTransitionTo проверяет, разрешен ли переход статуса (State Machine)
func (e *Employee) CanTransitionTo(newStatus EmployeeStatus) bool {
	currentStatus := e.Status

	// Terminated -> ANY: запрещено, увольнение финально
	if currentStatus == EmployeeStatusTerminated {
		return false
	}

	allowedTransitions := map[EmployeeStatus][]EmployeeStatus{
		EmployeeStatusActive:  {EmployeeStatusOnLeave, EmployeeStatusTerminated},
		EmployeeStatusOnLeave: {EmployeeStatusActive, EmployeeStatusTerminated},
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

// SafetyDocumentType представляет тип документа охраны труда (СОТ)
type SafetyDocumentType string

const (
	SafetyDocMedicalExam    SafetyDocumentType = "medical_exam"    // Медосмотр
	SafetyDocFoodHandling   SafetyDocumentType = "food_handling"   // Санитарная книжка
	SafetyDocSafetyTraining SafetyDocumentType = "safety_training" // Инструктаж по технике безопасности
	SafetyDocInsurance      SafetyDocumentType = "insurance"       // Страховка
)

// SafetyDocument представляет документ охраны труда сотрудника
type SafetyDocument struct {
	ID         string             `json:"id" gorm:"type:uuid;primaryKey"`
	EmployeeID string             `json:"employee_id" gorm:"type:uuid;not null;index"`
	Type       SafetyDocumentType `json:"type" gorm:"type:varchar(50);not null"`
	Number     string             `json:"number" gorm:"type:varchar(100)"`
	IssuedAt   time.Time          `json:"issued_at" gorm:"type:date;not null"`
	ExpiresAt  *time.Time         `json:"expires_at" gorm:"type:date;index"` // NULL = бессрочный
	FileURL    string             `json:"file_url" gorm:"type:varchar(500)"` // Скан документа в хранилище
	Notes      string             `json:"notes" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName возвращает имя таблицы
func (SafetyDocument) TableName() string {
	return "safety_documents"
}

// BeforeCreate генерирует UUID
func (d *SafetyDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// IsExpiringWithin проверяет, истекает ли документ в течение указанного срока
func (d *SafetyDocument) IsExpiringWithin(days int) bool {
	if d.ExpiresAt == nil {
		return false
	}
	deadline := time.Now().AddDate(0, 0, days)
	return d.ExpiresAt.Before(deadline)
}
