package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupplierStatus представляет статус поставщика
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "Active"   // Активный
	SupplierStatusArchived SupplierStatus = "Archived" // Архивирован
)

// Supplier представляет поставщика продуктов для кейтеринга
type Supplier struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(255);not null"`
	FullLegalName string         `json:"full_legal_name" gorm:"type:varchar(500)"`   // Полное юридическое название
	TaxID         string         `json:"tax_id" gorm:"type:varchar(20);uniqueIndex"` // НИТ/ИНН (уникальный)
	Status        SupplierStatus `json:"status" gorm:"type:varchar(20);default:'Active';index"`

	// Условия работы
	PaymentTerms  string  `json:"payment_terms" gorm:"type:varchar(255)"`
	PaymentMethod string  `json:"payment_method" gorm:"type:varchar(50);default:'bank'"` // 'bank', 'cash'
	CreditLimit   float64 `json:"credit_limit" gorm:"type:decimal(15,2);default:0"`

	// Контактная информация
	ContactPerson string `json:"contact_person" gorm:"type:varchar(255)"`
	Phone         string `json:"phone" gorm:"type:varchar(50)"`
	Email         string `json:"email" gorm:"type:varchar(255)"`
	Address       string `json:"address" gorm:"type:varchar(500)"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Products []SupplierProduct `gorm:"foreignKey:SupplierID" json:"products,omitempty"`
}

// TableName указывает имя таблицы
func (Supplier) TableName() string {
	return "suppliers"
}

// BeforeCreate генерирует UUID и устанавливает значения по умолчанию
func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = SupplierStatusActive
	}
	return nil
}

// SupplierProduct представляет позицию каталога поставщика
type SupplierProduct struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	SupplierID string    `json:"supplier_id" gorm:"type:uuid;not null;index"`
	Supplier   *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`

	SKU      string  `json:"sku" gorm:"type:varchar(100);index;not null"` // Уникален в рамках поставщика
	Name     string  `json:"name" gorm:"type:varchar(255);not null"`
	Category string  `json:"category" gorm:"type:varchar(100)"`
	Unit     string  `json:"unit" gorm:"type:varchar(20);not null;default:'kg'"` // kg, l, pcs, box
	Price    float64 `json:"price" gorm:"type:decimal(10,2);default:0"`

	IsActive  bool           `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName указывает имя таблицы
func (SupplierProduct) TableName() string {
	return "supplier_products"
}

// BeforeCreate hook для генерации UUID если не указан
func (p *SupplierProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// ImportValidationResult представляет результат валидации одной строки импорта каталога
type ImportValidationResult struct {
	Row      int                    `json:"row"`
	Item     map[string]interface{} `json:"item"`
	Status   string                 `json:"status"` // success, warning, error
	Errors   []string               `json:"errors"`
	Warnings []string               `json:"warnings"`
}

// ImportResult представляет результат массового импорта каталога
type ImportResult struct {
	ImportedCount int                      `json:"imported_count"`
	ErrorCount    int                      `json:"error_count"`
	WarningCount  int                      `json:"warning_count"`
	Errors        []string                 `json:"errors,omitempty"`
	Validation    []ImportValidationResult `json:"validation,omitempty"`
}
