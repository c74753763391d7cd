package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus представляет статус входящей накладной
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"     // Черновик
	InvoiceStatusCompleted InvoiceStatus = "completed" // Проведена
	InvoiceStatusCancelled InvoiceStatus = "cancelled" // Отменена
)

// Invoice представляет входящую накладную от поставщика
type Invoice struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	Number     string    `json:"number" gorm:"type:varchar(100);not null;index"` // Внешний номер накладной
	SupplierID *string   `json:"supplier_id" gorm:"type:uuid;index"`
	Supplier   *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`

	// Связь с заявкой на закупку (накладная может закрывать заявку)
	PurchaseRequestID *string          `json:"purchase_request_id" gorm:"type:uuid;index"`
	PurchaseRequest   *PurchaseRequest `gorm:"foreignKey:PurchaseRequestID" json:"purchase_request,omitempty"`

	TotalAmount float64       `json:"total_amount" gorm:"type:decimal(15,2);not null"`
	Status      InvoiceStatus `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	InvoiceDate time.Time     `json:"invoice_date" gorm:"not null;index"`
	IsPaidCash  bool          `json:"is_paid_cash" gorm:"default:false"`     // Оплачено наличными
	PerformedBy string        `json:"performed_by" gorm:"type:varchar(255)"` // Кто обработал накладную
	FileURL     string        `json:"file_url" gorm:"type:varchar(500)"`     // Ссылка на скан накладной в хранилище
	Notes       string        `json:"notes" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// TableName указывает имя таблицы
func (Invoice) TableName() string {
	return "invoices"
}

// BeforeCreate генерирует UUID и устанавливает значения по умолчанию
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = InvoiceStatusDraft
	}
	if i.InvoiceDate.IsZero() {
		i.InvoiceDate = time.Now()
	}
	return nil
}

// InvoiceItem представляет позицию накладной
type InvoiceItem struct {
	ID        string           `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceID string           `json:"invoice_id" gorm:"type:uuid;not null;index"`
	ProductID *string          `json:"product_id" gorm:"type:uuid;index"`
	Product   *SupplierProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Name      string  `json:"name" gorm:"type:varchar(255);not null"`
	Unit      string  `json:"unit" gorm:"type:varchar(20);not null;default:'kg'"`
	Quantity  float64 `json:"quantity" gorm:"type:decimal(10,2);not null"`
	UnitPrice float64 `json:"unit_price" gorm:"type:decimal(10,2);not null"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// BeforeCreate hook для генерации UUID если не указан
func (ii *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if ii.ID == "" {
		ii.ID = uuid.New().String()
	}
	return nil
}
