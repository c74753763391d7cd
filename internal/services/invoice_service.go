package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"catererp/server/internal/models"
)

// Ошибки модуля накладных
var (
	ErrInvoiceNotFound      = errors.New("накладная не найдена")
	ErrInvoiceNotEditable   = errors.New("редактировать можно только черновик накладной")
	ErrInvoiceStatusChange  = errors.New("недопустимый переход статуса накладной")
	ErrInvoiceItemsRequired = errors.New("накладная должна содержать хотя бы одну позицию")
)

// InvoiceService управляет входящими накладными от поставщиков
type InvoiceService struct {
	db     *gorm.DB
	events *EventPublisher
}

// NewInvoiceService создает новый экземпляр InvoiceService
func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// SetEventPublisher подключает публикацию доменных событий в Kafka
func (s *InvoiceService) SetEventPublisher(events *EventPublisher) {
	s.events = events
}

// GetInvoices возвращает список накладных с фильтрацией
func (s *InvoiceService) GetInvoices(status, supplierID string, limit int) ([]models.Invoice, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.Invoice{}).
		Preload("Supplier").
		Preload("Items").
		Order("invoice_date DESC, created_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	var invoices []models.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения накладных: %w", err)
	}
	return invoices, nil
}

// GetInvoice возвращает накладную по ID
func (s *InvoiceService) GetInvoice(id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.
		Preload("Supplier").
		Preload("PurchaseRequest").
		Preload("Items").
		Preload("Items.Product").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// CreateInvoice создает накладную в статусе draft
func (s *InvoiceService) CreateInvoice(invoice *models.Invoice) error {
	if invoice.Number == "" {
		return fmt.Errorf("не указан номер накладной")
	}
	if len(invoice.Items) == 0 {
		return ErrInvoiceItemsRequired
	}

	// Накладная может закрывать только согласованную заявку
	if invoice.PurchaseRequestID != nil {
		var request models.PurchaseRequest
		if err := s.db.First(&request, "id = ?", *invoice.PurchaseRequestID).Error; err != nil {
			return fmt.Errorf("заявка не найдена: %w", err)
		}
		if request.Status != models.RequestStatusApproved {
			return fmt.Errorf("накладную можно привязать только к согласованной заявке (текущий статус: %s)", request.Status)
		}
	}

	invoice.TotalAmount = calculateInvoiceTotal(invoice.Items)

	if err := s.db.Create(invoice).Error; err != nil {
		return fmt.Errorf("ошибка создания накладной: %w", err)
	}

	s.publishInvoiceEvent(invoice, "created")
	return nil
}

// UpdateInvoice обновляет черновик накладной
func (s *InvoiceService) UpdateInvoice(id string, updated *models.Invoice) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return nil, ErrInvoiceNotEditable
	}
	if len(updated.Items) == 0 {
		return nil, ErrInvoiceItemsRequired
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка обновления позиций: %w", err)
	}
	for i := range updated.Items {
		updated.Items[i].ID = ""
		updated.Items[i].InvoiceID = id
		if err := tx.Create(&updated.Items[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка сохранения позиции: %w", err)
		}
	}

	updates := map[string]interface{}{
		"number":       updated.Number,
		"supplier_id":  updated.SupplierID,
		"invoice_date": updated.InvoiceDate,
		"is_paid_cash": updated.IsPaidCash,
		"file_url":     updated.FileURL,
		"notes":        updated.Notes,
		"total_amount": calculateInvoiceTotal(updated.Items),
	}
	if err := tx.Model(&models.Invoice{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка обновления накладной: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения накладной: %w", err)
	}

	return s.GetInvoice(id)
}

// CompleteInvoice проводит накладную; привязанная заявка закрывается поступлением
func (s *InvoiceService) CompleteInvoice(id, performedBy string) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvoiceStatusChange, invoice.Status, models.InvoiceStatusCompleted)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	updates := map[string]interface{}{
		"status":       models.InvoiceStatusCompleted,
		"performed_by": performedBy,
	}
	if err := tx.Model(invoice).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка проведения накладной: %w", err)
	}

	// Проведение накладной закрывает привязанную заявку: approved -> completed
	if invoice.PurchaseRequestID != nil {
		var request models.PurchaseRequest
		if err := tx.First(&request, "id = ?", *invoice.PurchaseRequestID).Error; err == nil {
			if request.CanTransitionTo(models.RequestStatusCompleted) {
				if err := tx.Model(&request).Update("status", models.RequestStatusCompleted).Error; err != nil {
					tx.Rollback()
					return nil, fmt.Errorf("ошибка закрытия заявки: %w", err)
				}
				log.Printf("✅ Заявка %s закрыта накладной %s", request.RequestNumber, invoice.Number)
			} else {
				log.Printf("⚠️ Заявка %s в статусе %s не может быть закрыта накладной", request.RequestNumber, request.Status)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения накладной: %w", err)
	}

	invoice.Status = models.InvoiceStatusCompleted
	invoice.PerformedBy = performedBy

	s.publishInvoiceEvent(invoice, "completed")
	return invoice, nil
}

// CancelInvoice отменяет черновик накладной
func (s *InvoiceService) CancelInvoice(id, performedBy string) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvoiceStatusChange, invoice.Status, models.InvoiceStatusCancelled)
	}

	updates := map[string]interface{}{
		"status":       models.InvoiceStatusCancelled,
		"performed_by": performedBy,
	}
	if err := s.db.Model(invoice).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка отмены накладной: %w", err)
	}
	invoice.Status = models.InvoiceStatusCancelled

	s.publishInvoiceEvent(invoice, "cancelled")
	return invoice, nil
}

// DeleteInvoice удаляет накладную (soft delete), только черновики
func (s *InvoiceService) DeleteInvoice(id string) error {
	invoice, err := s.GetInvoice(id)
	if err != nil {
		return err
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return ErrInvoiceNotEditable
	}
	return s.db.Delete(&models.Invoice{}, "id = ?", id).Error
}

// publishInvoiceEvent публикует доменное событие накладной
func (s *InvoiceService) publishInvoiceEvent(invoice *models.Invoice, action string) {
	if s.events == nil {
		return
	}
	s.events.PublishAsync("invoice."+action, map[string]interface{}{
		"invoice_id": invoice.ID,
		"number":     invoice.Number,
		"status":     string(invoice.Status),
	})
}

// calculateInvoiceTotal считает общую сумму накладной по позициям
func calculateInvoiceTotal(items []models.InvoiceItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Quantity * item.UnitPrice
	}
	return total
}
