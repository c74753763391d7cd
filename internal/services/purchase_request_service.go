package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"catererp/server/internal/models"
)

// Ошибки модуля заявок на закупку
var (
	ErrRequestNotFound      = errors.New("заявка не найдена")
	ErrRequestNotEditable   = errors.New("редактировать можно только черновик")
	ErrInvalidStatusChange  = errors.New("недопустимый переход статуса заявки")
	ErrSupplierArchived     = errors.New("поставщик архивирован, новые заявки на него не создаются")
	ErrRequestItemsRequired = errors.New("заявка должна содержать хотя бы одну позицию")
)

// PurchaseRequestService управляет заявками на закупку продуктов
type PurchaseRequestService struct {
	db     *gorm.DB
	events *EventPublisher // Kafka-события смены статусов (опционально)
}

// NewPurchaseRequestService создает новый экземпляр PurchaseRequestService
func NewPurchaseRequestService(db *gorm.DB) *PurchaseRequestService {
	return &PurchaseRequestService{db: db}
}

// SetEventPublisher подключает публикацию доменных событий в Kafka
func (s *PurchaseRequestService) SetEventPublisher(events *EventPublisher) {
	s.events = events
}

// GetPurchaseRequests возвращает список заявок с фильтрацией по статусу и поставщику
func (s *PurchaseRequestService) GetPurchaseRequests(status, supplierID string, limit int) ([]models.PurchaseRequest, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.PurchaseRequest{}).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		Order("request_date DESC, created_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	var requests []models.PurchaseRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения заявок: %w", err)
	}
	return requests, nil
}

// GetPurchaseRequest возвращает заявку по ID
func (s *PurchaseRequestService) GetPurchaseRequest(id string) (*models.PurchaseRequest, error) {
	var request models.PurchaseRequest
	if err := s.db.
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

// CreatePurchaseRequest создает новую заявку на закупку (в статусе draft)
func (s *PurchaseRequestService) CreatePurchaseRequest(request *models.PurchaseRequest) error {
	if request.CreatedBy == "" {
		return fmt.Errorf("не указан автор заявки")
	}
	if len(request.Items) == 0 {
		return ErrRequestItemsRequired
	}

	// Заявку нельзя создать на архивного поставщика
	if request.SupplierID != nil {
		var supplier models.Supplier
		if err := s.db.First(&supplier, "id = ?", *request.SupplierID).Error; err != nil {
			return fmt.Errorf("поставщик не найден: %w", err)
		}
		if supplier.Status == models.SupplierStatusArchived {
			return ErrSupplierArchived
		}
	}

	request.TotalAmount = calculateRequestTotal(request.Items)

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	number, err := s.nextRequestNumber(tx)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("не удалось сгенерировать номер заявки: %w", err)
	}
	request.RequestNumber = number

	if err := tx.Create(request).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("ошибка сохранения заявки: %w", err)
	}

	s.publishStatusEvent(request, "created")
	return nil
}

// UpdatePurchaseRequest обновляет заявку: позиции и реквизиты меняются только в черновике
func (s *PurchaseRequestService) UpdatePurchaseRequest(id string, updated *models.PurchaseRequest) (*models.PurchaseRequest, error) {
	request, err := s.GetPurchaseRequest(id)
	if err != nil {
		return nil, err
	}

	if request.Status != models.RequestStatusDraft {
		return nil, ErrRequestNotEditable
	}
	if len(updated.Items) == 0 {
		return nil, ErrRequestItemsRequired
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Позиции пересоздаются целиком: клиент присылает полный список
	if err := tx.Where("purchase_request_id = ?", id).Delete(&models.PurchaseRequestItem{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка обновления позиций: %w", err)
	}
	for i := range updated.Items {
		updated.Items[i].ID = ""
		updated.Items[i].PurchaseRequestID = id
		if err := tx.Create(&updated.Items[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка сохранения позиции: %w", err)
		}
	}

	updates := map[string]interface{}{
		"supplier_id":    updated.SupplierID,
		"needed_by_date": updated.NeededByDate,
		"notes":          updated.Notes,
		"total_amount":   calculateRequestTotal(updated.Items),
	}
	if err := tx.Model(&models.PurchaseRequest{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка обновления заявки: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения заявки: %w", err)
	}

	return s.GetPurchaseRequest(id)
}

// UpdateStatus переводит заявку в новый статус согласно state machine
// performedBy записывается в approved_by при согласовании/отклонении
func (s *PurchaseRequestService) UpdateStatus(id string, newStatus models.PurchaseRequestStatus, performedBy string) (*models.PurchaseRequest, error) {
	request, err := s.GetPurchaseRequest(id)
	if err != nil {
		return nil, err
	}

	if !request.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, request.Status, newStatus)
	}

	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.RequestStatusApproved || newStatus == models.RequestStatusRejected {
		updates["approved_by"] = performedBy
	}

	if err := s.db.Model(request).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка смены статуса заявки: %w", err)
	}
	request.Status = newStatus

	s.publishStatusEvent(request, string(newStatus))
	return request, nil
}

// DeletePurchaseRequest удаляет заявку (soft delete), только черновики
func (s *PurchaseRequestService) DeletePurchaseRequest(id string) error {
	request, err := s.GetPurchaseRequest(id)
	if err != nil {
		return err
	}
	if request.Status != models.RequestStatusDraft {
		return ErrRequestNotEditable
	}
	return s.db.Delete(&models.PurchaseRequest{}, "id = ?", id).Error
}

// nextRequestNumber генерирует следующий номер заявки в формате SOL-2026-001
// Нумерация сквозная в пределах года, включая удаленные заявки
func (s *PurchaseRequestService) nextRequestNumber(tx *gorm.DB) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("SOL-%d-", year)

	var count int64
	if err := tx.Unscoped().Model(&models.PurchaseRequest{}).
		Where("request_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// publishStatusEvent публикует доменное событие смены статуса заявки
func (s *PurchaseRequestService) publishStatusEvent(request *models.PurchaseRequest, action string) {
	if s.events == nil {
		return
	}
	s.events.PublishAsync("purchase_request."+action, map[string]interface{}{
		"request_id":     request.ID,
		"request_number": request.RequestNumber,
		"status":         string(request.Status),
	})
}

// calculateRequestTotal считает общую сумму заявки по позициям
func calculateRequestTotal(items []models.PurchaseRequestItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Quantity * item.UnitPrice
	}
	return total
}
