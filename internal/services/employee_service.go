package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"catererp/server/internal/models"
)

// Ошибки кадрового модуля
var (
	ErrEmployeeNotFound     = errors.New("сотрудник не найден")
	ErrDocumentNotFound     = errors.New("документ не найден")
	ErrEmployeeStatusChange = errors.New("недопустимый переход статуса сотрудника")
	ErrDuplicateDocumentID  = errors.New("сотрудник с таким номером удостоверения уже существует")
)

// ExpiringDocument представляет документ с истекающим сроком действия
// для отчета модуля охраны труда
type ExpiringDocument struct {
	Document models.SafetyDocument `json:"document"`
	Employee models.Employee       `json:"employee"`
	DaysLeft int                   `json:"days_left"` // Отрицательное значение = уже просрочен
}

// EmployeeService управляет сотрудниками и документами охраны труда
type EmployeeService struct {
	db        *gorm.DB
	events    *EventPublisher
	stopCheck chan struct{}
}

// NewEmployeeService создает новый экземпляр EmployeeService
func NewEmployeeService(db *gorm.DB) *EmployeeService {
	return &EmployeeService{
		db:        db,
		stopCheck: make(chan struct{}),
	}
}

// SetEventPublisher подключает публикацию доменных событий в Kafka
func (s *EmployeeService) SetEventPublisher(events *EventPublisher) {
	s.events = events
}

// GetEmployees возвращает список сотрудников с фильтрацией по статусу
func (s *EmployeeService) GetEmployees(status string) ([]models.Employee, error) {
	query := s.db.Model(&models.Employee{}).Order("name ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var employees []models.Employee
	if err := query.Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения сотрудников: %w", err)
	}
	return employees, nil
}

// GetEmployee возвращает сотрудника с документами охраны труда
func (s *EmployeeService) GetEmployee(id string) (*models.Employee, error) {
	var employee models.Employee
	if err := s.db.Preload("SafetyDocuments").First(&employee, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

// CreateEmployee создает сотрудника, проверяя уникальность удостоверения
func (s *EmployeeService) CreateEmployee(employee *models.Employee) error {
	if employee.Name == "" || employee.DocumentID == "" || employee.Position == "" {
		return fmt.Errorf("не заполнены обязательные поля: имя, удостоверение, должность")
	}

	var existing models.Employee
	if err := s.db.Where("document_id = ?", employee.DocumentID).First(&existing).Error; err == nil {
		return ErrDuplicateDocumentID
	}

	return s.db.Create(employee).Error
}

// UpdateEmployee обновляет анкетные данные сотрудника (статус меняется отдельно)
func (s *EmployeeService) UpdateEmployee(id string, updated *models.Employee) (*models.Employee, error) {
	employee, err := s.GetEmployee(id)
	if err != nil {
		return nil, err
	}

	if updated.DocumentID != "" && updated.DocumentID != employee.DocumentID {
		var existing models.Employee
		if err := s.db.Where("document_id = ? AND id != ?", updated.DocumentID, id).First(&existing).Error; err == nil {
			return nil, ErrDuplicateDocumentID
		}
	}

	updates := map[string]interface{}{
		"name":        updated.Name,
		"document_id": updated.DocumentID,
		"phone":       updated.Phone,
		"email":       updated.Email,
		"position":    updated.Position,
	}
	if !updated.HiredAt.IsZero() {
		updates["hired_at"] = updated.HiredAt
	}

	if err := s.db.Model(employee).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления сотрудника: %w", err)
	}
	return s.GetEmployee(id)
}

// UpdateEmployeeStatus переводит сотрудника в новый статус согласно state machine
// Увольнение финально: из Terminated переходов нет
func (s *EmployeeService) UpdateEmployeeStatus(id string, newStatus models.EmployeeStatus) (*models.Employee, error) {
	employee, err := s.GetEmployee(id)
	if err != nil {
		return nil, err
	}

	if !employee.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrEmployeeStatusChange, employee.Status, newStatus)
	}

	if err := s.db.Model(employee).Update("status", newStatus).Error; err != nil {
		return nil, fmt.Errorf("ошибка смены статуса сотрудника: %w", err)
	}
	employee.Status = newStatus

	if s.events != nil {
		s.events.PublishAsync("employee.status_changed", map[string]interface{}{
			"employee_id": employee.ID,
			"status":      string(newStatus),
		})
	}
	return employee, nil
}

// DeleteEmployee удаляет сотрудника (soft delete)
func (s *EmployeeService) DeleteEmployee(id string) error {
	if _, err := s.GetEmployee(id); err != nil {
		return err
	}
	return s.db.Delete(&models.Employee{}, "id = ?", id).Error
}

// AddSafetyDocument добавляет документ охраны труда сотруднику
func (s *EmployeeService) AddSafetyDocument(employeeID string, doc *models.SafetyDocument) error {
	if _, err := s.GetEmployee(employeeID); err != nil {
		return err
	}
	if doc.Type == "" {
		return fmt.Errorf("не указан тип документа")
	}
	if doc.IssuedAt.IsZero() {
		return fmt.Errorf("не указана дата выдачи документа")
	}

	doc.EmployeeID = employeeID
	return s.db.Create(doc).Error
}

// UpdateSafetyDocument обновляет документ охраны труда
func (s *EmployeeService) UpdateSafetyDocument(docID string, updated *models.SafetyDocument) (*models.SafetyDocument, error) {
	var doc models.SafetyDocument
	if err := s.db.First(&doc, "id = ?", docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"type":       updated.Type,
		"number":     updated.Number,
		"issued_at":  updated.IssuedAt,
		"expires_at": updated.ExpiresAt,
		"file_url":   updated.FileURL,
		"notes":      updated.Notes,
	}
	if err := s.db.Model(&doc).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления документа: %w", err)
	}
	return &doc, nil
}

// DeleteSafetyDocument удаляет документ охраны труда (soft delete)
func (s *EmployeeService) DeleteSafetyDocument(docID string) error {
	var doc models.SafetyDocument
	if err := s.db.First(&doc, "id = ?", docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	return s.db.Delete(&doc).Error
}

// GetExpiringDocuments возвращает документы, истекающие в течение days дней,
// включая уже просроченные (только для работающих сотрудников)
func (s *EmployeeService) GetExpiringDocuments(days int) ([]ExpiringDocument, error) {
	if days <= 0 {
		days = 30
	}
	deadline := time.Now().AddDate(0, 0, days)

	var docs []models.SafetyDocument
	if err := s.db.Where("expires_at IS NOT NULL AND expires_at <= ?", deadline).
		Order("expires_at ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения истекающих документов: %w", err)
	}

	result := make([]ExpiringDocument, 0, len(docs))
	for _, doc := range docs {
		var employee models.Employee
		if err := s.db.First(&employee, "id = ?", doc.EmployeeID).Error; err != nil {
			continue // Сотрудник удален — документ в отчет не попадает
		}
		if employee.Status == models.EmployeeStatusTerminated {
			continue
		}

		daysLeft := int(time.Until(*doc.ExpiresAt).Hours() / 24)
		result = append(result, ExpiringDocument{
			Document: doc,
			Employee: employee,
			DaysLeft: daysLeft,
		})
	}
	return result, nil
}

// StartExpiryChecker запускает фоновую проверку истекающих документов охраны труда
// Результат пишется в лог и публикуется как доменное событие для уведомлений
func (s *EmployeeService) StartExpiryChecker(interval time.Duration, warnDays int) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Первая проверка сразу при старте
		s.checkExpiringDocuments(warnDays)

		for {
			select {
			case <-ticker.C:
				s.checkExpiringDocuments(warnDays)
			case <-s.stopCheck:
				log.Println("🛑 Остановка проверки документов охраны труда")
				return
			}
		}
	}()
	log.Printf("🔄 Проверка документов охраны труда запущена (каждые %v, горизонт %d дней)", interval, warnDays)
}

// checkExpiringDocuments выполняет одну итерацию проверки
func (s *EmployeeService) checkExpiringDocuments(warnDays int) {
	docs, err := s.GetExpiringDocuments(warnDays)
	if err != nil {
		log.Printf("⚠️ Ошибка проверки документов охраны труда: %v", err)
		return
	}
	if len(docs) == 0 {
		return
	}

	log.Printf("⚠️ Документов охраны труда с истекающим сроком: %d", len(docs))
	for _, item := range docs {
		if item.DaysLeft < 0 {
			log.Printf("❌ ПРОСРОЧЕН: %s (%s) у %s, истек %d дн. назад",
				item.Document.Type, item.Document.Number, item.Employee.Name, -item.DaysLeft)
		}
	}

	if s.events != nil {
		s.events.PublishAsync("safety_documents.expiring", map[string]interface{}{
			"count": len(docs),
		})
	}
}

// Stop останавливает фоновые горутины сервиса
func (s *EmployeeService) Stop() {
	close(s.stopCheck)
}
