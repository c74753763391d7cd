package services

import (
	"fmt"

	"gorm.io/gorm"

	"catererp/server/internal/models"
)

// SupplierService управляет поставщиками
type SupplierService struct {
	db *gorm.DB
}

// NewSupplierService создает новый экземпляр SupplierService
func NewSupplierService(db *gorm.DB) *SupplierService {
	return &SupplierService{db: db}
}

// GetAllSuppliers получает список всех активных поставщиков
func (s *SupplierService) GetAllSuppliers() ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := s.db.Where("status = ?", models.SupplierStatusActive).Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// GetSupplierByID получает поставщика по ID
func (s *SupplierService) GetSupplierByID(id string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := s.db.First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// CreateSupplier создает нового поставщика
func (s *SupplierService) CreateSupplier(supplier *models.Supplier) error {
	// Проверяем уникальность налогового номера
	if supplier.TaxID != "" {
		var existing models.Supplier
		if err := s.db.Where("tax_id = ?", supplier.TaxID).First(&existing).Error; err == nil {
			return fmt.Errorf("поставщик с налоговым номером %s уже существует", supplier.TaxID)
		}
	}

	return s.db.Create(supplier).Error
}

// UpdateSupplier обновляет данные поставщика
func (s *SupplierService) UpdateSupplier(id string, supplier *models.Supplier) error {
	// Проверяем уникальность налогового номера (если изменился)
	if supplier.TaxID != "" {
		var existing models.Supplier
		if err := s.db.Where("tax_id = ? AND id != ?", supplier.TaxID, id).First(&existing).Error; err == nil {
			return fmt.Errorf("поставщик с налоговым номером %s уже существует", supplier.TaxID)
		}
	}

	return s.db.Model(&models.Supplier{}).Where("id = ?", id).Updates(supplier).Error
}

// ArchiveSupplier архивирует поставщика (новые заявки на него не создаются)
func (s *SupplierService) ArchiveSupplier(id string) error {
	return s.db.Model(&models.Supplier{}).Where("id = ?", id).
		Update("status", models.SupplierStatusArchived).Error
}

// DeleteSupplier удаляет поставщика (soft delete)
func (s *SupplierService) DeleteSupplier(id string) error {
	return s.db.Delete(&models.Supplier{}, "id = ?", id).Error
}
