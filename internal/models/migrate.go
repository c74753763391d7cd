package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate создает таблицы в БД
func AutoMigrate(db *gorm.DB) error {
	// Каталог блюд — критичные таблицы, без них сервис не имеет смысла
	if err := db.AutoMigrate(&DishNode{}, &Recipe{}); err != nil {
		log.Printf("❌ AutoMigrate для каталога блюд failed: %v", err)
		return err
	}
	log.Println("✅ Dish catalog tables migrated successfully")

	// Роли и пользователи
	if err := db.AutoMigrate(&Role{}, &AppUser{}); err != nil {
		log.Printf("❌ AutoMigrate для Role/AppUser failed: %v", err)
		return err
	}
	if err := InitDefaultRoles(db); err != nil {
		log.Printf("⚠️ Ошибка инициализации ролей: %v", err)
	}

	// Закупки: поставщики, каталоги, заявки, накладные
	if err := db.AutoMigrate(
		&Supplier{},
		&SupplierProduct{},
		&PurchaseRequest{},
		&PurchaseRequestItem{},
		&Invoice{},
		&InvoiceItem{},
	); err != nil {
		log.Printf("⚠️ AutoMigrate для модуля закупок: %v", err)
	}

	// Кадры и охрана труда
	if err := db.AutoMigrate(&Employee{}, &SafetyDocument{}); err != nil {
		log.Printf("⚠️ AutoMigrate для модуля кадров: %v", err)
	}

	// Корень дерева блюд создается один раз
	if err := InitRootDishNode(db); err != nil {
		log.Printf("⚠️ Ошибка инициализации корня каталога: %v", err)
	}

	return nil
}

// InitRootDishNode создает корневой узел каталога блюд (уровень 1), если его нет
// Код корня — односегментный, дети получают коды "2.01", "2.02" и так далее
func InitRootDishNode(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	var count int64
	if err := db.Model(&DishNode{}).Where("level = 1 AND is_active = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	root := DishNode{
		Code:     "2",
		Level:    1,
		Name:     "Каталог блюд",
		IsLeaf:   false,
		IsActive: true,
	}
	if err := db.Create(&root).Error; err != nil {
		return err
	}
	log.Println("✅ Корневой узел каталога блюд создан")
	return nil
}
