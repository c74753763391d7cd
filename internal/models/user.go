package models

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role представляет роль пользователя системы
type Role struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"` // Машинное имя (например, "Purchasing")
	Label       string    `gorm:"type:varchar(100);not null" json:"label"`            // Отображаемое название
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName возвращает имя таблицы
func (Role) TableName() string {
	return "roles"
}

// InitDefaultRoles инициализирует роли по умолчанию
func InitDefaultRoles(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	defaultRoles := []Role{
		{ID: "1", Name: "Admin", Label: "Администратор", Description: "Полный доступ ко всем модулям", IsActive: true},
		{ID: "2", Name: "Purchasing", Label: "Закупщик", Description: "Заявки на закупку, поставщики, накладные", IsActive: true},
		{ID: "3", Name: "Kitchen", Label: "Шеф-повар", Description: "Каталог блюд и рецепты", IsActive: true},
		{ID: "4", Name: "HR", Label: "Кадровик", Description: "Сотрудники и документы охраны труда", IsActive: true},
		{ID: "5", Name: "Auditor", Label: "Аудитор", Description: "Просмотр без права изменения", IsActive: true},
	}

	for _, role := range defaultRoles {
		var existing Role
		if err := db.Where("name = ?", role.Name).First(&existing).Error; err != nil {
			// Роль не существует, создаем
			if err := db.Create(&role).Error; err != nil {
				log.Printf("⚠️ Ошибка создания роли %s: %v", role.Name, err)
			}
		}
	}

	return nil
}

// AppUser представляет пользователя системы (вход по логину и паролю)
type AppUser struct {
	ID           string     `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string     `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"` // bcrypt
	Email        string     `json:"email" gorm:"type:varchar(255)"`
	RoleName     string     `json:"role_name" gorm:"type:varchar(100);not null;default:'Auditor';index"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName возвращает имя таблицы
func (AppUser) TableName() string {
	return "app_users"
}

// BeforeCreate генерирует UUID
func (u *AppUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
