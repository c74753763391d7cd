package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DishNodeMaxLevel — максимальная глубина дерева блюд
// Уровень 1 — корень каталога, уровни 2-4 — категории, уровень 5 — всегда блюдо
const DishNodeMaxLevel = 5

// DishNode представляет узел иерархического каталога блюд
// Код узла — точечная строка вида "2.03.01": каждый сегмент это
// двузначный порядковый номер, уникальный среди соседей по родителю
type DishNode struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	ParentID    *string   `json:"parent_id" gorm:"type:uuid;index"`
	Code        string    `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	Level       int       `json:"level" gorm:"not null;index"` // 1-5, равен уровню родителя + 1
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	IsLeaf      bool      `json:"is_leaf" gorm:"default:false;index"` // Признак блюда; авторитетен флаг, а не уровень
	IsActive    bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы в БД
func (DishNode) TableName() string {
	return "dish_nodes"
}

// BeforeCreate hook для генерации UUID если не указан
func (n *DishNode) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// CanHaveChildren проверяет, допустимо ли создание дочернего узла
// Листья и узлы максимального уровня детей не получают
func (n *DishNode) CanHaveChildren() bool {
	return !n.IsLeaf && n.Level < DishNodeMaxLevel
}

// Recipe представляет рецепт, привязанный к листовому узлу (блюду)
// Связь read-only для каталога: рецепты подтягиваются при просмотре блюда
type Recipe struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	DishNodeID  string    `json:"dish_node_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Ingredients string    `json:"ingredients" gorm:"type:text"` // JSON-массив ингредиентов
	Steps       string    `json:"steps" gorm:"type:text"`
	PortionSize float64   `json:"portion_size" gorm:"type:decimal(10,2);default:0"`
	IsActive    bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы в БД
func (Recipe) TableName() string {
	return "recipes"
}

// BeforeCreate hook для генерации UUID если не указан
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
