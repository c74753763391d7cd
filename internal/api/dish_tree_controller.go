package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"catererp/server/internal/services"
)

// DishTreeController управляет API endpoints каталога блюд
type DishTreeController struct {
	service *services.DishTreeService
}

// NewDishTreeController создает новый контроллер каталога блюд
func NewDishTreeController(service *services.DishTreeService) *DishTreeController {
	return &DishTreeController{
		service: service,
	}
}

// GetRoots получает узлы верхнего уровня каталога
// GET /api/v1/catalog/tree/roots
func (dc *DishTreeController) GetRoots(c *gin.Context) {
	if dc.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Сервис каталога недоступен",
		})
		return
	}

	nodes, err := dc.service.GetRoots()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения каталога",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes": nodes,
		"count": len(nodes),
	})
}

// GetChildren получает детей узла (ленивая загрузка ветки)
// GET /api/v1/catalog/tree/:id/children
func (dc *DishTreeController) GetChildren(c *gin.Context) {
	if dc.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Сервис каталога недоступен",
		})
		return
	}

	nodes, err := dc.service.GetChildren(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка загрузки ветки каталога",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes": nodes,
		"count": len(nodes),
	})
}

// GetNode получает узел каталога с рецептами (для блюд)
// GET /api/v1/catalog/tree/:id
func (dc *DishTreeController) GetNode(c *gin.Context) {
	node, err := dc.service.GetNode(c.Param("id"))
	if err != nil {
		dc.handleTreeError(c, err)
		return
	}

	response := gin.H{"node": node}
	if node.IsLeaf {
		recipes, err := dc.service.GetNodeRecipes(node.ID)
		if err == nil {
			response["recipes"] = recipes
		}
	}

	c.JSON(http.StatusOK, response)
}

// CountLeaves возвращает общее число блюд в каталоге
// GET /api/v1/catalog/tree/leaf-count
func (dc *DishTreeController) CountLeaves(c *gin.Context) {
	count, err := dc.service.CountLeaves()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка подсчета блюд",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaf_count": count})
}

// SearchNodes ищет узлы по названию или коду
// GET /api/v1/catalog/tree/search?term=...
func (dc *DishTreeController) SearchNodes(c *gin.Context) {
	nodes, err := dc.service.SearchNodes(c.Query("term"))
	if err != nil {
		dc.handleTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes": nodes,
		"count": len(nodes),
	})
}

// CreateNodeRequest представляет запрос на создание узла каталога
// Пустой parent_id создает категорию верхнего уровня
type CreateNodeRequest struct {
	ParentID    string `json:"parent_id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsLeaf      bool   `json:"is_leaf"`
}

// CreateNode создает дочерний узел каталога
// POST /api/v1/catalog/tree
func (dc *DishTreeController) CreateNode(c *gin.Context) {
	var req CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	node, err := dc.service.CreateNode(req.ParentID, req.Name, req.Description, req.IsLeaf)
	if err != nil {
		dc.handleTreeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, node)
}

// UpdateNodeRequest представляет запрос на обновление узла
// Код, родитель и уровень после создания не меняются
type UpdateNodeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsLeaf      bool   `json:"is_leaf"`
}

// UpdateNode обновляет узел каталога
// PUT /api/v1/catalog/tree/:id
func (dc *DishTreeController) UpdateNode(c *gin.Context) {
	var req UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	node, err := dc.service.UpdateNode(c.Param("id"), req.Name, req.Description, req.IsLeaf)
	if err != nil {
		dc.handleTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, node)
}

// DeleteNode деактивирует узел каталога
// DELETE /api/v1/catalog/tree/:id
func (dc *DishTreeController) DeleteNode(c *gin.Context) {
	if err := dc.service.DeleteNode(c.Param("id")); err != nil {
		dc.handleTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Узел каталога удален"})
}

// handleTreeError переводит ошибки сервиса каталога в HTTP-статусы
func (dc *DishTreeController) handleTreeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrTermTooShort),
		errors.Is(err, services.ErrParentIsLeaf),
		errors.Is(err, services.ErrMaxDepthReached):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNodeNotFound), errors.Is(err, services.ErrParentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrHasActiveChildren):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка каталога блюд",
			"details": err.Error(),
		})
	}
}
