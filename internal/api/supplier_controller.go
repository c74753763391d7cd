package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"catererp/server/internal/models"
	"catererp/server/internal/services"
)

// SupplierController управляет API endpoints для поставщиков и их каталогов
type SupplierController struct {
	suppliers *services.SupplierService
	catalog   *services.CatalogService
}

// NewSupplierController создает новый контроллер поставщиков
func NewSupplierController(suppliers *services.SupplierService, catalog *services.CatalogService) *SupplierController {
	return &SupplierController{
		suppliers: suppliers,
		catalog:   catalog,
	}
}

// GetSuppliers получает список всех активных поставщиков
// GET /api/v1/suppliers
func (sc *SupplierController) GetSuppliers(c *gin.Context) {
	suppliers, err := sc.suppliers.GetAllSuppliers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения поставщиков",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"suppliers": suppliers,
		"count":     len(suppliers),
	})
}

// GetSupplier получает поставщика по ID
// GET /api/v1/suppliers/:id
func (sc *SupplierController) GetSupplier(c *gin.Context) {
	supplier, err := sc.suppliers.GetSupplierByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Поставщик не найден",
		})
		return
	}

	c.JSON(http.StatusOK, supplier)
}

// CreateSupplier создает нового поставщика
// POST /api/v1/suppliers
func (sc *SupplierController) CreateSupplier(c *gin.Context) {
	var supplier models.Supplier
	if err := c.ShouldBindJSON(&supplier); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	if err := sc.suppliers.CreateSupplier(&supplier); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Ошибка создания поставщика",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier обновляет данные поставщика
// PUT /api/v1/suppliers/:id
func (sc *SupplierController) UpdateSupplier(c *gin.Context) {
	var supplier models.Supplier
	if err := c.ShouldBindJSON(&supplier); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	id := c.Param("id")
	if err := sc.suppliers.UpdateSupplier(id, &supplier); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Ошибка обновления поставщика",
			"details": err.Error(),
		})
		return
	}

	updated, err := sc.suppliers.GetSupplierByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Поставщик не найден"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ArchiveSupplier архивирует поставщика
// POST /api/v1/suppliers/:id/archive
func (sc *SupplierController) ArchiveSupplier(c *gin.Context) {
	if err := sc.suppliers.ArchiveSupplier(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка архивирования поставщика",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Поставщик архивирован"})
}

// DeleteSupplier удаляет поставщика (soft delete)
// DELETE /api/v1/suppliers/:id
func (sc *SupplierController) DeleteSupplier(c *gin.Context) {
	if err := sc.suppliers.DeleteSupplier(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка удаления поставщика",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Поставщик удален"})
}

// GetProducts получает каталог товаров поставщика
// GET /api/v1/suppliers/:id/products
func (sc *SupplierController) GetProducts(c *gin.Context) {
	products, err := sc.catalog.GetProducts(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения каталога поставщика",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// CreateProduct добавляет товар в каталог поставщика
// POST /api/v1/suppliers/:id/products
func (sc *SupplierController) CreateProduct(c *gin.Context) {
	var product models.SupplierProduct
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	product.SupplierID = c.Param("id")
	if err := sc.catalog.CreateProduct(&product); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Ошибка добавления товара",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct обновляет товар в каталоге поставщика
// PUT /api/v1/suppliers/:id/products/:productId
func (sc *SupplierController) UpdateProduct(c *gin.Context) {
	var product models.SupplierProduct
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	id := c.Param("productId")
	if err := sc.catalog.UpdateProduct(id, &product); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Ошибка обновления товара",
			"details": err.Error(),
		})
		return
	}

	updated, err := sc.catalog.GetProductByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Товар не найден"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct удаляет товар из каталога поставщика
// DELETE /api/v1/suppliers/:id/products/:productId
func (sc *SupplierController) DeleteProduct(c *gin.Context) {
	if err := sc.catalog.DeleteProduct(c.Param("productId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка удаления товара",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Товар удален из каталога"})
}

// ParseImportFile принимает файл каталога (CSV или XLSX) и возвращает
// распарсенные строки для настройки маппинга колонок
// POST /api/v1/suppliers/:id/catalog/parse
func (sc *SupplierController) ParseImportFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Не удалось прочитать файл из запроса",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	rows, err := sc.catalog.ParseUploadedFile(file, header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка разбора файла",
			"details": err.Error(),
		})
		return
	}

	// Колонки берем из первой строки: маппинг настраивается на клиенте
	var columns []string
	if len(rows) > 0 {
		for col := range rows[0] {
			columns = append(columns, col)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":    rows,
		"columns": columns,
		"count":   len(rows),
	})
}

// ImportRequest представляет запрос на валидацию или импорт каталога
type ImportRequest struct {
	Rows         []map[string]string `json:"rows" binding:"required"`
	FieldMapping map[string]string   `json:"field_mapping" binding:"required"`
}

// ValidateImport проверяет строки импорта без записи в БД
// POST /api/v1/suppliers/:id/catalog/validate
func (sc *SupplierController) ValidateImport(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	results := sc.catalog.ValidateImport(c.Param("id"), req.Rows, req.FieldMapping)
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// ProcessImport импортирует каталог поставщика в БД
// POST /api/v1/suppliers/:id/catalog/import
func (sc *SupplierController) ProcessImport(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	result, err := sc.catalog.ProcessImport(c.Param("id"), req.Rows, req.FieldMapping)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка импорта каталога",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
