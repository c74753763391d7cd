package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"gorm.io/gorm"

	"catererp/server/internal/models"
)

// CatalogService управляет каталогами продуктов поставщиков,
// включая массовый импорт из CSV/XLSX файлов
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService создает новый экземпляр CatalogService
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GetProducts возвращает активные позиции каталога поставщика
func (cs *CatalogService) GetProducts(supplierID string) ([]models.SupplierProduct, error) {
	var products []models.SupplierProduct
	if err := cs.db.Where("supplier_id = ? AND is_active = ?", supplierID, true).Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductByID возвращает позицию каталога по ID
func (cs *CatalogService) GetProductByID(id string) (*models.SupplierProduct, error) {
	var product models.SupplierProduct
	if err := cs.db.Where("id = ? AND is_active = ?", id, true).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct создает позицию каталога
func (cs *CatalogService) CreateProduct(product *models.SupplierProduct) error {
	// SKU уникален в рамках поставщика
	var existing models.SupplierProduct
	if err := cs.db.Where("supplier_id = ? AND sku = ? AND is_active = ?", product.SupplierID, product.SKU, true).First(&existing).Error; err == nil {
		return fmt.Errorf("позиция с SKU '%s' уже есть в каталоге поставщика", product.SKU)
	}

	return cs.db.Create(product).Error
}

// UpdateProduct обновляет позицию каталога
func (cs *CatalogService) UpdateProduct(id string, product *models.SupplierProduct) error {
	var existing models.SupplierProduct
	if err := cs.db.Where("id = ? AND is_active = ?", id, true).First(&existing).Error; err != nil {
		return fmt.Errorf("позиция каталога не найдена")
	}

	if product.SKU != "" && product.SKU != existing.SKU {
		var duplicate models.SupplierProduct
		if err := cs.db.Where("supplier_id = ? AND sku = ? AND id != ? AND is_active = ?", existing.SupplierID, product.SKU, id, true).First(&duplicate).Error; err == nil {
			return fmt.Errorf("позиция с SKU '%s' уже есть в каталоге поставщика", product.SKU)
		}
	}

	product.ID = id
	return cs.db.Model(&existing).Updates(product).Error
}

// DeleteProduct деактивирует позицию каталога
func (cs *CatalogService) DeleteProduct(id string) error {
	return cs.db.Model(&models.SupplierProduct{}).Where("id = ?", id).Update("is_active", false).Error
}

// ParseUploadedFile парсит загруженный файл каталога (.csv или .xlsx)
// Возвращает строки как map заголовок -> значение
func (cs *CatalogService) ParseUploadedFile(file multipart.File, filename string) ([]map[string]string, error) {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".csv") {
		return cs.parseCSVFile(file)
	}
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
		return cs.parseXLSXFile(file)
	}
	return nil, fmt.Errorf("неподдерживаемый формат файла: %s. Используйте .csv или .xlsx", filename)
}

// parseCSVFile парсит CSV с автоопределением разделителя и кодировки
func (cs *CatalogService) parseCSVFile(file multipart.File) ([]map[string]string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	// Файлы из старых учетных систем приходят в Windows-1251
	utf8Data := data
	if !utf8.Valid(data) {
		decoder := charmap.Windows1251.NewDecoder()
		converted, _, convErr := transform.Bytes(decoder, data)
		if convErr == nil {
			utf8Data = converted
		}
	}

	reader := csv.NewReader(bytes.NewReader(utf8Data))
	reader.Comma = detectDelimiter(utf8Data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заголовков CSV: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.Trim(h, "\"'\t"))
	}

	var rows []map[string]string
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("⚠️ Ошибка чтения строки %d: %v, пропускаем", rowNum, err)
			rowNum++
			continue
		}

		row := make(map[string]string)
		hasData := false
		for i, value := range record {
			cleaned := strings.TrimSpace(strings.Trim(value, "\"'\t"))
			if i < len(headers) && headers[i] != "" {
				row[headers[i]] = cleaned
				if cleaned != "" {
					hasData = true
				}
			}
		}
		if hasData {
			rows = append(rows, row)
		}
		rowNum++
	}

	return rows, nil
}

// parseXLSXFile парсит первый лист XLSX файла
func (cs *CatalogService) parseXLSXFile(file multipart.File) ([]map[string]string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия XLSX файла: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("файл не содержит листов")
	}

	sheetRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения листа: %w", err)
	}
	if len(sheetRows) == 0 {
		return nil, fmt.Errorf("файл пуст")
	}

	// Заголовки — первая непустая строка
	headerRowIndex := 0
	for i, row := range sheetRows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				headerRowIndex = i
				goto found
			}
		}
	}
found:
	headers := sheetRows[headerRowIndex]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.Trim(h, "\"'\t"))
	}

	rows := make([]map[string]string, 0)
	for i := headerRowIndex + 1; i < len(sheetRows); i++ {
		row := make(map[string]string)
		hasData := false
		for j, value := range sheetRows[i] {
			cleaned := strings.TrimSpace(strings.Trim(value, "\"'\t"))
			if j < len(headers) && headers[j] != "" {
				row[headers[j]] = cleaned
				if cleaned != "" {
					hasData = true
				}
			}
		}
		if hasData {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// detectDelimiter определяет разделитель CSV файла по первым байтам
func detectDelimiter(data []byte) rune {
	sample := string(data)
	if len(sample) > 1000 {
		sample = sample[:1000]
	}

	commaCount := strings.Count(sample, ",")
	semicolonCount := strings.Count(sample, ";")
	tabCount := strings.Count(sample, "\t")

	if semicolonCount > commaCount && semicolonCount > tabCount {
		return ';'
	}
	if tabCount > commaCount && tabCount > semicolonCount {
		return '\t'
	}
	return ','
}

// ValidateImport валидирует строки импорта каталога перед записью
// fieldMapping: системное поле -> имя колонки файла ({"name": "Наименование", "sku": "Артикул"})
func (cs *CatalogService) ValidateImport(supplierID string, rows []map[string]string, fieldMapping map[string]string) []models.ImportValidationResult {
	// Существующие SKU поставщика для проверки дубликатов
	var existingProducts []models.SupplierProduct
	if err := cs.db.Where("supplier_id = ? AND is_active = ?", supplierID, true).Select("sku").Find(&existingProducts).Error; err != nil {
		log.Printf("⚠️ Не удалось прочитать SKU каталога поставщика %s: %v (проверка дубликатов пропущена)", supplierID, err)
	}
	existingSKUs := make(map[string]bool)
	for _, p := range existingProducts {
		existingSKUs[p.SKU] = true
	}

	return validateImportRows(rows, fieldMapping, existingSKUs)
}

// validateImportRows проверяет строки батча против маппинга колонок и
// уже занятых SKU поставщика: пустые обязательные поля — ошибка,
// нераспознанная цена, единица измерения или дубликат SKU — предупреждение
func validateImportRows(rows []map[string]string, fieldMapping map[string]string, existingSKUs map[string]bool) []models.ImportValidationResult {
	results := make([]models.ImportValidationResult, 0, len(rows))

	for i, row := range rows {
		result := models.ImportValidationResult{
			Row:      i + 1,
			Item:     make(map[string]interface{}),
			Status:   "success",
			Errors:   []string{},
			Warnings: []string{},
		}

		name := mappedValue(row, fieldMapping, "name")
		sku := mappedValue(row, fieldMapping, "sku")
		category := mappedValue(row, fieldMapping, "category")
		unit := normalizeUnit(mappedValue(row, fieldMapping, "unit"))
		priceStr := mappedValue(row, fieldMapping, "price")

		result.Item["name"] = name
		result.Item["sku"] = sku
		result.Item["category"] = category
		result.Item["unit"] = unit

		price := 0.0
		if priceStr != "" {
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(priceStr, ",", "."), 64)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Не удалось распарсить цену: %s", priceStr))
			} else {
				price = parsed
			}
		}
		result.Item["price"] = price

		if name == "" {
			result.Errors = append(result.Errors, "Отсутствует название")
		}
		if sku == "" {
			result.Errors = append(result.Errors, "Отсутствует SKU")
		}
		if unit == "" {
			result.Errors = append(result.Errors, "Отсутствует единица измерения")
		} else if !validUnits[strings.ToLower(unit)] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Неизвестная единица измерения: %s", unit))
		}
		if sku != "" && existingSKUs[sku] {
			result.Warnings = append(result.Warnings, "Дубликат SKU: позиция с таким SKU уже есть в каталоге")
		}

		if len(result.Errors) > 0 {
			result.Status = "error"
		} else if len(result.Warnings) > 0 {
			result.Status = "warning"
		}

		results = append(results, result)
	}

	return results
}

// ProcessImport выполняет массовый импорт каталога поставщика
// Строки с ошибками пропускаются, дубликаты SKU в батче схлопываются (последняя строка выигрывает)
func (cs *CatalogService) ProcessImport(supplierID string, rows []map[string]string, fieldMapping map[string]string) (*models.ImportResult, error) {
	result := &models.ImportResult{Errors: []string{}}

	validation := cs.ValidateImport(supplierID, rows, fieldMapping)
	result.Validation = validation

	// Дедупликация SKU внутри батча, иначе batch insert упадет на уникальности
	bySKU := make(map[string]models.SupplierProduct)
	order := make([]string, 0)
	for i := range rows {
		v := validation[i]
		if v.Status == "error" {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("Строка %d: %s", v.Row, strings.Join(v.Errors, ", ")))
			continue
		}
		if v.Status == "warning" {
			result.WarningCount++
		}

		sku, _ := v.Item["sku"].(string)
		name, _ := v.Item["name"].(string)
		category, _ := v.Item["category"].(string)
		unit, _ := v.Item["unit"].(string)
		price, _ := v.Item["price"].(float64)

		if _, seen := bySKU[sku]; seen {
			log.Printf("⚠️ Дубликат SKU '%s' в батче: оставлена строка %d", sku, v.Row)
		} else {
			order = append(order, sku)
		}
		bySKU[sku] = models.SupplierProduct{
			SupplierID: supplierID,
			SKU:        sku,
			Name:       name,
			Category:   category,
			Unit:       unit,
			Price:      price,
			IsActive:   true,
		}
	}

	if len(order) == 0 {
		return result, nil
	}

	products := make([]models.SupplierProduct, 0, len(order))
	for _, sku := range order {
		products = append(products, bySKU[sku])
	}

	if err := cs.db.CreateInBatches(products, 200).Error; err != nil {
		return result, fmt.Errorf("ошибка массовой вставки каталога: %w", err)
	}
	result.ImportedCount = len(products)

	log.Printf("✅ Импорт каталога поставщика %s: %d позиций, %d ошибок, %d предупреждений",
		supplierID, result.ImportedCount, result.ErrorCount, result.WarningCount)
	return result, nil
}

// mappedValue достает значение поля из строки по маппингу колонок,
// с фоллбэком на системное имя поля
func mappedValue(row map[string]string, fieldMapping map[string]string, field string) string {
	if column, ok := fieldMapping[field]; ok && column != "" {
		if v, ok := row[column]; ok {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(row[field])
}

var validUnits = map[string]bool{
	"kg": true, "g": true, "l": true, "ml": true, "pcs": true, "box": true,
}

// normalizeUnit приводит единицу измерения к стандартному формату
func normalizeUnit(unit string) string {
	if unit == "" {
		return unit
	}

	unitLower := strings.ToLower(strings.TrimSpace(unit))
	unitLower = strings.Trim(unitLower, "()[]")
	unitLower = strings.TrimSuffix(unitLower, ".")

	unitMap := map[string]string{
		"г": "g", "гр": "g", "грамм": "g",
		"кг": "kg", "килограмм": "kg",
		"л": "l", "литр": "l", "литров": "l",
		"мл": "ml", "миллилитр": "ml",
		"шт": "pcs", "штука": "pcs", "штук": "pcs",
		"упак": "box", "упаковка": "box", "ящик": "box",
	}
	if normalized, exists := unitMap[unitLower]; exists {
		return normalized
	}
	if validUnits[unitLower] {
		return unitLower
	}
	return unit
}
