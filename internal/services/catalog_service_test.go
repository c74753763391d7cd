package services

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// testFile оборачивает strings.Reader до интерфейса multipart.File
type testFile struct {
	*strings.Reader
}

func (testFile) Close() error { return nil }

func newTestFile(data string) testFile {
	return testFile{strings.NewReader(data)}
}

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"кг", "kg"},
		{"КГ", "kg"},
		{"кг.", "kg"},
		{"(шт)", "pcs"},
		{"грамм", "g"},
		{"литров", "l"},
		{"мл", "ml"},
		{"упаковка", "box"},
		{"kg", "kg"},
		{"PCS", "pcs"},
		{"", ""},
		{"мешок", "мешок"}, // Неизвестная единица возвращается как есть
	}

	for _, tt := range tests {
		if got := normalizeUnit(tt.in); got != tt.want {
			t.Errorf("normalizeUnit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"точка с запятой", "Наименование;Артикул;Цена\nБорщ;S1;100", ';'},
		{"запятая", "name,sku,price\nSoup,S1,100", ','},
		{"табуляция", "name\tsku\tprice\nSoup\tS1\t100", '\t'},
		{"пустой файл", "", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("detectDelimiter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMappedValue(t *testing.T) {
	row := map[string]string{
		"Наименование": " Борщ украинский ",
		"Артикул":      "SKU-17",
		"name":         "fallback",
	}
	mapping := map[string]string{
		"name": "Наименование",
		"sku":  "Артикул",
	}

	if got := mappedValue(row, mapping, "name"); got != "Борщ украинский" {
		t.Errorf("name = %q", got)
	}
	if got := mappedValue(row, mapping, "sku"); got != "SKU-17" {
		t.Errorf("sku = %q", got)
	}
	// Поле без маппинга берется по системному имени
	if got := mappedValue(row, nil, "name"); got != "fallback" {
		t.Errorf("fallback = %q", got)
	}
}

func TestParseCSVUTF8(t *testing.T) {
	cs := NewCatalogService(nil)

	csv := "Наименование;Артикул;Цена\nБорщ;S1;120,50\n\nСалат;S2;80\n"
	rows, err := cs.parseCSVFile(newTestFile(csv))
	if err != nil {
		t.Fatalf("parseCSVFile: %v", err)
	}

	// Пустая строка пропускается
	if len(rows) != 2 {
		t.Fatalf("ожидалось 2 строки, получено %d", len(rows))
	}
	if rows[0]["Наименование"] != "Борщ" || rows[0]["Артикул"] != "S1" {
		t.Errorf("первая строка: %v", rows[0])
	}
	if rows[1]["Цена"] != "80" {
		t.Errorf("вторая строка: %v", rows[1])
	}
}

// Поставщики часто выгружают каталоги из старых учетных систем в Windows-1251
func TestParseCSVWindows1251(t *testing.T) {
	cs := NewCatalogService(nil)

	utf8CSV := "Наименование;Артикул\nКартофель;OV-01\n"
	encoded, err := charmap.Windows1251.NewEncoder().String(utf8CSV)
	if err != nil {
		t.Fatalf("кодирование тестовых данных: %v", err)
	}

	rows, err := cs.parseCSVFile(newTestFile(encoded))
	if err != nil {
		t.Fatalf("parseCSVFile: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ожидалась 1 строка, получено %d", len(rows))
	}
	if rows[0]["Наименование"] != "Картофель" {
		t.Errorf("кириллица не раскодирована: %v", rows[0])
	}
}

func TestParseUploadedFileRejectsUnknownFormat(t *testing.T) {
	cs := NewCatalogService(nil)

	if _, err := cs.ParseUploadedFile(newTestFile("data"), "catalog.pdf"); err == nil {
		t.Error("ожидалась ошибка для неподдерживаемого формата")
	}
}

func TestValidateImportRows(t *testing.T) {
	mapping := map[string]string{
		"name":     "Наименование",
		"sku":      "Артикул",
		"category": "Категория",
		"unit":     "Ед",
		"price":    "Цена",
	}
	existing := map[string]bool{"SKU-100": true}

	rows := []map[string]string{
		{"Наименование": "Мука пшеничная", "Артикул": "SKU-200", "Ед": "кг", "Цена": "45,50"},
		{"Наименование": "", "Артикул": "SKU-201", "Ед": "кг", "Цена": "10"},
		{"Наименование": "Сахар", "Артикул": "SKU-100", "Ед": "кг", "Цена": "30"},
		{"Наименование": "Ваниль", "Артикул": "SKU-202", "Ед": "бочка", "Цена": "дорого"},
	}

	results := validateImportRows(rows, mapping, existing)
	if len(results) != 4 {
		t.Fatalf("ожидалось 4 результата, получено %d", len(results))
	}

	if results[0].Status != "success" {
		t.Errorf("строка 1: статус %q, ожидался success (%v)", results[0].Status, results[0].Errors)
	}
	if price, _ := results[0].Item["price"].(float64); price != 45.5 {
		t.Errorf("строка 1: цена %v, запятая должна парситься как разделитель", results[0].Item["price"])
	}

	if results[1].Status != "error" {
		t.Errorf("строка 2: статус %q, пустое название должно давать error", results[1].Status)
	}

	if results[2].Status != "warning" {
		t.Errorf("строка 3: статус %q, занятый SKU должен давать warning", results[2].Status)
	}

	if results[3].Status != "warning" {
		t.Errorf("строка 4: статус %q, ожидался warning", results[3].Status)
	}
	if len(results[3].Warnings) != 2 {
		t.Errorf("строка 4: предупреждений %d, ожидались нераспознанная цена и единица", len(results[3].Warnings))
	}
}

// Без списка занятых SKU валидация проходит, но дубликаты не помечаются
func TestValidateImportRowsWithoutExistingSKUs(t *testing.T) {
	mapping := map[string]string{"name": "Наименование", "sku": "Артикул", "unit": "Ед"}
	rows := []map[string]string{
		{"Наименование": "Сахар", "Артикул": "SKU-100", "Ед": "кг"},
	}

	results := validateImportRows(rows, mapping, nil)
	if len(results) != 1 || results[0].Status != "success" {
		t.Fatalf("неожиданный результат: %+v", results)
	}
}
