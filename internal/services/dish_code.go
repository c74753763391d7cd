package services

import (
	"fmt"
	"strconv"
	"strings"
)

// NextDishCode вычисляет код для нового дочернего узла каталога блюд
// Код ребенка = код родителя + "." + следующий порядковый номер среди соседей,
// отформатированный двумя цифрами с ведущим нулем ("2.03" -> "2.03.01")
// Номера >= 100 не обрезаются, строка просто расширяется
// Чистая функция: вызывающий обязан передать СВЕЖИЙ список кодов детей из БД,
// а не из кэша дерева — кэш может быть пуст для ни разу не раскрытой ветки
func NextDishCode(parentCode string, existingChildCodes []string) string {
	maxSuffix := 0
	for _, code := range existingChildCodes {
		segments := strings.Split(code, ".")
		last := segments[len(segments)-1]
		n, err := strconv.Atoi(last)
		if err != nil {
			// Сегмент не парсится как число — пропускаем, не считаем нулем
			continue
		}
		if n > maxSuffix {
			maxSuffix = n
		}
	}

	return fmt.Sprintf("%s.%02d", parentCode, maxSuffix+1)
}
