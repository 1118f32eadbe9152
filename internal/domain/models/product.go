package models

import (
	"strings"
	"time"
)

// Product представляет товар каталога. Поле SKU хранится в канонической
// форме (trim + upper) и является уникальным ключом без учета регистра.
type Product struct {
	ID          string    `json:"id"`
	SKU         string    `db:"sku" json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CanonicalSKU приводит SKU к канонической форме: обрезает пробелы и
// переводит в верхний регистр. Именно эта форма хранится в БД и участвует
// в проверке уникальности.
func CanonicalSKU(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ParseActive разбирает значение колонки active из импорта.
// Истинными считаются только значения из фиксированного словаря,
// все остальное трактуется как false.
func ParseActive(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "active":
		return true
	}
	return false
}
