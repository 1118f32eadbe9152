package models

// ProductFilter представляет структурированную модель для фильтрации товаров
type ProductFilter struct {
	// Подстрочный поиск без учета регистра
	SKU         string `json:"sku,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	// Фильтрация по статусу: nil - без фильтра
	Active *bool `json:"active,omitempty"`
}

// ToMap преобразует ProductFilter в map для использования в запросах
func (f *ProductFilter) ToMap() map[string]interface{} {
	result := make(map[string]interface{})

	if f.SKU != "" {
		result["sku"] = f.SKU
	}

	if f.Name != "" {
		result["name"] = f.Name
	}

	if f.Description != "" {
		result["description"] = f.Description
	}

	if f.Active != nil {
		result["active"] = *f.Active
	}

	return result
}
