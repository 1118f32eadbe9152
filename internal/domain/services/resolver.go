package services

import (
	"github.com/athebyme/catalog-service/internal/domain/models"
)

// identityResolver сопоставляет сырые SKU из входного файла записям
// каталога. Ключ сравнения - канонический SKU (trim + upper), так что
// "abc-1" и " ABC-1 " считаются одним и тем же товаром
type identityResolver struct {
	index map[string]*models.Product
}

// newIdentityResolver строит индекс по всем существующим записям каталога
func newIdentityResolver(existing []*models.Product) *identityResolver {
	index := make(map[string]*models.Product, len(existing))
	for _, product := range existing {
		index[models.CanonicalSKU(product.SKU)] = product
	}
	return &identityResolver{index: index}
}

// Resolve возвращает запись каталога для сырого SKU, если она известна
func (r *identityResolver) Resolve(rawSKU string) (*models.Product, bool) {
	product, ok := r.index[models.CanonicalSKU(rawSKU)]
	return product, ok
}

// Stage регистрирует новую запись в индексе до ее сохранения в БД.
// Повторные строки с тем же SKU внутри файла схлопываются на одну
// запись, последняя строка выигрывает по изменяемым полям
func (r *identityResolver) Stage(product *models.Product) {
	r.index[models.CanonicalSKU(product.SKU)] = product
}
