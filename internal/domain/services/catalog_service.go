package services

import (
	"context"
	"strings"

	"github.com/athebyme/catalog-service/internal/adapters/storage"
	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/utils"
	"github.com/athebyme/catalog-service/pkg/interfaces"
	pkgutils "github.com/athebyme/catalog-service/pkg/utils"
)

// CatalogService предоставляет бизнес-логику работы с каталогом товаров
type CatalogService struct {
	storage  postgres.Port
	webhooks *WebhookService
	logger   interfaces.LoggerPort
}

// NewCatalogService создает сервис каталога
func NewCatalogService(st postgres.Port, webhooks *WebhookService, logger interfaces.LoggerPort) *CatalogService {
	return &CatalogService{
		storage:  st,
		webhooks: webhooks,
		logger:   logger,
	}
}

// CreateProduct создает товар и раздает событие product.created
func (s *CatalogService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if strings.TrimSpace(product.SKU) == "" {
		return nil, utils.ErrEmptySKU
	}
	if strings.TrimSpace(product.Name) == "" {
		return nil, utils.ErrEmptyName
	}

	product.SKU = models.CanonicalSKU(product.SKU)
	if err := s.storage.SaveProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoWithContext(ctx, "Товар создан",
		interfaces.LogField{Key: "product_id", Value: product.ID},
		interfaces.LogField{Key: "sku", Value: product.SKU},
	)
	s.webhooks.Dispatch(ctx, models.ProductCreatedEvent, models.ProductPayload(product))

	return product, nil
}

// GetProduct возвращает товар по идентификатору
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, utils.ErrProductNotFound
	}
	return product, nil
}

// ListProducts возвращает страницу каталога с учетом фильтров
func (s *CatalogService) ListProducts(ctx context.Context, filter *models.ProductFilter, pagination *pkgutils.Pagination) ([]*models.Product, error) {
	products, total, err := s.storage.ListProducts(ctx, filter.ToMap(), pagination.Page, pagination.PageSize)
	if err != nil {
		return nil, err
	}
	pagination.SetTotal(int64(total))
	return products, nil
}

// UpdateProduct обновляет изменяемые поля товара и раздает событие
// product.updated. SKU товара неизменяем.
func (s *CatalogService) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, utils.ErrEmptyName
	}

	existing, err := s.storage.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, utils.ErrProductNotFound
	}

	existing.Name = product.Name
	existing.Description = product.Description
	existing.Active = product.Active

	if err := s.storage.UpdateProduct(ctx, existing); err != nil {
		return nil, err
	}

	s.webhooks.Dispatch(ctx, models.ProductUpdatedEvent, models.ProductPayload(existing))

	return existing, nil
}

// DeleteProduct удаляет товар и раздает событие product.deleted
// с усеченным снимком записи
func (s *CatalogService) DeleteProduct(ctx context.Context, productID string) error {
	existing, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if existing == nil {
		return utils.ErrProductNotFound
	}

	if err := s.storage.DeleteProduct(ctx, productID); err != nil {
		return err
	}

	s.logger.InfoWithContext(ctx, "Товар удален",
		interfaces.LogField{Key: "product_id", Value: productID},
		interfaces.LogField{Key: "sku", Value: existing.SKU},
	)
	s.webhooks.Dispatch(ctx, models.ProductDeletedEvent, models.ProductDeletedPayload(existing))

	return nil
}

// BulkDeleteProducts удаляет все товары каталога и раздает событие
// product.deleted по каждой удаленной записи. Возвращает число удаленных
func (s *CatalogService) BulkDeleteProducts(ctx context.Context) (int64, error) {
	products, err := s.storage.ListAllProducts(ctx)
	if err != nil {
		return 0, err
	}

	deleted, err := s.storage.DeleteAllProducts(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.InfoWithContext(ctx, "Каталог очищен",
		interfaces.LogField{Key: "deleted", Value: deleted},
	)
	for _, product := range products {
		s.webhooks.Dispatch(ctx, models.ProductDeletedEvent, models.ProductDeletedPayload(product))
	}

	return deleted, nil
}
