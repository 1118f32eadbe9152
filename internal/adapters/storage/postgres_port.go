package postgres

import (
	"context"

	"github.com/athebyme/catalog-service/internal/domain/models"
)

type Storage interface {
	// Методы для работы с товарами

	// SaveProduct сохраняет новый товар в хранилище.
	// Возвращает utils.ErrSKUConflict при нарушении уникальности SKU
	SaveProduct(ctx context.Context, product *models.Product) error

	// GetProduct получает товар по ID
	// Возвращает nil, nil если товар не найден
	GetProduct(ctx context.Context, productID string) (*models.Product, error)

	// GetProductBySKU получает товар по каноническому SKU
	// Возвращает nil, nil если товар не найден
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)

	// UpdateProduct обновляет изменяемые поля товара (name, description,
	// active, updated_at). SKU не меняется никогда
	UpdateProduct(ctx context.Context, product *models.Product) error

	// DeleteProduct удаляет товар из хранилища
	DeleteProduct(ctx context.Context, productID string) error

	// DeleteAllProducts удаляет все товары каталога.
	// Возвращает число удаленных записей
	DeleteAllProducts(ctx context.Context) (int64, error)

	// ListProducts возвращает список товаров с поддержкой пагинации и фильтрации
	ListProducts(ctx context.Context, filters map[string]interface{}, page, pageSize int) ([]*models.Product, int, error)

	// ListAllProducts возвращает полный набор записей каталога.
	// Используется резолвером идентичности перед импортом
	ListAllProducts(ctx context.Context) ([]*models.Product, error)

	// BulkInsertProducts вставляет пакет новых товаров.
	// Атомарность обеспечивает транзакция в контексте вызывающего
	BulkInsertProducts(ctx context.Context, products []*models.Product) error

	// BulkUpdateProducts обновляет пакет существующих товаров
	// (только name, description, active, updated_at)
	BulkUpdateProducts(ctx context.Context, products []*models.Product) error

	// Методы для работы с подписками на события

	// SaveWebhook сохраняет подписку (создание или обновление)
	SaveWebhook(ctx context.Context, webhook *models.Webhook) error

	// GetWebhook получает подписку по ID
	// Возвращает nil, nil если подписка не найдена
	GetWebhook(ctx context.Context, webhookID string) (*models.Webhook, error)

	// ListWebhooks возвращает все подписки, новые первыми
	ListWebhooks(ctx context.Context) ([]*models.Webhook, error)

	// ListActiveWebhooksByEvent возвращает активные подписки на тип события
	ListActiveWebhooksByEvent(ctx context.Context, eventType string) ([]*models.Webhook, error)

	// DeleteWebhook удаляет подписку
	DeleteWebhook(ctx context.Context, webhookID string) error
}

type Port interface {
	Storage

	BeginTx(ctx context.Context) (context.Context, error)

	CommitTx(ctx context.Context) error

	RollbackTx(ctx context.Context) error

	Close() error
}
