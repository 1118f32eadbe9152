package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// contextKey тип для ключей контекста
type contextKey string

// Ключи контекста
const (
	txKey contextKey = "transaction"
)

// uniqueViolation - код ошибки PostgreSQL для нарушения уникальности
const uniqueViolation = "23505"

// CatalogStorage реализация Port для PostgreSQL
type CatalogStorage struct {
	pool *pgxpool.Pool
}

// NewCatalogStorage создает новый экземпляр CatalogStorage
func NewCatalogStorage(ctx context.Context, connectionString string) (*CatalogStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &CatalogStorage{
		pool: pool,
	}, nil
}

// Close закрывает соединение с БД
func (r *CatalogStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *CatalogStorage) getExecutor(ctx context.Context) executor {
	if tx := r.getTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// getTx получает транзакцию из контекста
func (r *CatalogStorage) getTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// BeginTx начинает новую транзакцию
func (r *CatalogStorage) BeginTx(ctx context.Context) (context.Context, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return context.WithValue(ctx, txKey, tx), nil
}

// CommitTx фиксирует транзакцию
func (r *CatalogStorage) CommitTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Commit(ctx)
}

// RollbackTx откатывает транзакцию
func (r *CatalogStorage) RollbackTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Rollback(ctx)
}

// isUniqueViolation проверяет, что ошибка вызвана нарушением уникальности
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// SaveProduct сохраняет новый товар в базу данных
func (r *CatalogStorage) SaveProduct(ctx context.Context, product *models.Product) error {
	ex := r.getExecutor(ctx)

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.SKU = models.CanonicalSKU(product.SKU)

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	query := `
		INSERT INTO products (id, sku, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := ex.Exec(ctx, query, product.ID, product.SKU, product.Name,
		product.Description, product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return utils.ErrSKUConflict
		}
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// GetProduct получает товар по ID
func (r *CatalogStorage) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	ex := r.getExecutor(ctx)

	query := `
		SELECT id, sku, name, description, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product models.Product
	row := ex.QueryRow(ctx, query, productID)
	err := row.Scan(&product.ID, &product.SKU, &product.Name, &product.Description,
		&product.Active, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Товар не найден
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// GetProductBySKU получает товар по каноническому SKU
func (r *CatalogStorage) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	ex := r.getExecutor(ctx)

	query := `
		SELECT id, sku, name, description, active, created_at, updated_at
		FROM products
		WHERE upper(sku) = $1
	`

	var product models.Product
	row := ex.QueryRow(ctx, query, models.CanonicalSKU(sku))
	err := row.Scan(&product.ID, &product.SKU, &product.Name, &product.Description,
		&product.Active, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by sku: %w", err)
	}

	return &product, nil
}

// UpdateProduct обновляет изменяемые поля товара
func (r *CatalogStorage) UpdateProduct(ctx context.Context, product *models.Product) error {
	ex := r.getExecutor(ctx)

	product.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $2, description = $3, active = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := ex.Exec(ctx, query, product.ID, product.Name, product.Description,
		product.Active, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrProductNotFound
	}

	return nil
}

// DeleteProduct удаляет товар из хранилища
func (r *CatalogStorage) DeleteProduct(ctx context.Context, productID string) error {
	ex := r.getExecutor(ctx)

	query := `
		DELETE FROM products
		WHERE id = $1
	`

	tag, err := ex.Exec(ctx, query, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrProductNotFound
	}

	return nil
}

// DeleteAllProducts удаляет все товары каталога
func (r *CatalogStorage) DeleteAllProducts(ctx context.Context) (int64, error) {
	ex := r.getExecutor(ctx)

	tag, err := ex.Exec(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete all products: %w", err)
	}

	return tag.RowsAffected(), nil
}

// buildProductFilters собирает условия фильтрации и аргументы запроса
func buildProductFilters(filters map[string]interface{}) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if sku, ok := filters["sku"].(string); ok && sku != "" {
		args = append(args, "%"+sku+"%")
		conditions = append(conditions, fmt.Sprintf("sku ILIKE $%d", len(args)))
	}

	if name, ok := filters["name"].(string); ok && name != "" {
		args = append(args, "%"+name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	if description, ok := filters["description"].(string); ok && description != "" {
		args = append(args, "%"+description+"%")
		conditions = append(conditions, fmt.Sprintf("description ILIKE $%d", len(args)))
	}

	if active, ok := filters["active"].(bool); ok {
		args = append(args, active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListProducts возвращает список товаров с поддержкой пагинации и фильтрации
func (r *CatalogStorage) ListProducts(ctx context.Context, filters map[string]interface{}, page, pageSize int) ([]*models.Product, int, error) {
	ex := r.getExecutor(ctx)

	where, args := buildProductFilters(filters)

	// Получаем общее количество записей
	var total int
	countQuery := "SELECT COUNT(*) FROM products" + where
	if err := ex.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	if total == 0 {
		return []*models.Product{}, 0, nil
	}

	dataQuery := fmt.Sprintf(`
		SELECT id, sku, name, description, active, created_at, updated_at
		FROM products%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := ex.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(&product.ID, &product.SKU, &product.Name, &product.Description,
			&product.Active, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, &product)
	}

	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("error while iterating product rows: %w", rows.Err())
	}

	return products, total, nil
}

// ListAllProducts возвращает полный набор записей каталога
func (r *CatalogStorage) ListAllProducts(ctx context.Context) ([]*models.Product, error) {
	ex := r.getExecutor(ctx)

	query := `
		SELECT id, sku, name, description, active, created_at, updated_at
		FROM products
	`

	rows, err := ex.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(&product.ID, &product.SKU, &product.Name, &product.Description,
			&product.Active, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, &product)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating product rows: %w", rows.Err())
	}

	return products, nil
}

// BulkInsertProducts вставляет пакет новых товаров одним batch-запросом.
// Вызывается внутри транзакции импорта: при любой ошибке весь пакет
// откатывается целиком
func (r *CatalogStorage) BulkInsertProducts(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ex := r.getExecutor(ctx)

	query := `
		INSERT INTO products (id, sku, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, product := range products {
		if product.ID == "" {
			product.ID = uuid.New().String()
		}
		product.SKU = models.CanonicalSKU(product.SKU)
		if product.CreatedAt.IsZero() {
			product.CreatedAt = now
		}
		product.UpdatedAt = now

		batch.Queue(query, product.ID, product.SKU, product.Name,
			product.Description, product.Active, product.CreatedAt, product.UpdatedAt)
	}

	results := ex.SendBatch(ctx, batch)
	defer results.Close()

	for range products {
		if _, err := results.Exec(); err != nil {
			if isUniqueViolation(err) {
				return utils.ErrSKUConflict
			}
			return fmt.Errorf("failed to bulk insert products: %w", err)
		}
	}

	return nil
}

// BulkUpdateProducts обновляет пакет существующих товаров одним batch-запросом.
// Обновляются только name, description, active и updated_at
func (r *CatalogStorage) BulkUpdateProducts(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ex := r.getExecutor(ctx)

	query := `
		UPDATE products
		SET name = $2, description = $3, active = $4, updated_at = $5
		WHERE id = $1
	`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, product := range products {
		product.UpdatedAt = now
		batch.Queue(query, product.ID, product.Name, product.Description,
			product.Active, product.UpdatedAt)
	}

	results := ex.SendBatch(ctx, batch)
	defer results.Close()

	for range products {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to bulk update products: %w", err)
		}
	}

	return nil
}

// SaveWebhook сохраняет подписку на событие каталога
func (r *CatalogStorage) SaveWebhook(ctx context.Context, webhook *models.Webhook) error {
	ex := r.getExecutor(ctx)

	if webhook.ID == "" {
		webhook.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = now
	}
	webhook.UpdatedAt = now

	query := `
		INSERT INTO webhooks (id, name, target_url, event_type, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			name = $2,
			target_url = $3,
			event_type = $4,
			is_active = $5,
			updated_at = $7
	`

	_, err := ex.Exec(ctx, query, webhook.ID, webhook.Name, webhook.TargetURL,
		webhook.EventType, webhook.IsActive, webhook.CreatedAt, webhook.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save webhook: %w", err)
	}

	return nil
}

// GetWebhook получает подписку по ID
func (r *CatalogStorage) GetWebhook(ctx context.Context, webhookID string) (*models.Webhook, error) {
	ex := r.getExecutor(ctx)

	query := `
		SELECT id, name, target_url, event_type, is_active, created_at, updated_at
		FROM webhooks
		WHERE id = $1
	`

	var webhook models.Webhook
	row := ex.QueryRow(ctx, query, webhookID)
	err := row.Scan(&webhook.ID, &webhook.Name, &webhook.TargetURL, &webhook.EventType,
		&webhook.IsActive, &webhook.CreatedAt, &webhook.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Подписка не найдена
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}

	return &webhook, nil
}

// ListWebhooks возвращает все подписки, новые первыми
func (r *CatalogStorage) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	ex := r.getExecutor(ctx)

	query := `
		SELECT id, name, target_url, event_type, is_active, created_at, updated_at
		FROM webhooks
		ORDER BY created_at DESC
	`

	rows, err := ex.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	return scanWebhooks(rows)
}

// ListActiveWebhooksByEvent возвращает активные подписки на указанный тип события
func (r *CatalogStorage) ListActiveWebhooksByEvent(ctx context.Context, eventType string) ([]*models.Webhook, error) {
	ex := r.getExecutor(ctx)

	query := `
		SELECT id, name, target_url, event_type, is_active, created_at, updated_at
		FROM webhooks
		WHERE event_type = $1 AND is_active = true
		ORDER BY created_at DESC
	`

	rows, err := ex.Query(ctx, query, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks by event: %w", err)
	}
	defer rows.Close()

	return scanWebhooks(rows)
}

// scanWebhooks собирает результаты выборки подписок
func scanWebhooks(rows pgx.Rows) ([]*models.Webhook, error) {
	var webhooks []*models.Webhook
	for rows.Next() {
		var webhook models.Webhook
		err := rows.Scan(&webhook.ID, &webhook.Name, &webhook.TargetURL, &webhook.EventType,
			&webhook.IsActive, &webhook.CreatedAt, &webhook.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook row: %w", err)
		}
		webhooks = append(webhooks, &webhook)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating webhook rows: %w", rows.Err())
	}

	return webhooks, nil
}

// DeleteWebhook удаляет подписку
func (r *CatalogStorage) DeleteWebhook(ctx context.Context, webhookID string) error {
	ex := r.getExecutor(ctx)

	query := `
		DELETE FROM webhooks
		WHERE id = $1
	`

	tag, err := ex.Exec(ctx, query, webhookID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrWebhookNotFound
	}

	return nil
}
