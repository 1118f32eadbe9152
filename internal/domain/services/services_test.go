package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/pkg/errors"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// nopLogger - логгер-заглушка для тестов
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})                            {}
func (nopLogger) Info(string, ...interface{})                             {}
func (nopLogger) Warn(string, ...interface{})                             {}
func (nopLogger) Error(string, ...interface{})                            {}
func (nopLogger) Fatal(string, ...interface{})                            {}
func (nopLogger) DebugWithContext(context.Context, string, ...interface{}) {}
func (nopLogger) InfoWithContext(context.Context, string, ...interface{})  {}
func (nopLogger) WarnWithContext(context.Context, string, ...interface{})  {}
func (nopLogger) ErrorWithContext(context.Context, string, ...interface{}) {}
func (l nopLogger) WithFields(...interfaces.LogField) interfaces.LoggerPort { return l }
func (l nopLogger) WithField(string, interface{}) interfaces.LoggerPort     { return l }
func (nopLogger) Sync() error                                              { return nil }

// memCache - кэш в памяти, хранит историю записей по каждому ключу
type memCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	history map[string][][]byte
}

func newMemCache() *memCache {
	return &memCache{
		values:  make(map[string][]byte),
		history: make(map[string][][]byte),
	}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return nil, errors.ErrCacheMiss
	}
	return value, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := append([]byte(nil), value...)
	c.values[key] = stored
	c.history[key] = append(c.history[key], stored)
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func (c *memCache) snapshots(key string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history[key]
}

// fakeStorage - хранилище в памяти, записывающее все пакетные вызовы
type fakeStorage struct {
	mu sync.Mutex

	products []*models.Product
	webhooks []*models.Webhook

	insertBatches [][]models.Product
	updateBatches [][]models.Product

	insertErr       error
	insertErrAt     int // номер вызова BulkInsertProducts начиная с 1
	insertCallCount int

	updateCalls []models.Product
	deleteCalls []string

	begun      int
	committed  int
	rolledBack int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{}
}

func (s *fakeStorage) SaveProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.SKU = models.CanonicalSKU(product.SKU)
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	s.products = append(s.products, product)
	return nil
}

func (s *fakeStorage) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStorage) GetProductBySKU(_ context.Context, sku string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	canonical := models.CanonicalSKU(sku)
	for _, p := range s.products {
		if models.CanonicalSKU(p.SKU) == canonical {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStorage) UpdateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls = append(s.updateCalls, *product)
	return nil
}

func (s *fakeStorage) DeleteProduct(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, productID)
	for i, p := range s.products {
		if p.ID == productID {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStorage) DeleteAllProducts(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := int64(len(s.products))
	s.products = nil
	return deleted, nil
}

func (s *fakeStorage) ListProducts(_ context.Context, _ map[string]interface{}, _, _ int) ([]*models.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products, len(s.products), nil
}

func (s *fakeStorage) ListAllProducts(_ context.Context) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Product(nil), s.products...), nil
}

func (s *fakeStorage) BulkInsertProducts(_ context.Context, products []*models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertCallCount++
	if s.insertErr != nil && (s.insertErrAt == 0 || s.insertErrAt == s.insertCallCount) {
		return s.insertErr
	}

	batch := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		batch = append(batch, *p)
	}
	s.insertBatches = append(s.insertBatches, batch)
	return nil
}

func (s *fakeStorage) BulkUpdateProducts(_ context.Context, products []*models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]models.Product, 0, len(products))
	for _, p := range products {
		batch = append(batch, *p)
	}
	s.updateBatches = append(s.updateBatches, batch)
	return nil
}

func (s *fakeStorage) SaveWebhook(_ context.Context, webhook *models.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if webhook.ID == "" {
		webhook.ID = uuid.New().String()
	}
	for i, wh := range s.webhooks {
		if wh.ID == webhook.ID {
			s.webhooks[i] = webhook
			return nil
		}
	}
	s.webhooks = append(s.webhooks, webhook)
	return nil
}

func (s *fakeStorage) GetWebhook(_ context.Context, webhookID string) (*models.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, wh := range s.webhooks {
		if wh.ID == webhookID {
			return wh, nil
		}
	}
	return nil, nil
}

func (s *fakeStorage) ListWebhooks(_ context.Context) ([]*models.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Webhook(nil), s.webhooks...), nil
}

func (s *fakeStorage) ListActiveWebhooksByEvent(_ context.Context, eventType string) ([]*models.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Webhook
	for _, wh := range s.webhooks {
		if wh.IsActive && wh.EventType == eventType {
			result = append(result, wh)
		}
	}
	return result, nil
}

func (s *fakeStorage) DeleteWebhook(_ context.Context, webhookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, wh := range s.webhooks {
		if wh.ID == webhookID {
			s.webhooks = append(s.webhooks[:i], s.webhooks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStorage) BeginTx(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begun++
	return ctx, nil
}

func (s *fakeStorage) CommitTx(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed++
	return nil
}

func (s *fakeStorage) RollbackTx(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolledBack++
	return nil
}

func (s *fakeStorage) Close() error { return nil }

// publishedMessage - одно опубликованное сообщение
type publishedMessage struct {
	Topic string
	Key   string
	Value []byte
}

// fakeMessaging записывает публикации, умеет отказывать по ключу
type fakeMessaging struct {
	mu        sync.Mutex
	published []publishedMessage
	failKeys  map[string]error
}

func newFakeMessaging() *fakeMessaging {
	return &fakeMessaging{failKeys: make(map[string]error)}
}

func (m *fakeMessaging) Publish(ctx context.Context, topic string, message []byte) error {
	return m.PublishWithKey(ctx, topic, "", message)
}

func (m *fakeMessaging) PublishWithKey(_ context.Context, topic, key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failKeys[key]; ok {
		return err
	}
	m.published = append(m.published, publishedMessage{
		Topic: topic,
		Key:   key,
		Value: append([]byte(nil), message...),
	})
	return nil
}

func (m *fakeMessaging) Subscribe(context.Context, string, interfaces.MessageHandler) (func() error, error) {
	return func() error { return nil }, nil
}

func (m *fakeMessaging) Close() error { return nil }

func (m *fakeMessaging) messages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedMessage(nil), m.published...)
}
