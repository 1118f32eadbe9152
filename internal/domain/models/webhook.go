package models

import (
	"encoding/json"
	"time"
)

// Типы событий каталога, на которые можно подписаться
const (
	ProductCreatedEvent = "product.created"
	ProductUpdatedEvent = "product.updated"
	ProductDeletedEvent = "product.deleted"

	// WebhookTestEvent используется только для ручной проверки подписки
	WebhookTestEvent = "webhook.test"
)

// EventTypes перечисляет допустимые типы событий подписки
var EventTypes = []string{ProductCreatedEvent, ProductUpdatedEvent, ProductDeletedEvent}

// IsValidEventType проверяет, что тип события входит в список допустимых
func IsValidEventType(eventType string) bool {
	for _, t := range EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// Webhook представляет подписку на событие каталога: один тип события,
// один endpoint доставки. Подписка редактируется только оператором.
type Webhook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TargetURL string    `db:"target_url" json:"target_url"`
	EventType string    `db:"event_type" json:"event_type"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DeliveryJob - задание на одну попытку доставки: эфемерное, не хранится
// в БД, живет только в очереди между диспетчером и воркером.
type DeliveryJob struct {
	TargetURL string          `json:"target_url"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// DeliveryResult - исход одной попытки доставки. Success означает только
// завершившийся HTTP-обмен: 4xx/5xx тоже считаются доставкой, ошибкой
// является лишь сбой транспорта или таймаут.
type DeliveryResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	URL        string `json:"url"`
	Error      string `json:"error,omitempty"`
}

// ProductPayload формирует полный снимок полей товара для событий
// created/updated.
func ProductPayload(p *Product) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID,
		"sku":         p.SKU,
		"name":        p.Name,
		"description": p.Description,
		"active":      p.Active,
		"created_at":  p.CreatedAt.Format(time.RFC3339),
		"updated_at":  p.UpdatedAt.Format(time.RFC3339),
	}
}

// ProductDeletedPayload формирует усеченный снимок для события deleted:
// полная запись уже не авторитетна, отправляем только идентичность.
func ProductDeletedPayload(p *Product) map[string]interface{} {
	return map[string]interface{}{
		"id":   p.ID,
		"sku":  p.SKU,
		"name": p.Name,
	}
}
