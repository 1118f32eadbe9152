package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/athebyme/catalog-service/internal/adapters/storage"
	"github.com/athebyme/catalog-service/internal/adapters/webhook"
	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/utils"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// WebhookService управляет подписками на события каталога и раздает
// события по активным подпискам
type WebhookService struct {
	storage   postgres.Port
	messaging interfaces.MessagingPort
	sender    *webhook.Sender
	topic     string
	logger    interfaces.LoggerPort
}

// NewWebhookService создает сервис подписок.
// topic - очередь заданий доставки для воркера
func NewWebhookService(st postgres.Port, messaging interfaces.MessagingPort, sender *webhook.Sender, topic string, logger interfaces.LoggerPort) *WebhookService {
	return &WebhookService{
		storage:   st,
		messaging: messaging,
		sender:    sender,
		topic:     topic,
		logger:    logger,
	}
}

// CreateWebhook регистрирует новую подписку
func (s *WebhookService) CreateWebhook(ctx context.Context, wh *models.Webhook) (*models.Webhook, error) {
	if err := validateWebhook(wh); err != nil {
		return nil, err
	}

	wh.ID = uuid.New().String()
	if err := s.storage.SaveWebhook(ctx, wh); err != nil {
		return nil, err
	}

	s.logger.InfoWithContext(ctx, "Подписка создана",
		interfaces.LogField{Key: "webhook_id", Value: wh.ID},
		interfaces.LogField{Key: "event_type", Value: wh.EventType},
	)
	return wh, nil
}

// GetWebhook возвращает подписку по идентификатору
func (s *WebhookService) GetWebhook(ctx context.Context, webhookID string) (*models.Webhook, error) {
	wh, err := s.storage.GetWebhook(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, utils.ErrWebhookNotFound
	}
	return wh, nil
}

// ListWebhooks возвращает все подписки
func (s *WebhookService) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	return s.storage.ListWebhooks(ctx)
}

// UpdateWebhook обновляет существующую подписку
func (s *WebhookService) UpdateWebhook(ctx context.Context, wh *models.Webhook) (*models.Webhook, error) {
	if err := validateWebhook(wh); err != nil {
		return nil, err
	}

	existing, err := s.storage.GetWebhook(ctx, wh.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, utils.ErrWebhookNotFound
	}

	wh.CreatedAt = existing.CreatedAt
	if err := s.storage.SaveWebhook(ctx, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

// DeleteWebhook удаляет подписку
func (s *WebhookService) DeleteWebhook(ctx context.Context, webhookID string) error {
	return s.storage.DeleteWebhook(ctx, webhookID)
}

// Dispatch раздает событие по всем активным подпискам данного типа.
// Вызывается строго после коммита мутации каталога. Доставка
// fire-and-forget: сбой постановки одного задания логируется и не
// мешает остальным
func (s *WebhookService) Dispatch(ctx context.Context, eventType string, payload map[string]interface{}) {
	webhooks, err := s.storage.ListActiveWebhooksByEvent(ctx, eventType)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "Ошибка выборки подписок для события",
			interfaces.LogField{Key: "event_type", Value: eventType},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return
	}
	if len(webhooks) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "Ошибка сериализации payload события",
			interfaces.LogField{Key: "event_type", Value: eventType},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return
	}

	for _, wh := range webhooks {
		job, err := json.Marshal(models.DeliveryJob{
			TargetURL: wh.TargetURL,
			EventType: eventType,
			Payload:   data,
		})
		if err != nil {
			s.logger.ErrorWithContext(ctx, "Ошибка сериализации задания доставки",
				interfaces.LogField{Key: "webhook_id", Value: wh.ID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}

		if err := s.messaging.PublishWithKey(ctx, s.topic, wh.TargetURL, job); err != nil {
			s.logger.ErrorWithContext(ctx, "Ошибка постановки задания доставки",
				interfaces.LogField{Key: "webhook_id", Value: wh.ID},
				interfaces.LogField{Key: "event_type", Value: eventType},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}
}

// SendTest выполняет синхронную тестовую доставку по подписке.
// Тестовое событие отправляется даже по неактивной подписке
func (s *WebhookService) SendTest(ctx context.Context, webhookID string) (*models.DeliveryResult, error) {
	wh, err := s.storage.GetWebhook(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, utils.ErrWebhookNotFound
	}

	payload, err := json.Marshal(map[string]interface{}{
		"webhook_name": wh.Name,
		"message":      "Это тестовое событие",
		"test":         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test payload: %w", err)
	}

	return s.sender.Send(ctx, wh.TargetURL, models.WebhookTestEvent, payload), nil
}

func validateWebhook(wh *models.Webhook) error {
	if wh.Name == "" || wh.TargetURL == "" {
		return utils.ErrInvalidWebhook
	}
	if !models.IsValidEventType(wh.EventType) {
		return utils.ErrInvalidEventType
	}
	return nil
}
