package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// envelope - тело исходящего POST-запроса
type envelope struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Sender выполняет одну попытку доставки вебхука.
// Повторов и dead-letter очереди нет: одна попытка на подписку и событие.
type Sender struct {
	client *http.Client
	logger interfaces.LoggerPort
}

// NewSender создает новый отправитель с фиксированным таймаутом доставки
func NewSender(timeout time.Duration, logger interfaces.LoggerPort) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send выполняет HTTP POST на endpoint подписки.
// Любой завершившийся обмен считается доставкой независимо от статус-кода,
// ошибкой является только сбой транспорта или таймаут
func (s *Sender) Send(ctx context.Context, targetURL, eventType string, payload json.RawMessage) *models.DeliveryResult {
	body, err := json.Marshal(envelope{
		Event:     eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      payload,
	})
	if err != nil {
		return &models.DeliveryResult{
			Success: false,
			URL:     targetURL,
			Error:   fmt.Sprintf("ошибка сериализации тела запроса: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return &models.DeliveryResult{
			Success: false,
			URL:     targetURL,
			Error:   fmt.Sprintf("ошибка создания запроса: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WarnWithContext(ctx, "Доставка вебхука не удалась",
			interfaces.LogField{Key: "url", Value: targetURL},
			interfaces.LogField{Key: "event", Value: eventType},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return &models.DeliveryResult{
			Success: false,
			URL:     targetURL,
			Error:   err.Error(),
		}
	}
	defer resp.Body.Close()

	s.logger.InfoWithContext(ctx, "Вебхук доставлен",
		interfaces.LogField{Key: "url", Value: targetURL},
		interfaces.LogField{Key: "event", Value: eventType},
		interfaces.LogField{Key: "status_code", Value: resp.StatusCode},
	)

	return &models.DeliveryResult{
		Success:    true,
		StatusCode: resp.StatusCode,
		URL:        targetURL,
	}
}
