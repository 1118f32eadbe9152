package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/domain/services"
	"github.com/athebyme/catalog-service/internal/utils"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// WebhookHandler обработчик запросов управления подписками
type WebhookHandler struct {
	webhookService *services.WebhookService
	testTimeout    time.Duration
	logger         interfaces.LoggerPort
}

// NewWebhookHandler создает новый обработчик подписок.
// testTimeout ограничивает время синхронной тестовой доставки
func NewWebhookHandler(webhookService *services.WebhookService, testTimeout time.Duration, logger interfaces.LoggerPort) *WebhookHandler {
	if testTimeout <= 0 {
		testTimeout = 15 * time.Second
	}
	return &WebhookHandler{
		webhookService: webhookService,
		testTimeout:    testTimeout,
		logger:         logger,
	}
}

// ListWebhooks обрабатывает запрос на получение всех подписок
func (h *WebhookHandler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	webhooks, err := h.webhookService.ListWebhooks(r.Context())
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения списка подписок",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения списка подписок",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    webhooks,
	})
}

// CreateWebhook обрабатывает запрос на создание подписки
func (h *WebhookHandler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var webhook models.Webhook
	if err := json.NewDecoder(r.Body).Decode(&webhook); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректный формат данных",
		})
		return
	}

	created, err := h.webhookService.CreateWebhook(r.Context(), &webhook)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidWebhook) || errors.Is(err, utils.ErrInvalidEventType) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{
				Error:   "validation_error",
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			})
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка создания подписки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка создания подписки",
		})
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response{
		Success: true,
		Data:    created,
	})
}

// GetWebhook обрабатывает запрос на получение подписки по ID
func (h *WebhookHandler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "id")

	webhook, err := h.webhookService.GetWebhook(r.Context(), webhookID)
	if err != nil {
		if errors.Is(err, utils.ErrWebhookNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Подписка не найдена",
			})
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения подписки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения подписки",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    webhook,
	})
}

// UpdateWebhook обрабатывает запрос на обновление подписки
func (h *WebhookHandler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "id")

	var webhook models.Webhook
	if err := json.NewDecoder(r.Body).Decode(&webhook); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректный формат данных",
		})
		return
	}

	webhook.ID = webhookID

	updated, err := h.webhookService.UpdateWebhook(r.Context(), &webhook)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidWebhook), errors.Is(err, utils.ErrInvalidEventType):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{
				Error:   "validation_error",
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			})
		case errors.Is(err, utils.ErrWebhookNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Подписка не найдена",
			})
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка обновления подписки",
				interfaces.LogField{Key: "error", Value: err.Error()})
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorResponse{
				Error:   "internal_error",
				Code:    http.StatusInternalServerError,
				Message: "Ошибка обновления подписки",
			})
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    updated,
	})
}

// DeleteWebhook обрабатывает запрос на удаление подписки
func (h *WebhookHandler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "id")

	if err := h.webhookService.DeleteWebhook(r.Context(), webhookID); err != nil {
		if errors.Is(err, utils.ErrWebhookNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Подписка не найдена",
			})
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка удаления подписки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка удаления подписки",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"id":      webhookID,
			"deleted": true,
		},
	})
}

// TestWebhook выполняет синхронную тестовую доставку по подписке.
// Неуспешная доставка не является ошибкой запроса, результат
// возвращается как есть
func (h *WebhookHandler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), h.testTimeout)
	defer cancel()

	result, err := h.webhookService.SendTest(ctx, webhookID)
	if err != nil {
		if errors.Is(err, utils.ErrWebhookNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Подписка не найдена",
			})
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка тестовой доставки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка тестовой доставки",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    result,
	})
}
