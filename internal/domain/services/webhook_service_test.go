package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/athebyme/catalog-service/internal/adapters/webhook"
	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/utils"
)

const deliveriesTopic = "catalog-webhook-deliveries"

func newWebhookFixture(st *fakeStorage, messaging *fakeMessaging) *WebhookService {
	sender := webhook.NewSender(0, nopLogger{})
	return NewWebhookService(st, messaging, sender, deliveriesTopic, nopLogger{})
}

func TestDispatchFansOutToActiveSubscriptions(t *testing.T) {
	st := newFakeStorage()
	st.webhooks = []*models.Webhook{
		{ID: "w1", Name: "Первый", TargetURL: "https://a.example/hook", EventType: models.ProductCreatedEvent, IsActive: true},
		{ID: "w2", Name: "Второй", TargetURL: "https://b.example/hook", EventType: models.ProductCreatedEvent, IsActive: true},
		{ID: "w3", Name: "Выключенный", TargetURL: "https://c.example/hook", EventType: models.ProductCreatedEvent, IsActive: false},
		{ID: "w4", Name: "Другое событие", TargetURL: "https://d.example/hook", EventType: models.ProductDeletedEvent, IsActive: true},
	}
	messaging := newFakeMessaging()
	service := newWebhookFixture(st, messaging)

	product := &models.Product{ID: "p1", SKU: "ABC-1", Name: "Товар"}
	service.Dispatch(context.Background(), models.ProductCreatedEvent, models.ProductPayload(product))

	published := messaging.messages()
	if len(published) != 2 {
		t.Fatalf("опубликовано %d заданий, ожидалось 2", len(published))
	}

	for _, msg := range published {
		if msg.Topic != deliveriesTopic {
			t.Fatalf("topic = %q", msg.Topic)
		}
		var job models.DeliveryJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			t.Fatal(err)
		}
		if job.EventType != models.ProductCreatedEvent {
			t.Fatalf("event_type = %q", job.EventType)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		if payload["sku"] != "ABC-1" {
			t.Fatalf("payload = %v", payload)
		}
	}
}

func TestDispatchPublishFailureDoesNotStopOthers(t *testing.T) {
	st := newFakeStorage()
	st.webhooks = []*models.Webhook{
		{ID: "w1", TargetURL: "https://broken.example/hook", EventType: models.ProductUpdatedEvent, IsActive: true},
		{ID: "w2", TargetURL: "https://ok.example/hook", EventType: models.ProductUpdatedEvent, IsActive: true},
	}
	messaging := newFakeMessaging()
	messaging.failKeys["https://broken.example/hook"] = errors.New("очередь недоступна")
	service := newWebhookFixture(st, messaging)

	product := &models.Product{ID: "p1", SKU: "ABC-1", Name: "Товар"}
	service.Dispatch(context.Background(), models.ProductUpdatedEvent, models.ProductPayload(product))

	published := messaging.messages()
	if len(published) != 1 {
		t.Fatalf("опубликовано %d заданий, ожидалось 1", len(published))
	}
	if published[0].Key != "https://ok.example/hook" {
		t.Fatalf("key = %q", published[0].Key)
	}
}

func TestDispatchWithoutSubscriptionsPublishesNothing(t *testing.T) {
	messaging := newFakeMessaging()
	service := newWebhookFixture(newFakeStorage(), messaging)

	product := &models.Product{ID: "p1", SKU: "ABC-1"}
	service.Dispatch(context.Background(), models.ProductDeletedEvent, models.ProductDeletedPayload(product))

	if len(messaging.messages()) != 0 {
		t.Fatal("публикации при отсутствии подписок")
	}
}

func TestCreateWebhookValidation(t *testing.T) {
	service := newWebhookFixture(newFakeStorage(), newFakeMessaging())
	ctx := context.Background()

	_, err := service.CreateWebhook(ctx, &models.Webhook{Name: "Без URL", EventType: models.ProductCreatedEvent})
	if !errors.Is(err, utils.ErrInvalidWebhook) {
		t.Fatalf("err = %v, ожидался ErrInvalidWebhook", err)
	}

	_, err = service.CreateWebhook(ctx, &models.Webhook{Name: "Хук", TargetURL: "https://a.example", EventType: "product.exploded"})
	if !errors.Is(err, utils.ErrInvalidEventType) {
		t.Fatalf("err = %v, ожидался ErrInvalidEventType", err)
	}

	created, err := service.CreateWebhook(ctx, &models.Webhook{Name: "Хук", TargetURL: "https://a.example", EventType: models.ProductCreatedEvent})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("ID не присвоен")
	}
}

func TestUpdateWebhookUnknownID(t *testing.T) {
	service := newWebhookFixture(newFakeStorage(), newFakeMessaging())

	_, err := service.UpdateWebhook(context.Background(), &models.Webhook{
		ID:        "no-such",
		Name:      "Хук",
		TargetURL: "https://a.example",
		EventType: models.ProductCreatedEvent,
	})
	if !errors.Is(err, utils.ErrWebhookNotFound) {
		t.Fatalf("err = %v, ожидался ErrWebhookNotFound", err)
	}
}

func TestSendTestDeliversSynchronously(t *testing.T) {
	var received struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("тело запроса не разбирается: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	st := newFakeStorage()
	st.webhooks = []*models.Webhook{
		{ID: "w1", Name: "Тестовый хук", TargetURL: server.URL, EventType: models.ProductCreatedEvent, IsActive: false},
	}
	service := newWebhookFixture(st, newFakeMessaging())

	result, err := service.SendTest(context.Background(), "w1")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("result = %+v, ожидался успех", result)
	}
	if result.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", result.StatusCode)
	}
	if received.Event != models.WebhookTestEvent {
		t.Fatalf("event = %q", received.Event)
	}
	if received.Data["webhook_name"] != "Тестовый хук" || received.Data["test"] != true {
		t.Fatalf("data = %v", received.Data)
	}
}

func TestSendTestUnknownWebhook(t *testing.T) {
	service := newWebhookFixture(newFakeStorage(), newFakeMessaging())

	_, err := service.SendTest(context.Background(), "no-such")
	if !errors.Is(err, utils.ErrWebhookNotFound) {
		t.Fatalf("err = %v, ожидался ErrWebhookNotFound", err)
	}
}
