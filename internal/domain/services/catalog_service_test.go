package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/utils"
)

func newCatalogFixture(st *fakeStorage, messaging *fakeMessaging) *CatalogService {
	webhookService := newWebhookFixture(st, messaging)
	return NewCatalogService(st, webhookService, nopLogger{})
}

func TestCreateProductValidation(t *testing.T) {
	service := newCatalogFixture(newFakeStorage(), newFakeMessaging())
	ctx := context.Background()

	_, err := service.CreateProduct(ctx, &models.Product{Name: "Без SKU"})
	if !errors.Is(err, utils.ErrEmptySKU) {
		t.Fatalf("err = %v, ожидался ErrEmptySKU", err)
	}

	_, err = service.CreateProduct(ctx, &models.Product{SKU: "ABC-1"})
	if !errors.Is(err, utils.ErrEmptyName) {
		t.Fatalf("err = %v, ожидался ErrEmptyName", err)
	}
}

func TestCreateProductCanonicalizesAndDispatches(t *testing.T) {
	st := newFakeStorage()
	st.webhooks = []*models.Webhook{
		{ID: "w1", TargetURL: "https://a.example/hook", EventType: models.ProductCreatedEvent, IsActive: true},
	}
	messaging := newFakeMessaging()
	service := newCatalogFixture(st, messaging)

	created, err := service.CreateProduct(context.Background(), &models.Product{SKU: "  abc-1 ", Name: "Товар"})
	if err != nil {
		t.Fatal(err)
	}
	if created.SKU != "ABC-1" {
		t.Fatalf("sku = %q, ожидалась каноническая форма", created.SKU)
	}
	if created.ID == "" {
		t.Fatal("ID не присвоен")
	}

	published := messaging.messages()
	if len(published) != 1 {
		t.Fatalf("опубликовано %d заданий, ожидалось 1", len(published))
	}
	var job models.DeliveryJob
	if err := json.Unmarshal(published[0].Value, &job); err != nil {
		t.Fatal(err)
	}
	if job.EventType != models.ProductCreatedEvent {
		t.Fatalf("event_type = %q", job.EventType)
	}
}

func TestUpdateProductKeepsSKU(t *testing.T) {
	st := newFakeStorage()
	st.products = []*models.Product{
		{ID: "p1", SKU: "ABC-1", Name: "Старое имя", Description: "Старое", Active: true},
	}
	service := newCatalogFixture(st, newFakeMessaging())

	updated, err := service.UpdateProduct(context.Background(), &models.Product{
		ID:          "p1",
		SKU:         "HACK-1",
		Name:        "Новое имя",
		Description: "Новое",
		Active:      false,
	})
	if err != nil {
		t.Fatal(err)
	}

	if updated.SKU != "ABC-1" {
		t.Fatalf("sku = %q, SKU не должен меняться", updated.SKU)
	}
	if updated.Name != "Новое имя" || updated.Active {
		t.Fatalf("updated = %+v", updated)
	}
	if len(st.updateCalls) != 1 {
		t.Fatalf("updateCalls = %d", len(st.updateCalls))
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	service := newCatalogFixture(newFakeStorage(), newFakeMessaging())

	_, err := service.UpdateProduct(context.Background(), &models.Product{ID: "no-such", Name: "Имя"})
	if !errors.Is(err, utils.ErrProductNotFound) {
		t.Fatalf("err = %v, ожидался ErrProductNotFound", err)
	}
}

func TestDeleteProductDispatchesTruncatedPayload(t *testing.T) {
	st := newFakeStorage()
	st.products = []*models.Product{
		{ID: "p1", SKU: "ABC-1", Name: "Товар", Description: "Описание"},
	}
	st.webhooks = []*models.Webhook{
		{ID: "w1", TargetURL: "https://a.example/hook", EventType: models.ProductDeletedEvent, IsActive: true},
	}
	messaging := newFakeMessaging()
	service := newCatalogFixture(st, messaging)

	if err := service.DeleteProduct(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	published := messaging.messages()
	if len(published) != 1 {
		t.Fatalf("опубликовано %d заданий, ожидалось 1", len(published))
	}

	var job models.DeliveryJob
	if err := json.Unmarshal(published[0].Value, &job); err != nil {
		t.Fatal(err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["sku"] != "ABC-1" || payload["id"] != "p1" {
		t.Fatalf("payload = %v", payload)
	}
	if _, ok := payload["description"]; ok {
		t.Fatal("payload удаления должен быть усеченным")
	}
}

func TestBulkDeleteDispatchesPerRecord(t *testing.T) {
	st := newFakeStorage()
	st.products = []*models.Product{
		{ID: "p1", SKU: "ABC-1", Name: "Первый"},
		{ID: "p2", SKU: "ABC-2", Name: "Второй"},
	}
	st.webhooks = []*models.Webhook{
		{ID: "w1", TargetURL: "https://a.example/hook", EventType: models.ProductDeletedEvent, IsActive: true},
	}
	messaging := newFakeMessaging()
	service := newCatalogFixture(st, messaging)

	deleted, err := service.BulkDeleteProducts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, ожидалось 2", deleted)
	}

	remaining, err := st.ListAllProducts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Fatalf("в каталоге осталось %d записей", len(remaining))
	}

	published := messaging.messages()
	if len(published) != 2 {
		t.Fatalf("опубликовано %d заданий, ожидалось по одному на запись", len(published))
	}
	seen := map[string]bool{}
	for _, msg := range published {
		var job models.DeliveryJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			t.Fatal(err)
		}
		if job.EventType != models.ProductDeletedEvent {
			t.Fatalf("event_type = %q", job.EventType)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		seen[payload["sku"].(string)] = true
	}
	if !seen["ABC-1"] || !seen["ABC-2"] {
		t.Fatalf("события не покрывают все записи: %v", seen)
	}
}

func TestBulkDeleteEmptyCatalog(t *testing.T) {
	messaging := newFakeMessaging()
	service := newCatalogFixture(newFakeStorage(), messaging)

	deleted, err := service.BulkDeleteProducts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Fatalf("deleted = %d, ожидалось 0", deleted)
	}
	if len(messaging.messages()) != 0 {
		t.Fatal("для пустого каталога не должно быть событий")
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	service := newCatalogFixture(newFakeStorage(), newFakeMessaging())

	err := service.DeleteProduct(context.Background(), "no-such")
	if !errors.Is(err, utils.ErrProductNotFound) {
		t.Fatalf("err = %v, ожидался ErrProductNotFound", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	service := newCatalogFixture(newFakeStorage(), newFakeMessaging())

	_, err := service.GetProduct(context.Background(), "no-such")
	if !errors.Is(err, utils.ErrProductNotFound) {
		t.Fatalf("err = %v, ожидался ErrProductNotFound", err)
	}
}
