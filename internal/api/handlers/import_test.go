package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/domain/services"
	pkgerrors "github.com/athebyme/catalog-service/pkg/errors"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

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

type memCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return nil, pkgerrors.ErrCacheMiss
	}
	return value, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = append([]byte(nil), value...)
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error { return nil }
func (c *memCache) Close() error                               { return nil }

type recordingMessaging struct {
	mu        sync.Mutex
	published [][]byte
}

func (m *recordingMessaging) Publish(ctx context.Context, topic string, message []byte) error {
	return m.PublishWithKey(ctx, topic, "", message)
}

func (m *recordingMessaging) PublishWithKey(_ context.Context, _ string, _ string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, append([]byte(nil), message...))
	return nil
}

func (m *recordingMessaging) Subscribe(context.Context, string, interfaces.MessageHandler) (func() error, error) {
	return func() error { return nil }, nil
}

func (m *recordingMessaging) Close() error { return nil }

func newImportHandlerFixture(t *testing.T) (*ImportHandler, *recordingMessaging, *memCache) {
	t.Helper()
	messaging := &recordingMessaging{}
	cache := &memCache{values: make(map[string][]byte)}

	queue := services.NewImportQueue(messaging, "catalog-import-commands", nopLogger{})
	tracker := services.NewProgressTracker(cache, time.Hour, nopLogger{})

	return NewImportHandler(queue, tracker, t.TempDir(), nopLogger{}), messaging, cache
}

func multipartUpload(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadRejectsNonCSV(t *testing.T) {
	handler, messaging, _ := newImportHandlerFixture(t)

	rec := httptest.NewRecorder()
	handler.UploadCSV(rec, multipartUpload(t, "data.txt", "sku,name\n"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, ожидался 400", rec.Code)
	}
	if len(messaging.published) != 0 {
		t.Fatal("задание опубликовано для отклоненного файла")
	}
}

func TestUploadAcceptsCSV(t *testing.T) {
	handler, messaging, _ := newImportHandlerFixture(t)

	rec := httptest.NewRecorder()
	handler.UploadCSV(rec, multipartUpload(t, "catalog.csv", "sku,name,description,active\nABC-1,Товар,,true\n"))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, ожидался 202: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.TaskID == "" {
		t.Fatal("task_id отсутствует в ответе")
	}

	if len(messaging.published) != 1 {
		t.Fatalf("опубликовано %d команд, ожидалась 1", len(messaging.published))
	}
	var command models.ImportCommand
	if err := json.Unmarshal(messaging.published[0], &command); err != nil {
		t.Fatal(err)
	}
	if command.TaskID != resp.Data.TaskID {
		t.Fatalf("task_id в команде %q, в ответе %q", command.TaskID, resp.Data.TaskID)
	}
	if _, err := os.Stat(command.FilePath); err != nil {
		t.Fatalf("сохраненный файл недоступен: %v", err)
	}
}

func TestImportStatusUnknownTaskIsPending(t *testing.T) {
	handler, _, _ := newImportHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/import/no-such/status", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("task_id", "no-such")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.GetImportStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, ожидался 200", rec.Code)
	}

	var resp struct {
		Data models.ImportStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.State != models.ImportStatePending {
		t.Fatalf("state = %s, ожидался PENDING", resp.Data.State)
	}
}
