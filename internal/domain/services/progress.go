package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// importTaskKeyPrefix - префикс ключей реестра задач импорта в кэше
const importTaskKeyPrefix = "import:task:"

// ProgressTracker - реестр состояний запусков импорта поверх key-value
// хранилища. Писатель один (запуск импорта), читателей сколько угодно.
// Хранится только последний снимок, запись last-write-wins.
type ProgressTracker struct {
	cache  interfaces.CachePort
	ttl    time.Duration
	logger interfaces.LoggerPort
}

// NewProgressTracker создает новый трекер прогресса.
// ttl задает срок хранения снимка; по его истечении задача становится
// неотличимой от никогда не существовавшей
func NewProgressTracker(cache interfaces.CachePort, ttl time.Duration, logger interfaces.LoggerPort) *ProgressTracker {
	return &ProgressTracker{
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Set перезаписывает снимок состояния задачи.
// Ошибки записи не прерывают импорт, только логируются
func (t *ProgressTracker) Set(ctx context.Context, taskID string, status *models.ImportStatus) {
	value, err := json.Marshal(status)
	if err != nil {
		t.logger.ErrorWithContext(ctx, "Ошибка сериализации снимка состояния импорта",
			interfaces.LogField{Key: "task_id", Value: taskID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return
	}

	if err := t.cache.Set(ctx, importTaskKeyPrefix+taskID, value, t.ttl); err != nil {
		t.logger.ErrorWithContext(ctx, "Ошибка записи снимка состояния импорта",
			interfaces.LogField{Key: "task_id", Value: taskID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
}

// Get возвращает последний снимок состояния задачи.
// Никогда не возвращает ошибку: неизвестный, вытесненный или испорченный
// снимок читается как PENDING с нулевыми счетчиками
func (t *ProgressTracker) Get(ctx context.Context, taskID string) *models.ImportStatus {
	value, err := t.cache.Get(ctx, importTaskKeyPrefix+taskID)
	if err != nil {
		return models.PendingImportStatus()
	}

	var status models.ImportStatus
	if err := json.Unmarshal(value, &status); err != nil {
		t.logger.WarnWithContext(ctx, "Испорченный снимок состояния импорта",
			interfaces.LogField{Key: "task_id", Value: taskID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return models.PendingImportStatus()
	}

	return &status
}
