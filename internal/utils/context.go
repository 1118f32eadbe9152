package utils

import "context"

type contextKey string

const taskIDKey contextKey = "task_id"

// WithTaskID кладет идентификатор задачи импорта в контекст
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// TaskIDFromContext достает идентификатор задачи импорта из контекста
func TaskIDFromContext(ctx context.Context) (string, bool) {
	taskID, ok := ctx.Value(taskIDKey).(string)
	return taskID, ok
}
