package utils

import (
	"context"
	"testing"
)

func TestTaskIDRoundTrip(t *testing.T) {
	ctx := WithTaskID(context.Background(), "task-1")

	taskID, ok := TaskIDFromContext(ctx)
	if !ok || taskID != "task-1" {
		t.Fatalf("taskID = %q, ok = %v", taskID, ok)
	}
}

func TestTaskIDAbsent(t *testing.T) {
	if _, ok := TaskIDFromContext(context.Background()); ok {
		t.Fatal("пустой контекст не должен содержать task_id")
	}
}
