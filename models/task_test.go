package models

import (
	"errors"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestNewTaskDefaults(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	task := NewTask(IncomingTask{Content: ptr("buy milk")}, "abc", now)

	if task.TaskID != "abc" || task.Content != "buy milk" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.IsCompleted {
		t.Fatal("is_completed should default to false")
	}
	if task.UserID != nil {
		t.Fatalf("user_id=%v", *task.UserID)
	}
	if task.CreatedTime != now.Unix() {
		t.Fatalf("created_time=%d", task.CreatedTime)
	}
	if task.TTL-task.CreatedTime != 86400 {
		t.Fatalf("ttl-created_time=%d", task.TTL-task.CreatedTime)
	}
}

func TestNewTaskKeepsClientFields(t *testing.T) {
	task := NewTask(IncomingTask{
		Content:     ptr("x"),
		UserID:      ptr("u1"),
		IsCompleted: ptr(true),
	}, "id", time.Now())

	if !task.IsCompleted || task.UserID == nil || *task.UserID != "u1" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestNewTaskIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := NewTaskID()
		if len(id) != 32 {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d samples", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestReplacementDefaultsCompletion(t *testing.T) {
	upd := IncomingTask{Content: ptr("c")}.Replacement()
	if upd.IsCompleted == nil || *upd.IsCompleted {
		t.Fatalf("expected explicit false, got %v", upd.IsCompleted)
	}
	if upd.Content == nil || *upd.Content != "c" {
		t.Fatalf("content=%v", upd.Content)
	}
}

func TestTaskPatchValidate(t *testing.T) {
	if err := (TaskPatch{}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("err=%v", err)
	}
	if err := (TaskPatch{IsCompleted: ptr(false)}).Validate(); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	if (Task{TTL: 1001}).Expired(now) {
		t.Fatal("not yet expired")
	}
	if !(Task{TTL: 1000}).Expired(now) {
		t.Fatal("expired at ttl")
	}
}
