package models

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskLifetime is how long a task lives before the store expires it.
const TaskLifetime = 24 * time.Hour

// ErrValidation marks an inbound payload the service refuses to act on.
var ErrValidation = errors.New("validation error")

// Task is the stored record and the shape returned to clients.
type Task struct {
	TaskID      string  `json:"task_id" dynamodbav:"task_id"`
	Content     string  `json:"content" dynamodbav:"content"`
	UserID      *string `json:"user_id" dynamodbav:"user_id,omitempty"`
	IsCompleted bool    `json:"is_completed" dynamodbav:"is_completed"`
	CreatedTime int64   `json:"created_time" dynamodbav:"created_time"`
	TTL         int64   `json:"ttl" dynamodbav:"ttl"`
}

// Expired reports whether the task's ttl has passed at now.
func (t Task) Expired(now time.Time) bool {
	return t.TTL <= now.Unix()
}

// IncomingTask is the body accepted by POST and PUT.
type IncomingTask struct {
	Content     *string `json:"content" binding:"required"`
	UserID      *string `json:"user_id"`
	IsCompleted *bool   `json:"is_completed"`
}

// TaskPatch is the body accepted by PATCH. Absent fields are left alone.
type TaskPatch struct {
	Content     *string `json:"content"`
	IsCompleted *bool   `json:"is_completed"`
}

func (p TaskPatch) Validate() error {
	if p.Content == nil && p.IsCompleted == nil {
		return fmt.Errorf("%w: provide at least one field: content or is_completed", ErrValidation)
	}
	return nil
}

// TaskUpdate is what a store applies on update; nil fields are not written.
type TaskUpdate struct {
	Content     *string
	IsCompleted *bool
}

// Replacement overwrites both mutable fields, an absent completion flag becoming false.
func (in IncomingTask) Replacement() TaskUpdate {
	completed := in.IsCompleted != nil && *in.IsCompleted
	return TaskUpdate{Content: in.Content, IsCompleted: &completed}
}

func (p TaskPatch) Update() TaskUpdate {
	return TaskUpdate{Content: p.Content, IsCompleted: p.IsCompleted}
}

// NewTaskID returns the 32 hex characters of a random UUID.
func NewTaskID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// NewTask builds the record stored on create.
func NewTask(in IncomingTask, id string, now time.Time) Task {
	created := now.Unix()
	t := Task{
		TaskID:      id,
		UserID:      in.UserID,
		CreatedTime: created,
		TTL:         created + int64(TaskLifetime/time.Second),
	}
	if in.Content != nil {
		t.Content = *in.Content
	}
	if in.IsCompleted != nil {
		t.IsCompleted = *in.IsCompleted
	}
	return t
}
