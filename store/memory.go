package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"todo-api/models"
)

// Memory keeps tasks in a map. Expired tasks are hidden from reads and
// removed by PurgeExpired.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]models.Task), now: time.Now}
}

// WithClock replaces the clock used for expiry checks.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Put(_ context.Context, task models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.TaskID] = task
	return nil
}

func (m *Memory) Get(_ context.Context, taskID string) (models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[taskID]
	if !ok || t.Expired(m.now()) {
		return models.Task{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) ListByUser(_ context.Context, userID string, limit int) ([]models.Task, error) {
	m.mu.RLock()
	now := m.now()
	out := make([]models.Task, 0)
	for _, t := range m.tasks {
		if t.UserID == nil || *t.UserID != userID || t.Expired(now) {
			continue
		}
		out = append(out, t)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedTime != out[j].CreatedTime {
			return out[i].CreatedTime > out[j].CreatedTime
		}
		return out[i].TaskID > out[j].TaskID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Update(_ context.Context, taskID string, upd models.TaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok || t.Expired(m.now()) {
		return nil
	}
	if upd.Content != nil {
		t.Content = *upd.Content
	}
	if upd.IsCompleted != nil {
		t.IsCompleted = *upd.IsCompleted
	}
	m.tasks[taskID] = t
	return nil
}

func (m *Memory) Delete(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *Memory) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, t := range m.tasks {
		if t.Expired(now) {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
