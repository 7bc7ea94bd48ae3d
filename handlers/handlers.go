// Package handlers maps the todo HTTP surface onto a store.TaskStore.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-api/logging"
	"todo-api/models"
	"todo-api/store"
)

// ListLimit is the fixed page size of the list-by-user endpoint.
const ListLimit = 10

// Handlers serves the todo routes against a TaskStore.
type Handlers struct {
	store  store.TaskStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Handlers built by New.
type Option func(*Handlers)

// WithClock sets the clock used to stamp created_time and ttl.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) { h.now = now }
}

// WithIDGenerator sets the source of new task ids.
func WithIDGenerator(newID func() string) Option {
	return func(h *Handlers) { h.newID = newID }
}

// New returns Handlers backed by st. Without options it uses time.Now and
// models.NewTaskID.
func New(st store.TaskStore, logger *zap.Logger, opts ...Option) *Handlers {
	h := &Handlers{
		store:  st,
		logger: logger,
		now:    time.Now,
		newID:  models.NewTaskID,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the todo routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.POST("/todos", h.CreateTask)
	r.GET("/todos/:task_id", h.GetTask)
	r.GET("/all-todos/:user_id", h.ListUserTasks)
	r.PUT("/todos/:task_id", h.ReplaceTask)
	r.PATCH("/todos/:task_id", h.PatchTask)
	r.DELETE("/todos/:task_id", h.DeleteTask)
}

// NewRouter returns a gin engine with request id, logging and recovery
// middleware, any extra middleware, and the todo routes.
func NewRouter(h *Handlers, logger *zap.Logger, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(logging.RequestID(), logging.Middleware(logger), logging.Recovery(logger))
	r.Use(extra...)
	h.Register(r)
	return r
}

// GET / - liveness
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ping": "pong"})
}

// POST /todos - create a task
func (h *Handlers) CreateTask(c *gin.Context) {
	var in models.IncomingTask
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, invalid(err))
		return
	}

	task := models.NewTask(in, h.newID(), h.now())
	if err := h.store.Put(c.Request.Context(), task); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// GET /todos/:task_id - fetch one task
func (h *Handlers) GetTask(c *gin.Context) {
	task, err := h.store.Get(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// GET /all-todos/:user_id - a user's newest tasks
func (h *Handlers) ListUserTasks(c *gin.Context) {
	tasks, err := h.store.ListByUser(c.Request.Context(), c.Param("user_id"), ListLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// PUT /todos/:task_id - replace content and completion flag
func (h *Handlers) ReplaceTask(c *gin.Context) {
	var in models.IncomingTask
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	h.update(c, in.Replacement())
}

// PATCH /todos/:task_id - change only the fields sent
func (h *Handlers) PatchTask(c *gin.Context) {
	var in models.TaskPatch
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	if err := in.Validate(); err != nil {
		h.respondError(c, err)
		return
	}
	h.update(c, in.Update())
}

func (h *Handlers) update(c *gin.Context, upd models.TaskUpdate) {
	taskID := c.Param("task_id")
	if err := h.store.Update(c.Request.Context(), taskID, upd); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated_task_id": taskID})
}

// DELETE /todos/:task_id - delete a task
func (h *Handlers) DeleteTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := h.store.Delete(c.Request.Context(), taskID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_task_id": taskID})
}

func invalid(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body is required", models.ErrValidation)
	}
	return fmt.Errorf("%w: %s", models.ErrValidation, err)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
	default:
		logging.FromContext(c, h.logger).Error("store operation failed",
			zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
	}
}
