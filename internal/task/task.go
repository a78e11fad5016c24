package task

import (
	"context"

	"github.com/google/uuid"
)

// Task type constants
const (
	// TaskTypeRemoteResponseWrite uploads a recorded answer to the remote store.
	TaskTypeRemoteResponseWrite = "remote_response_write"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// FuncTask adapts a closure to the Task interface.
type FuncTask struct {
	id       uuid.UUID
	taskType string
	fn       func(ctx context.Context) error
}

// NewFuncTask wraps fn as a task of the given type with a fresh ID.
func NewFuncTask(taskType string, fn func(ctx context.Context) error) *FuncTask {
	if fn == nil {
		panic("fn cannot be nil")
	}
	return &FuncTask{id: uuid.New(), taskType: taskType, fn: fn}
}

// ID implements Task.
func (t *FuncTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *FuncTask) Type() string { return t.taskType }

// Execute implements Task.
func (t *FuncTask) Execute(ctx context.Context) error { return t.fn(ctx) }
