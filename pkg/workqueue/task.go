package workqueue

import (
	"context"

	"github.com/google/uuid"
)

// Task is a unit of background work.
type Task interface {
	// ID returns a unique identifier for this task instance.
	ID() string

	// Name returns a human-readable name for logging.
	Name() string

	// Execute runs the task. The context is cancelled when the queue stops.
	Execute(ctx context.Context) error
}

// BaseTask provides ID and Name plumbing for concrete tasks.
type BaseTask struct {
	id   string
	name string
}

// NewBaseTask creates a BaseTask with a fresh unique ID.
func NewBaseTask(name string) BaseTask {
	return BaseTask{
		id:   uuid.New().String(),
		name: name,
	}
}

// ID returns the task ID.
func (t BaseTask) ID() string {
	return t.id
}

// Name returns the task name.
func (t BaseTask) Name() string {
	return t.name
}
