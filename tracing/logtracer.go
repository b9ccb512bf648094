package tracing

import (
	"log"
	"sync"
	"time"
)

// LogTracer prints one line per finished task.
type LogTracer struct {
	lock     sync.Mutex
	logger   *log.Logger
	filter   TaskFilter
	inflight map[string]Task
	now      func() time.Time
}

// NewLogTracer creates a LogTracer that writes to logger. A nil filter
// accepts all tasks.
func NewLogTracer(logger *log.Logger, filter TaskFilter) *LogTracer {
	if filter == nil {
		filter = AllTasks
	}

	return &LogTracer{
		logger:   logger,
		filter:   filter,
		inflight: make(map[string]Task),
		now:      time.Now,
	}
}

// StartTask remembers the task until it ends.
func (t *LogTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	task.StartTime = t.now()
	t.inflight[task.ID] = task
}

// StepTask appends the step to the in-flight task.
func (t *LogTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	for _, s := range task.Steps {
		s.Time = t.now()
		original.Steps = append(original.Steps, s)
	}

	t.inflight[task.ID] = original
}

// EndTask prints the task.
func (t *LogTracer) EndTask(task Task) {
	t.lock.Lock()
	original, ok := t.inflight[task.ID]
	delete(t.inflight, task.ID)
	t.lock.Unlock()

	if !ok {
		return
	}

	original.EndTime = t.now()

	steps := make([]string, 0, len(original.Steps))
	for _, s := range original.Steps {
		steps = append(steps, s.What)
	}

	t.logger.Printf("%s, %s, %s, %s, %v, %v\n",
		original.Location,
		original.ID,
		original.Kind,
		original.What,
		original.EndTime.Sub(original.StartTime),
		steps)
}
