package tracing

import (
	"sync"
	"time"
)

// TimeTracer adds up how long tasks take. If two tasks overlap, both of
// their durations count in full.
type TimeTracer struct {
	filter TaskFilter
	now    func() time.Time

	lock          sync.Mutex
	totalTime     time.Duration
	taskCount     uint64
	inflightTasks map[string]time.Time
}

// NewTimeTracer creates a new TimeTracer. A nil filter accepts all tasks.
func NewTimeTracer(filter TaskFilter) *TimeTracer {
	if filter == nil {
		filter = AllTasks
	}

	return &TimeTracer{
		filter:        filter,
		now:           time.Now,
		inflightTasks: make(map[string]time.Time),
	}
}

// TotalTime returns the time spent on all finished tasks.
func (t *TimeTracer) TotalTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// TotalCount returns the number of finished tasks.
func (t *TimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// AverageTime returns the mean duration of finished tasks, or 0 if none has
// finished.
func (t *TimeTracer) AverageTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.taskCount == 0 {
		return 0
	}

	return t.totalTime / time.Duration(t.taskCount)
}

// StartTask records the task start time
func (t *TimeTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = t.now()
	t.lock.Unlock()
}

// StepTask does nothing
func (t *TimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *TimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	t.totalTime += t.now().Sub(start)
	t.taskCount++
	delete(t.inflightTasks, task.ID)
}
