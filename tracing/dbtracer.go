package tracing

import (
	"strings"
	"sync"
	"time"

	"github.com/sarchlab/radixmmu/datarecording"
)

// TaskTableName is the table that DBTracer writes finished tasks into.
const TaskTableName = "trace_tasks"

type taskTableEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
	Steps     string
}

// DBTracer is a tracer that stores tasks into a database. Times are in
// seconds since the tracer was created.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	filter  TaskFilter
	now     func() time.Time
	origin  time.Time

	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer. A nil filter accepts all tasks.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	filter TaskFilter,
) *DBTracer {
	if filter == nil {
		filter = AllTasks
	}

	dataRecorder.CreateTable(TaskTableName, taskTableEntry{})

	t := &DBTracer{
		backend:      dataRecorder,
		filter:       filter,
		now:          time.Now,
		tracingTasks: make(map[string]Task),
	}
	t.origin = t.now()

	return t
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	task.StartTime = t.now()
	t.tracingTasks[task.ID] = task
}

// StepTask records the step name on the in-flight task.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	original, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	original.Steps = append(original.Steps, task.Steps...)
	t.tracingTasks[task.ID] = original
}

// EndTask writes the task into the database.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	original, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	original.EndTime = t.now()

	steps := make([]string, 0, len(original.Steps))
	for _, s := range original.Steps {
		steps = append(steps, s.What)
	}

	t.backend.InsertData(TaskTableName, taskTableEntry{
		ID:        original.ID,
		ParentID:  original.ParentID,
		Kind:      original.Kind,
		What:      original.What,
		Location:  original.Location,
		StartTime: original.StartTime.Sub(t.origin).Seconds(),
		EndTime:   original.EndTime.Sub(t.origin).Seconds(),
		Steps:     strings.Join(steps, ","),
	})
}

// Terminate drops the unfinished tasks and flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}
