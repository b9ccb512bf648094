package tracing

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// JSONTracer writes finished tasks as one JSON array.
type JSONTracer struct {
	w      io.Writer
	filter TaskFilter
	now    func() time.Time

	lock          sync.Mutex
	firstTask     bool
	closed        bool
	inflightTasks map[string]Task
}

// NewJSONTracer creates a JSONTracer that writes to w. A nil filter accepts
// all tasks. The array is complete only after Close.
func NewJSONTracer(w io.Writer, filter TaskFilter) *JSONTracer {
	if filter == nil {
		filter = AllTasks
	}

	_, err := w.Write([]byte("[\n"))
	if err != nil {
		panic(err)
	}

	return &JSONTracer{
		w:             w,
		filter:        filter,
		now:           time.Now,
		firstTask:     true,
		inflightTasks: make(map[string]Task),
	}
}

// StartTask records the start of a task
func (t *JSONTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	task.StartTime = t.now()
	t.inflightTasks[task.ID] = task
}

// StepTask records the moment that a task reaches a milestone
func (t *JSONTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	for _, s := range task.Steps {
		s.Time = t.now()
		original.Steps = append(original.Steps, s)
	}

	t.inflightTasks[task.ID] = original
}

// EndTask writes the task.
func (t *JSONTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflightTasks[task.ID]
	if !ok || t.closed {
		return
	}

	original.EndTime = t.now()
	delete(t.inflightTasks, task.ID)

	if t.firstTask {
		t.firstTask = false
	} else {
		t.mustWrite([]byte(",\n"))
	}

	b, err := json.Marshal(original)
	if err != nil {
		panic(err)
	}

	t.mustWrite(b)
}

// Close ends the array. Tasks that end later are dropped.
func (t *JSONTracer) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return
	}

	t.closed = true
	t.mustWrite([]byte("\n]\n"))
}

func (t *JSONTracer) mustWrite(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
