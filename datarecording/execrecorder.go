package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfoTableName is the table that ExecRecorder writes into.
const ExecInfoTableName = "exec_info"

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how a program was run, such as its command line and
// when it started and ended.
type ExecRecorder struct {
	recorder DataRecorder
	now      func() time.Time
	entries  []ExecInfo
}

// NewExecRecorder creates an ExecRecorder that writes into recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(ExecInfoTableName, ExecInfo{})

	return &ExecRecorder{
		recorder: recorder,
		now:      time.Now,
	}
}

// Start notes the start time, the command, and the working directory.
func (e *ExecRecorder) Start() {
	e.Record("Start Time", e.now().Format(execTimeFormat))
	e.Record("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.Record("Working Directory", cwd)
}

// Record notes an extra property.
func (e *ExecRecorder) Record(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes every property along with the end time.
func (e *ExecRecorder) End() {
	e.Record("End Time", e.now().Format(execTimeFormat))

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
