package tracing

import (
	"context"
	"sort"
	"strings"

	"github.com/sarchlab/radixmmu/datarecording"
)

// TaskQuery selects recorded tasks. Empty fields are ignored.
type TaskQuery struct {
	// Use ID to select a single task by its ID.
	ID string

	// Use ParentID to select all the tasks that are children of a task.
	ParentID string

	// Use Kind to select all the tasks that are of a kind.
	Kind string

	// Use Location to select all the tasks of one component.
	Location string
}

// A RecordedTask is a task read back from a database. Times are seconds
// since the tracer started.
type RecordedTask struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
	Steps     []string
}

// TraceReader reads the tasks a DBTracer recorded.
type TraceReader struct {
	reader datarecording.DataReader
}

// NewTraceReader creates a TraceReader on top of a data reader.
func NewTraceReader(reader datarecording.DataReader) *TraceReader {
	reader.MapTable(TaskTableName, taskTableEntry{})

	return &TraceReader{reader: reader}
}

// ListLocations returns the components that have recorded tasks, sorted.
func (r *TraceReader) ListLocations(ctx context.Context) ([]string, error) {
	tasks, err := r.ListTasks(ctx, TaskQuery{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	locations := []string{}

	for _, t := range tasks {
		if !seen[t.Location] {
			seen[t.Location] = true
			locations = append(locations, t.Location)
		}
	}

	sort.Strings(locations)

	return locations, nil
}

// ListTasks returns the tasks that match the query in start time order.
func (r *TraceReader) ListTasks(
	ctx context.Context,
	query TaskQuery,
) ([]RecordedTask, error) {
	params := datarecording.QueryParams{OrderBy: "StartTime, ID"}

	var conds []string

	addCond := func(column, value string) {
		if value == "" {
			return
		}

		conds = append(conds, column+" = ?")
		params.Args = append(params.Args, value)
	}

	addCond("ID", query.ID)
	addCond("ParentID", query.ParentID)
	addCond("Kind", query.Kind)
	addCond("Location", query.Location)

	params.Where = strings.Join(conds, " AND ")

	rows, _, err := r.reader.Query(ctx, TaskTableName, params)
	if err != nil {
		return nil, err
	}

	tasks := make([]RecordedTask, 0, len(rows))
	for _, row := range rows {
		e := row.(*taskTableEntry)

		t := RecordedTask{
			ID:        e.ID,
			ParentID:  e.ParentID,
			Kind:      e.Kind,
			What:      e.What,
			Location:  e.Location,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
		}

		if e.Steps != "" {
			t.Steps = strings.Split(e.Steps, ",")
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}
