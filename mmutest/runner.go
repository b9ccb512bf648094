package mmutest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/radixmmu/console"
	"github.com/sarchlab/radixmmu/datarecording"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
	"github.com/sarchlab/radixmmu/sim"
	"github.com/sarchlab/radixmmu/tracing"
)

// State is where a test is in its run.
type State int

// States of a test run. Report is terminal.
const (
	StateIdle State = iota
	StateSetup
	StateExecute
	StateAssert
	StateReport
)

var stateNames = [...]string{"idle", "setup", "execute", "assert", "report"}

func (s State) String() string {
	return stateNames[s]
}

// Hook positions of a runner. HookPosEnterState carries the State as the
// item and the test number as the detail. HookPosResult carries the Result.
var (
	HookPosEnterState = &sim.HookPos{Name: "MMU Test Enter State"}
	HookPosResult     = &sim.HookPos{Name: "MMU Test Result"}
)

// An Invalidator drops every cached translation.
type Invalidator interface {
	InvalidateAll()
}

// Runner takes tests through setup, execution, assertion and reporting.
// A failing test never stops the tests after it.
type Runner struct {
	sim.NamedBase
	sim.HookableBase

	env          Env
	console      *console.Console
	invalidator  Invalidator
	flushOnSetup bool
	recorder     datarecording.DataRecorder
	tests        []Test

	mu      sync.Mutex
	state   State
	results []Result
}

// Tests returns the tests the runner runs.
func (r *Runner) Tests() []Test {
	return r.tests
}

// State returns the state of the test being run.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Results returns the results so far.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Result(nil), r.results...)
}

// RunAll runs every test between the start and end banners. It stops
// early only if ctx ends.
func (r *Runner) RunAll(ctx context.Context) ([]Result, error) {
	r.console.Puts("Starting MMU tests\r\n")

	results := make([]Result, 0, len(r.tests))

	for _, t := range r.tests {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, r.Run(t))
	}

	r.console.Puts("MMU tests completed\r\n")

	if r.recorder != nil {
		r.recorder.Flush()
	}

	return results, nil
}

// Run runs a single test.
func (r *Runner) Run(t Test) Result {
	taskID := sim.GetIDGenerator().Generate()
	tracing.StartTask(taskID, "", r, "mmu_test", fmt.Sprintf("test %02d", t.Number), t)
	defer tracing.EndTask(taskID, r)

	result := Result{
		Number: t.Number,
		Name:   t.Name,
		Class:  ClassOf(t.Number),
	}

	r.enter(taskID, StateSetup, t.Number)
	result.Err = r.setup()

	if result.Err == nil {
		r.enter(taskID, StateExecute, t.Number)
		code, err := t.Body(&r.env)

		r.enter(taskID, StateAssert, t.Number)
		result.Code, result.Err = code, err
	}

	result.Diag = r.diagnostics(result.Class)

	r.enter(taskID, StateReport, t.Number)
	r.report(result)

	return result
}

func (r *Runner) setup() error {
	spr := r.env.SPR
	spr.Set(mmu.SPRDSISR, 0)
	spr.Set(mmu.SPRDAR, 0)
	spr.Set(mmu.SPRSRR0, 0)
	spr.Set(mmu.SPRSRR1, 0)

	if err := r.env.PageTable.UnmapAll(); err != nil {
		return err
	}

	if r.flushOnSetup {
		r.invalidator.InvalidateAll()
	}

	if spr.Get(mmu.SPRDAR) != 0 || spr.Get(mmu.SPRDSISR) != 0 {
		return fmt.Errorf("%w: DAR=%016x DSISR=%016x", ErrDirtyDiagnostics,
			spr.Get(mmu.SPRDAR), spr.Get(mmu.SPRDSISR))
	}

	return nil
}

func (r *Runner) diagnostics(c Class) [2]uint64 {
	if c == ClassData {
		return [2]uint64{
			r.env.SPR.Get(mmu.SPRDAR),
			r.env.SPR.Get(mmu.SPRDSISR),
		}
	}

	return [2]uint64{
		r.env.SPR.Get(mmu.SPRSRR0),
		r.env.SPR.Get(mmu.SPRSRR1),
	}
}

func (r *Runner) enter(taskID string, s State, number int) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()

	tracing.AddTaskStep(taskID, r, s.String())

	if r.NumHooks() > 0 {
		r.InvokeHook(sim.HookCtx{
			Domain: r,
			Pos:    HookPosEnterState,
			Item:   s,
			Detail: number,
		})
	}
}

func (r *Runner) report(result Result) {
	r.print(result)

	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.InsertData(ResultTableName, newResultEntry(result))
	}

	if r.NumHooks() > 0 {
		r.InvokeHook(sim.HookCtx{
			Domain: r,
			Pos:    HookPosResult,
			Item:   result,
		})
	}
}

// print writes the result line of one test. It has the same text as
// Result.String.
func (r *Runner) print(result Result) {
	c := r.console

	c.PrintTestNumber(result.Number)

	switch {
	case result.Err != nil:
		c.Puts("ERROR ")
		c.Puts(result.Err.Error())
	case result.Code == 0:
		c.Puts("PASS")
	default:
		c.Puts("FAIL ")
		c.PrintUint64(uint64(result.Code))

		names := diagNames[result.Class]
		c.Puts(" " + names[0] + "=")
		c.PrintHex(result.Diag[0])
		c.Puts(" " + names[1] + "=")
		c.PrintHex(result.Diag[1])
	}

	c.Puts("\r\n")
}
