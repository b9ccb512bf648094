package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rs/xid"
	"github.com/sarchlab/radixmmu/console"
	"github.com/sarchlab/radixmmu/datarecording"
	"github.com/sarchlab/radixmmu/mem"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/mmu"
	"github.com/sarchlab/radixmmu/mem/vm/pagetable"
	"github.com/sarchlab/radixmmu/mem/vm/tlb"
	"github.com/sarchlab/radixmmu/mmutest"
	"github.com/sarchlab/radixmmu/multicore"
	"github.com/sarchlab/radixmmu/sim"
	"github.com/sarchlab/radixmmu/tracing"
)

// system is one booted model with its test runner.
type system struct {
	config   Config
	console  *console.Console
	storage  *mem.Storage
	tlb      *tlb.Comp
	core     *mmu.Core
	manager  *pagetable.Manager
	runner   *mmutest.Runner
	recorder datarecording.DataRecorder
	exec     *datarecording.ExecRecorder
	dbTracer *tracing.DBTracer

	jsonTracer *tracing.JSONTracer
	jsonFile   *os.File
	summary    []kindSummary
	steps      *tracing.StepCountTracer
	errOut     io.Writer
}

// kindSummary times every task of one kind.
type kindSummary struct {
	kind   string
	tracer *tracing.TimeTracer
}

var summarizedKinds = []string{"translation", "pagetable", "mmu_test"}

// buildSystem wires a model according to c. Test output goes to out and
// diagnostics to errOut.
func buildSystem(c Config, out, errOut io.Writer) (*system, error) {
	s := &system{
		config:  c,
		console: console.New(out),
		errOut:  errOut,
	}

	if c.Record {
		s.recorder = datarecording.New(c.RecordPath)
		s.exec = datarecording.NewExecRecorder(s.recorder)
		s.exec.Start()
	}

	s.storage = mem.NewStorage(c.MemorySize)
	s.tlb = tlb.MakeBuilder().
		WithNumSets(c.TLBSets).
		WithNumWays(c.TLBWays).
		Build("TLB")
	s.core = mmu.MakeBuilder().
		WithMemory(s.storage).
		WithTLB(s.tlb).
		WithPIR(0).
		Build(sim.BuildNameWithIndex("", "Core", 0))
	s.manager = pagetable.MakeBuilder().
		WithStorage(s.storage).
		WithSPR(s.core.Registers()).
		WithInvalidator(s.tlb).
		WithPID(vm.PID(c.PID)).
		WithRegistryCapacity(c.RegistryCapacity).
		Build("PageTable")

	runnerBuilder := mmutest.MakeBuilder().
		WithProbe(s.core).
		WithPageTable(s.manager).
		WithMemory(s.storage).
		WithSPR(s.core.Registers()).
		WithConsole(s.console).
		WithInvalidator(s.tlb).
		WithFlushOnSetup(c.FlushOnSetup)
	if s.recorder != nil {
		runnerBuilder = runnerBuilder.WithRecorder(s.recorder)
	}

	s.runner = runnerBuilder.Build("MMUTest")

	if err := s.attachTracers(); err != nil {
		return nil, err
	}

	s.attachHookLoggers()

	if err := s.manager.Init(); err != nil {
		return nil, fmt.Errorf("initializing the page table: %w", err)
	}

	return s, nil
}

func (s *system) traced() []tracing.NamedHookable {
	return []tracing.NamedHookable{s.core, s.manager, s.runner}
}

func (s *system) attachTracers() error {
	var tracer tracing.Tracer

	switch s.config.Trace {
	case "log":
		tracer = tracing.NewLogTracer(log.New(s.errOut, "", 0), nil)
	case "db":
		s.dbTracer = tracing.NewDBTracer(s.recorder, nil)
		tracer = s.dbTracer
	case "json":
		path := s.config.TracePath
		if path == "" {
			path = xid.New().String() + ".json"
		}

		f, err := os.Create(path)
		if err != nil {
			return err
		}

		fmt.Fprintf(s.errOut, "Recording tasks in %s\n", path)

		s.jsonFile = f
		s.jsonTracer = tracing.NewJSONTracer(f, nil)
		tracer = s.jsonTracer
	case "summary":
		s.attachSummary()
		return nil
	default:
		return nil
	}

	for _, d := range s.traced() {
		tracing.CollectTrace(d, tracer)
	}

	return nil
}

func (s *system) attachSummary() {
	for _, kind := range summarizedKinds {
		ks := kindSummary{
			kind:   kind,
			tracer: tracing.NewTimeTracer(tracing.KindIs(kind)),
		}

		for _, d := range s.traced() {
			tracing.CollectTrace(d, ks.tracer)
		}

		s.summary = append(s.summary, ks)
	}

	s.steps = tracing.NewStepCountTracer(tracing.KindIs("translation"))
	tracing.CollectTrace(s.core, s.steps)
}

func (s *system) printSummary() {
	for _, ks := range s.summary {
		fmt.Fprintf(s.errOut, "%s: %d tasks, total %v, average %v\n",
			ks.kind, ks.tracer.TotalCount(),
			ks.tracer.TotalTime(), ks.tracer.AverageTime())
	}

	if s.steps == nil {
		return
	}

	for _, name := range s.steps.GetStepNames() {
		fmt.Fprintf(s.errOut, "translation step %s: %d times in %d tasks\n",
			name, s.steps.GetStepCount(name), s.steps.GetTaskCount(name))
	}
}

func (s *system) attachHookLoggers() {
	if !s.config.LogHooks {
		return
	}

	logger := sim.NewHookLogger(log.New(s.errOut, "", 0))

	s.tlb.AcceptHook(logger)
	s.core.AcceptHook(logger)
	s.manager.AcceptHook(logger)
	s.runner.AcceptHook(logger)
}

// greet prints one greeting per core. Secondary cores wait for the primary
// to release them.
func (s *system) greet(ctx context.Context) error {
	var lock multicore.SpinLock

	say := func(pir uint64) {
		lock.Lock()
		defer lock.Unlock()

		s.console.Puts("Hello, from CPU")
		s.console.PrintUint64(pir)
		s.console.Puts("\n")
	}

	say(s.core.Registers().Get(mmu.SPRPIR))

	if s.config.CPUs == 1 {
		return s.console.Err()
	}

	release := multicore.NewFlag()
	cluster := multicore.NewCluster(s.config.CPUs,
		func(ctx context.Context, pir uint64) {
			if _, err := release.Wait(ctx); err != nil {
				return
			}

			say(pir)
		})

	cluster.Enable(ctx, ^uint64(0))
	release.Set(1)
	cluster.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.console.Err()
}

// runSuite greets, runs every test and flushes what was recorded. It fails
// when a test did not pass.
func (s *system) runSuite(ctx context.Context) ([]mmutest.Result, error) {
	if err := s.greet(ctx); err != nil {
		return nil, err
	}

	results, err := s.runner.RunAll(ctx)

	if s.dbTracer != nil {
		s.dbTracer.Terminate()
	}

	s.printSummary()

	if err == nil {
		err = checkResults(results)
	}

	if s.exec != nil {
		outcome := "passed"
		if err != nil {
			outcome = err.Error()
		}

		s.exec.Record("Outcome", outcome)
		s.exec.End()
	}

	return results, err
}

func checkResults(results []mmutest.Result) error {
	failed := 0
	for _, r := range results {
		if !r.Passed() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tests did not pass",
			failed, len(results))
	}

	return nil
}

func (s *system) close() error {
	if s.jsonTracer != nil {
		s.jsonTracer.Close()

		if err := s.jsonFile.Close(); err != nil {
			return err
		}
	}

	if s.recorder == nil {
		return nil
	}

	return s.recorder.Close()
}
