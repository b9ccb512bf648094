package mmutest

import (
	"errors"
	"fmt"
)

// Class selects which diagnostic pair a failed test reports.
type Class int

// Test classes.
const (
	ClassData Class = iota
	ClassExecute
)

var diagNames = map[Class][2]string{
	ClassData:    {"DAR", "DSISR"},
	ClassExecute: {"SRR0", "SRR1"},
}

func (c Class) String() string {
	if c == ClassExecute {
		return "execute"
	}

	return "data"
}

// ClassOf returns the class of a test number. Numbers 11 to 18 and from 20
// on are reserved for execute tests.
func ClassOf(number int) Class {
	if number <= 10 || number == 19 {
		return ClassData
	}

	return ClassExecute
}

// A Body runs one test. It returns the 1-based ordinal of the first check
// that failed, or 0. An error means the test could not be set up, which is
// not the same as a failed check.
type Body func(env *Env) (int, error)

// A Test is a numbered test body.
type Test struct {
	Number int
	Name   string
	Body   Body
}

// ErrDirtyDiagnostics is reported when the diagnostic registers are not
// clear before a test body runs.
var ErrDirtyDiagnostics = errors.New("diagnostic registers not cleared")

// Result is the outcome of one test.
type Result struct {
	Number int
	Name   string
	Code   int
	Err    error
	Class  Class

	// Diag holds DAR and DSISR for data tests, or SRR0 and SRR1 for
	// execute tests, as read after the body returned.
	Diag [2]uint64
}

// Passed tells if every check held.
func (r Result) Passed() bool {
	return r.Err == nil && r.Code == 0
}

// Status is PASS, FAIL or ERROR.
func (r Result) Status() string {
	switch {
	case r.Err != nil:
		return "ERROR"
	case r.Code != 0:
		return "FAIL"
	default:
		return "PASS"
	}
}

func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("test %02d:ERROR %v", r.Number, r.Err)
	case r.Code == 0:
		return fmt.Sprintf("test %02d:PASS", r.Number)
	case r.Class == ClassData:
		return fmt.Sprintf("test %02d:FAIL %d DAR=%016x DSISR=%016x",
			r.Number, r.Code, r.Diag[0], r.Diag[1])
	default:
		return fmt.Sprintf("test %02d:FAIL %d SRR0=%016x SRR1=%016x",
			r.Number, r.Code, r.Diag[0], r.Diag[1])
	}
}
