package mmutest

import (
	"fmt"
)

// ResultTableName is the table test results are recorded into.
const ResultTableName = "mmu_test_results"

// ResultEntry is one recorded test result. Register values are kept as hex
// text since SQLite integers are signed.
type ResultEntry struct {
	Number int
	Name   string
	Status string
	Code   int
	Error  string
	Class  string
	Diag0  string
	Diag1  string
}

func newResultEntry(r Result) ResultEntry {
	e := ResultEntry{
		Number: r.Number,
		Name:   r.Name,
		Status: r.Status(),
		Code:   r.Code,
		Class:  r.Class.String(),
		Diag0:  fmt.Sprintf("%016x", r.Diag[0]),
		Diag1:  fmt.Sprintf("%016x", r.Diag[1]),
	}

	if r.Err != nil {
		e.Error = r.Err.Error()
	}

	return e
}
