// Package console provides the character console that test programs print
// their results to.
package console

import (
	"fmt"
	"io"
	"strconv"
	"sync"
)

// Console writes characters to an output. It is safe for concurrent use;
// each call is written out whole. The first write error sticks and is
// returned by Err.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	err error
}

// New creates a console that writes to out.
func New(out io.Writer) *Console {
	return &Console{out: out}
}

// Err returns the first write error.
func (c *Console) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *Console) write(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return
	}

	_, c.err = c.out.Write(b)
}

// Puts writes a string as is. No newline is added.
func (c *Console) Puts(s string) {
	c.write([]byte(s))
}

// PutChar writes one character.
func (c *Console) PutChar(ch byte) {
	c.write([]byte{ch})
}

// PrintUint64 writes v in decimal.
func (c *Console) PrintUint64(v uint64) {
	c.write(strconv.AppendUint(nil, v, 10))
}

// PrintHex writes v as 16 lower-case hex digits.
func (c *Console) PrintHex(v uint64) {
	c.write(fmt.Appendf(nil, "%016x", v))
}

// PrintTestNumber writes the "test NN:" prefix of a result line. Numbers
// below 10 get a leading zero.
func (c *Console) PrintTestNumber(n int) {
	c.write(fmt.Appendf(nil, "test %02d:", n))
}
