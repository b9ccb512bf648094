package sim

import (
	"log"
)

// A LogHook is a hook that is resonsible for recording information from the
// translation model.
type LogHook interface {
	Hook
}

// LogHookBase proovides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// HookLogger prints every hook invocation it receives, one line per call.
type HookLogger struct {
	LogHookBase
	positions map[*HookPos]bool
}

// NewHookLogger returns a HookLogger that writes into the logger. If positions
// are given, only those positions are printed.
func NewHookLogger(logger *log.Logger, positions ...*HookPos) *HookLogger {
	h := new(HookLogger)
	h.Logger = logger

	if len(positions) > 0 {
		h.positions = make(map[*HookPos]bool)
		for _, p := range positions {
			h.positions[p] = true
		}
	}

	return h
}

// Func writes the hook information into the logger
func (h *HookLogger) Func(ctx HookCtx) {
	if h.positions != nil && !h.positions[ctx.Pos] {
		return
	}

	where := "-"
	if named, ok := ctx.Domain.(Named); ok {
		where = named.Name()
	}

	if ctx.Detail != nil {
		h.Logger.Printf("%s, %s, %v, %v", ctx.Pos.Name, where, ctx.Item, ctx.Detail)
		return
	}

	h.Logger.Printf("%s, %s, %v", ctx.Pos.Name, where, ctx.Item)
}
