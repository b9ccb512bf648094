package sim

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	ctxs []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

type namedDomain struct {
	NamedBase
	HookableBase
}

var _ = Describe("HookableBase", func() {
	var (
		domain *namedDomain
		hook   *recordingHook
	)

	BeforeEach(func() {
		domain = &namedDomain{NamedBase: MakeNamedBase("Domain")}
		hook = &recordingHook{}
	})

	It("should invoke registered hooks in order", func() {
		pos := &HookPos{Name: "Pos"}
		second := &recordingHook{}

		domain.AcceptHook(hook)
		domain.AcceptHook(second)
		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: 1})

		Expect(domain.NumHooks()).To(Equal(2))
		Expect(hook.ctxs).To(HaveLen(1))
		Expect(second.ctxs).To(HaveLen(1))
		Expect(hook.ctxs[0].Pos).To(BeIdenticalTo(pos))
		Expect(hook.ctxs[0].Item).To(Equal(1))
	})

	It("should not panic when no hook is registered", func() {
		Expect(func() {
			domain.InvokeHook(HookCtx{Domain: domain})
		}).NotTo(Panic())
		Expect(domain.NumHooks()).To(Equal(0))
	})
})

var _ = Describe("NamedBase", func() {
	It("should refuse empty names", func() {
		Expect(func() { MakeNamedBase("") }).To(Panic())
	})
})

var _ = Describe("HookLogger", func() {
	var (
		buf    *bytes.Buffer
		domain *namedDomain
		posA   *HookPos
		posB   *HookPos
	)

	BeforeEach(func() {
		buf = bytes.NewBuffer(nil)
		domain = &namedDomain{NamedBase: MakeNamedBase("TLB")}
		posA = &HookPos{Name: "A"}
		posB = &HookPos{Name: "B"}
	})

	It("should print the position, domain and item", func() {
		h := NewHookLogger(log.New(buf, "", 0))
		h.Func(HookCtx{Domain: domain, Pos: posA, Item: "0x123000"})

		Expect(buf.String()).To(Equal("A, TLB, 0x123000\n"))
	})

	It("should filter by position", func() {
		h := NewHookLogger(log.New(buf, "", 0), posB)
		h.Func(HookCtx{Domain: domain, Pos: posA, Item: 1})
		h.Func(HookCtx{Domain: domain, Pos: posB, Item: 2, Detail: "hit"})

		Expect(buf.String()).To(Equal("B, TLB, 2, hit\n"))
	})
})
