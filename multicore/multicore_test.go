package multicore_test

import (
	"context"
	"sort"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/radixmmu/multicore"
)

var _ = Describe("Flag", func() {
	It("should publish the value to waiters", func() {
		f := multicore.NewFlag()
		data := 0

		go func() {
			data = 42
			f.Set(0x12345678)
		}()

		v, err := f.Wait(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(0x12345678)))
		Expect(data).To(Equal(42))
		Expect(f.IsSet()).To(BeTrue())
	})

	It("should keep the first value", func() {
		f := multicore.NewFlag()
		f.Set(1)
		f.Set(2)

		v, _ := f.Wait(context.Background())
		Expect(v).To(Equal(uint64(1)))
	})

	It("should stop waiting when the context ends", func() {
		f := multicore.NewFlag()
		ctx, cancel := context.WithTimeout(context.Background(),
			10*time.Millisecond)
		defer cancel()

		_, err := f.Wait(ctx)

		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(f.IsSet()).To(BeFalse())
	})
})

var _ = Describe("SpinLock", func() {
	It("should serialize critical sections", func() {
		var (
			l       multicore.SpinLock
			wg      sync.WaitGroup
			counter int
		)

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					l.Lock()
					counter++
					l.Unlock()
				}
			}()
		}
		wg.Wait()

		Expect(counter).To(Equal(8000))
	})

	It("should not be taken twice", func() {
		var l multicore.SpinLock

		Expect(l.TryLock()).To(BeTrue())
		Expect(l.TryLock()).To(BeFalse())
		l.Unlock()
		Expect(func() { l.Unlock() }).To(Panic())
	})
})

var _ = Describe("Cluster", func() {
	It("should start each enabled secondary once", func() {
		var (
			mu   sync.Mutex
			pirs []uint64
		)

		c := multicore.NewCluster(4, func(_ context.Context, pir uint64) {
			mu.Lock()
			pirs = append(pirs, pir)
			mu.Unlock()
		})

		c.Enable(context.Background(), 0x03)
		c.Enable(context.Background(), 0x0b)
		c.Enable(context.Background(), 0xf0)
		c.Wait()

		sort.Slice(pirs, func(i, j int) bool { return pirs[i] < pirs[j] })
		Expect(pirs).To(Equal([]uint64{1, 3}))
		Expect(c.Running()).To(Equal(uint64(0x0b)))
	})

	It("should reject an impossible core count", func() {
		Expect(func() { multicore.NewCluster(0, nil) }).To(Panic())
	})
})
