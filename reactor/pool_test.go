package reactor_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kcenon/network-system-sub000/reactor"
)

var _ = Describe("Pool", func() {
	It("bounds concurrent tasks to its capacity", func() {
		pool := reactor.NewPool(2)

		var active, maxActive atomic.Int32
		release := make(chan struct{})

		track := func(ctx context.Context) {
			n := active.Add(1)
			for {
				old := maxActive.Load()
				if n <= old || maxActive.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			active.Add(-1)
		}

		for i := 0; i < 5; i++ {
			Expect(pool.Submit(context.Background(), track)).To(BeNil())
		}

		Eventually(func() int32 { return maxActive.Load() }, time.Second).Should(Equal(int32(2)))
		close(release)

		Expect(pool.Shutdown(context.Background())).To(BeNil())
	})

	It("rejects submissions after shutdown", func() {
		pool := reactor.NewPool(1)
		Expect(pool.Shutdown(context.Background())).To(BeNil())

		err := pool.Submit(context.Background(), func(ctx context.Context) {})
		Expect(err).ToNot(BeNil())
	})

	It("TrySubmit reports false when no slot is free", func() {
		pool := reactor.NewPool(1)
		block := make(chan struct{})

		Expect(pool.Submit(context.Background(), func(ctx context.Context) { <-block })).To(BeNil())
		Eventually(func() int { return pool.Active() }, time.Second).Should(Equal(1))

		Expect(pool.TrySubmit(func(ctx context.Context) {})).To(BeFalse())

		close(block)
		_ = pool.Shutdown(context.Background())
	})
})
