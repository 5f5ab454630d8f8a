package server

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("Hub", func() {
	var hub *Hub

	BeforeEach(func() {
		hub = NewHub(zap.NewNop())
	})

	It("delivers broadcasts to every subscriber", func() {
		first := hub.Subscribe()
		second := hub.Subscribe()

		hub.Broadcast([]byte("data: hello\n\n"))

		Expect(<-first.C).To(Equal([]byte("data: hello\n\n")))
		Expect(<-second.C).To(Equal([]byte("data: hello\n\n")))
	})

	It("preserves broadcast order per subscriber", func() {
		sub := hub.Subscribe()

		hub.Broadcast([]byte("one"))
		hub.Broadcast([]byte("two"))
		hub.Broadcast([]byte("three"))

		Expect(string(<-sub.C)).To(Equal("one"))
		Expect(string(<-sub.C)).To(Equal("two"))
		Expect(string(<-sub.C)).To(Equal("three"))
	})

	It("drops subscribers that stop draining", func() {
		slow := hub.Subscribe()
		Expect(hub.Len()).To(Equal(1))

		for i := 0; i <= subscriberBuffer; i++ {
			hub.Broadcast([]byte("frame"))
		}

		Expect(hub.Len()).To(Equal(0))

		// The channel is closed once the final buffered frames are drained.
		count := 0
		for range slow.C {
			count++
		}
		Expect(count).To(Equal(subscriberBuffer))
	})

	It("closes the channel on unsubscribe", func() {
		sub := hub.Subscribe()
		hub.Unsubscribe(sub)

		_, ok := <-sub.C
		Expect(ok).To(BeFalse())

		// A second unsubscribe is a no-op rather than a double close.
		hub.Unsubscribe(sub)
	})

	It("rejects subscriptions after close", func() {
		existing := hub.Subscribe()
		hub.Close()

		_, ok := <-existing.C
		Expect(ok).To(BeFalse())

		late := hub.Subscribe()
		_, ok = <-late.C
		Expect(ok).To(BeFalse())
		Expect(hub.Len()).To(Equal(0))
	})
})
