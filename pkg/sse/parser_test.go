package sse_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pushpipe/pushpipe/pkg/sse"
)

var _ = Describe("Parse", func() {
	Context("with complete event blocks", func() {
		It("decodes a single data line", func() {
			ev, rest, err := sse.Parse([]byte("data: hello world\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).NotTo(BeNil())
			Expect(ev.Lines).To(Equal([]string{"hello world"}))
			Expect(ev.Type).To(BeEmpty())
			Expect(ev.ID).To(BeEmpty())
			Expect(ev.Retry).To(BeNil())
			Expect(rest).To(BeEmpty())
		})

		It("decodes all field kinds in one block", func() {
			input := "event: greeting\n: keep-alive\ndata: hi\nid: 42\nretry: 3000\n\n"
			ev, rest, err := sse.Parse([]byte(input))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("greeting"))
			Expect(ev.Comments).To(Equal([]string{"keep-alive"}))
			Expect(ev.Lines).To(Equal([]string{"hi"}))
			Expect(ev.ID).To(Equal("42"))
			Expect(ev.Retry).To(HaveValue(Equal(3000)))
			Expect(rest).To(BeEmpty())
		})

		It("accumulates multiple data lines in order", func() {
			ev, _, err := sse.Parse([]byte("data: a\ndata: b\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"a", "b"}))
		})

		It("stops after the first block and returns the remainder", func() {
			ev, rest, err := sse.Parse([]byte("data: first\n\ndata: second\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"first"}))
			Expect(string(rest)).To(Equal("data: second\n\n"))
		})

		It("keeps colons inside data values", func() {
			ev, _, err := sse.Parse([]byte("data: 12:34:56\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"12:34:56"}))
		})

		It("accepts the separator with no space", func() {
			ev, _, err := sse.Parse([]byte("data:no-space\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"no-space"}))
		})

		It("strips exactly one space after the colon", func() {
			ev, _, err := sse.Parse([]byte("data:  padded\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{" padded"}))
		})

		It("yields a comment-only event with no data lines", func() {
			ev, rest, err := sse.Parse([]byte(": hello\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(BeEmpty())
			Expect(ev.Empty()).To(BeTrue())
			Expect(ev.Comments).To(Equal([]string{"hello"}))
			Expect(rest).To(BeEmpty())
		})
	})

	Context("with mixed line terminators", func() {
		It("accepts \\r\\n terminators", func() {
			ev, rest, err := sse.Parse([]byte("data: X\r\n\r\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"X"}))
			Expect(rest).To(BeEmpty())
		})

		It("accepts a bare \\r as the final terminator", func() {
			ev, rest, err := sse.Parse([]byte("data: X\r\n\r"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"X"}))
			Expect(rest).To(BeEmpty())
		})

		It("accepts terminators mixed within one block", func() {
			ev, _, err := sse.Parse([]byte("data: a\rdata: b\r\ndata: c\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"a", "b", "c"}))
		})

		It("discards an orphaned leading newline from a split delimiter", func() {
			// "\r" ended the previous read; the "\n" half arrives first here.
			ev, rest, err := sse.Parse([]byte("\ndata: Y\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Lines).To(Equal([]string{"Y"}))
			Expect(rest).To(BeEmpty())
		})

		It("does not trim leading non-newline whitespace", func() {
			_, _, err := sse.Parse([]byte(" data: x\n\n"))
			var fieldErr *sse.InvalidFieldNameError
			Expect(err).To(BeAssignableToTypeOf(fieldErr))
		})
	})

	Context("with incomplete input", func() {
		It("returns the original buffer untouched", func() {
			ev, rest, err := sse.Parse([]byte("data: partial"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(string(rest)).To(Equal("data: partial"))
		})

		It("withholds a block whose terminator has not arrived", func() {
			ev, rest, err := sse.Parse([]byte("data: a\ndata: b\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(string(rest)).To(Equal("data: a\ndata: b\n"))
		})

		It("re-parses its own rest idempotently", func() {
			rest := []byte("event: partial\ndata: x")
			for range 5 {
				ev, next, err := sse.Parse(rest)
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
				Expect(next).To(Equal(rest))
				rest = next
			}
		})

		It("returns nil for empty input", func() {
			ev, rest, err := sse.Parse(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(rest).To(BeEmpty())
		})

		It("returns nil for newline-only input", func() {
			ev, _, err := sse.Parse([]byte("\n\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})
	})

	Context("with protocol violations", func() {
		It("fails on a line with no separator", func() {
			_, _, err := sse.Parse([]byte("BAD\n\n"))
			var lineErr *sse.MalformedLineError
			Expect(errors.As(err, &lineErr)).To(BeTrue())
			Expect(lineErr.Line).To(Equal("BAD"))
		})

		It("fails on an unknown field name", func() {
			_, _, err := sse.Parse([]byte("datum: x\n\n"))
			var fieldErr *sse.InvalidFieldNameError
			Expect(errors.As(err, &fieldErr)).To(BeTrue())
			Expect(fieldErr.Field).To(Equal("datum"))
		})

		It("treats field names as case-sensitive", func() {
			_, _, err := sse.Parse([]byte("DATA: x\n\n"))
			var fieldErr *sse.InvalidFieldNameError
			Expect(errors.As(err, &fieldErr)).To(BeTrue())
			Expect(fieldErr.Field).To(Equal("DATA"))
		})

		It("fails on a non-numeric retry value", func() {
			_, _, err := sse.Parse([]byte("retry: soon\n\n"))
			var retryErr *sse.InvalidRetryError
			Expect(errors.As(err, &retryErr)).To(BeTrue())
			Expect(retryErr.Value).To(Equal("soon"))
		})

		It("fails on a retry value with trailing characters", func() {
			_, _, err := sse.Parse([]byte("retry: 300ms\n\n"))
			var retryErr *sse.InvalidRetryError
			Expect(errors.As(err, &retryErr)).To(BeTrue())
			Expect(retryErr.Value).To(Equal("300ms"))
		})

		It("fails on a negative retry value", func() {
			_, _, err := sse.Parse([]byte("retry: -1\n\n"))
			var retryErr *sse.InvalidRetryError
			Expect(errors.As(err, &retryErr)).To(BeTrue())
		})

		It("yields no partial event on failure", func() {
			ev, rest, err := sse.Parse([]byte("data: good\nBAD\n\n"))
			Expect(err).To(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(rest).To(BeNil())
		})
	})

	Context("with repeated fields", func() {
		// Last write wins is implied by line-by-line field dispatch rather
		// than stated by the protocol; pinned here as observable behavior.
		It("keeps the last event type", func() {
			ev, _, err := sse.Parse([]byte("event: first\nevent: second\ndata: x\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("second"))
		})

		It("keeps the last id", func() {
			ev, _, err := sse.Parse([]byte("id: 1\ndata: x\nid: 2\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.ID).To(Equal("2"))
		})

		It("keeps the last retry", func() {
			ev, _, err := sse.Parse([]byte("retry: 100\nretry: 200\ndata: x\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Retry).To(HaveValue(Equal(200)))
		})
	})
})

var _ = Describe("ParseAll", func() {
	It("decodes every complete block in order", func() {
		events, rest, err := sse.ParseAll([]byte("data: a\n\ndata: b\n\ndata: c"))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].Lines).To(Equal([]string{"a"}))
		Expect(events[1].Lines).To(Equal([]string{"b"}))
		Expect(string(rest)).To(Equal("data: c"))
	})

	It("returns no events at all when a later block is malformed", func() {
		events, _, err := sse.ParseAll([]byte("data: A\n\nBAD\n"))
		var lineErr *sse.MalformedLineError
		Expect(errors.As(err, &lineErr)).To(BeTrue())
		Expect(lineErr.Line).To(Equal("BAD"))
		Expect(events).To(BeEmpty())
	})

	It("returns empty results for an empty buffer", func() {
		events, rest, err := sse.ParseAll(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
		Expect(rest).To(BeEmpty())
	})

	It("survives any split point in a multi-event stream", func() {
		stream := []byte("event: tick\ndata: 1\n\r\ndata: 2\ndata: 3\r\nid: x\r\n\rretry: 50\ndata: 4\n\n")

		whole, rest, err := sse.ParseAll(stream)
		Expect(err).NotTo(HaveOccurred())
		Expect(rest).To(BeEmpty())
		Expect(whole).To(HaveLen(3))

		for k := 0; k <= len(stream); k++ {
			var events []*sse.Event

			head, tail, err := sse.ParseAll(stream[:k])
			Expect(err).NotTo(HaveOccurred(), fmt.Sprintf("split at %d", k))
			events = append(events, head...)

			buf := append(append([]byte{}, tail...), stream[k:]...)
			more, rest, err := sse.ParseAll(buf)
			Expect(err).NotTo(HaveOccurred(), fmt.Sprintf("split at %d", k))
			events = append(events, more...)

			Expect(rest).To(BeEmpty(), fmt.Sprintf("split at %d", k))
			Expect(events).To(Equal(whole), fmt.Sprintf("split at %d", k))
		}
	})
})
