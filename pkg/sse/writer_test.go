package sse_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pushpipe/pushpipe/pkg/sse"
)

var _ = Describe("MarshalText", func() {
	It("emits fields in wire order with a blank-line terminator", func() {
		ev := sse.New("hello", sse.WithType("greeting"), sse.WithID("7"), sse.WithRetry(250))
		ev.Comments = []string{"first", "second"}

		out, err := ev.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal(
			"event: greeting\n: first\n: second\ndata: hello\nid: 7\nretry: 250\n\n"))
	})

	It("omits absent fields entirely", func() {
		out, err := sse.New("x").MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("data: x\n\n"))
	})

	It("serializes an empty event as a bare terminator", func() {
		out, err := sse.New("").MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("\n"))
	})

	It("always outputs \\n regardless of payload splitting input", func() {
		out, err := sse.New("a\r\nb\rc\nd").MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("data: a\ndata: b\ndata: c\ndata: d\n\n"))
	})

	It("rejects a data line containing a newline, naming the value", func() {
		ev := &sse.Event{Lines: []string{"bad\nvalue"}}

		_, err := ev.MarshalText()
		var fieldErr *sse.NewlineInFieldError
		Expect(errors.As(err, &fieldErr)).To(BeTrue())
		Expect(fieldErr.Field).To(Equal("data"))
		Expect(fieldErr.Value).To(Equal("bad\nvalue"))
	})

	It("rejects a type containing a carriage return", func() {
		ev := sse.New("ok", sse.WithType("bad\rtype"))

		_, err := ev.MarshalText()
		var fieldErr *sse.NewlineInFieldError
		Expect(errors.As(err, &fieldErr)).To(BeTrue())
		Expect(fieldErr.Field).To(Equal("event"))
	})

	It("rejects a comment containing a newline", func() {
		ev := sse.New("ok")
		ev.Comments = []string{"multi\nline"}

		_, err := ev.MarshalText()
		var fieldErr *sse.NewlineInFieldError
		Expect(errors.As(err, &fieldErr)).To(BeTrue())
		Expect(fieldErr.Field).To(Equal("comment"))
	})

	DescribeTable("round-trips through Parse",
		func(ev *sse.Event) {
			out, err := ev.MarshalText()
			Expect(err).NotTo(HaveOccurred())

			back, rest, err := sse.Parse(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(rest).To(BeEmpty())
			Expect(back).To(Equal(ev))
		},
		Entry("data only", sse.New("payload")),
		Entry("typed multi-line data", sse.New("a\nb\nc", sse.WithType("tick"))),
		Entry("all fields", sse.New("x", sse.WithType("t"), sse.WithID("id-1"), sse.WithRetry(1000))),
		Entry("empty data line", &sse.Event{Lines: []string{""}}),
		Entry("data with colons and spaces", sse.New("key: value: more")),
		Entry("comments around data", &sse.Event{Lines: []string{"d"}, Comments: []string{"c1", "c2"}}),
		Entry("retry zero", sse.New("z", sse.WithRetry(0))),
	)
})

var _ = Describe("New", func() {
	It("splits the payload on any newline variant", func() {
		ev := sse.New("one\r\ntwo\rthree\nfour")
		Expect(ev.Lines).To(Equal([]string{"one", "two", "three", "four"}))
	})

	It("keeps empty interior segments", func() {
		ev := sse.New("a\n\nb")
		Expect(ev.Lines).To(Equal([]string{"a", "", "b"}))
	})

	It("builds an empty event from an empty payload", func() {
		ev := sse.New("")
		Expect(ev.Empty()).To(BeTrue())
		Expect(ev.Lines).To(BeEmpty())
	})

	It("joins lines back together with Data", func() {
		Expect(sse.New("a\r\nb\nc").Data()).To(Equal("a\nb\nc"))
	})
})
