package httpx_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pushpipe/pushpipe/pkg/httpx"
)

var _ = Describe("ParseResponseHead", func() {
	It("parses the status line and headers", func() {
		input := []byte("HTTP/1.1 200 OK\r\n" +
			"Content-Type: text/event-stream; charset=utf-8\r\n" +
			"Transfer-Encoding: chunked\r\n" +
			"\r\n" +
			"5\r\nhello\r\n")

		resp, rest, err := httpx.ParseResponseHead(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Proto).To(Equal("HTTP/1.1"))
		Expect(resp.StatusCode).To(Equal(200))
		Expect(resp.Status).To(Equal("OK"))
		Expect(resp.Chunked()).To(BeTrue())
		Expect(resp.ContentType()).To(Equal("text/event-stream"))
		Expect(resp.IsEventStream()).To(BeTrue())
		Expect(string(rest)).To(Equal("5\r\nhello\r\n"))
	})

	It("returns body bytes that arrived with the head", func() {
		input := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\ntail")
		_, rest, err := httpx.ParseResponseHead(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(rest)).To(Equal("tail"))
	})

	It("looks headers up case-insensitively", func() {
		input := []byte("HTTP/1.1 200 OK\r\nX-Custom: yes\r\n\r\n")
		resp, _, err := httpx.ParseResponseHead(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Get("x-custom")).To(Equal("yes"))
		Expect(resp.Get("X-CUSTOM")).To(Equal("yes"))
	})

	It("reports an incomplete head and hands the buffer back", func() {
		input := []byte("HTTP/1.1 200 OK\r\nContent-Type: text/ev")
		resp, rest, err := httpx.ParseResponseHead(input)
		Expect(err).To(MatchError(httpx.ErrIncompleteHead))
		Expect(resp).To(BeNil())
		Expect(rest).To(Equal(input))
	})

	It("rejects a garbage status line", func() {
		_, _, err := httpx.ParseResponseHead([]byte("not-http\r\n\r\n"))
		Expect(err).To(HaveOccurred())
	})

	It("detects a non-chunked body", func() {
		input := []byte("HTTP/1.1 200 OK\r\nContent-Length: 12\r\n\r\n")
		resp, _, err := httpx.ParseResponseHead(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Chunked()).To(BeFalse())
	})
})

var _ = Describe("Request", func() {
	It("marshals a deterministic request head", func() {
		req := httpx.NewRequest("stream.example.com", "/events")
		req.SetLastEventID("41")

		head := string(req.Marshal())
		Expect(head).To(HavePrefix("GET /events HTTP/1.1\r\nHost: stream.example.com\r\n"))
		Expect(head).To(ContainSubstring("Accept: text/event-stream\r\n"))
		Expect(head).To(ContainSubstring("Last-Event-ID: 41\r\n"))
		Expect(head).To(HaveSuffix("\r\n\r\n"))

		Expect(string(req.Marshal())).To(Equal(head))
	})
})
