package httpx_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pushpipe/pushpipe/pkg/httpx"
)

var _ = Describe("DecodeChunks", func() {
	It("decodes a single complete chunk", func() {
		payloads, rest, done, err := httpx.DecodeChunks([]byte("5\r\nhello\r\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(HaveLen(1))
		Expect(string(payloads[0])).To(Equal("hello"))
		Expect(rest).To(BeEmpty())
		Expect(done).To(BeFalse())
	})

	It("decodes several chunks in order", func() {
		input := []byte("3\r\nabc\r\n4\r\ndefg\r\n")
		payloads, rest, _, err := httpx.DecodeChunks(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(HaveLen(2))
		Expect(string(payloads[0])).To(Equal("abc"))
		Expect(string(payloads[1])).To(Equal("defg"))
		Expect(rest).To(BeEmpty())
	})

	It("reports done on the terminating zero chunk", func() {
		payloads, rest, done, err := httpx.DecodeChunks([]byte("2\r\nok\r\n0\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(HaveLen(1))
		Expect(rest).To(BeEmpty())
		Expect(done).To(BeTrue())
	})

	It("consumes trailer lines after the zero chunk", func() {
		input := []byte("1\r\nx\r\n0\r\nExpires: never\r\n\r\ntail")
		payloads, rest, done, err := httpx.DecodeChunks(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(HaveLen(1))
		Expect(done).To(BeTrue())
		Expect(string(rest)).To(Equal("tail"))
	})

	It("retains a chunk whose payload has not fully arrived", func() {
		payloads, rest, done, err := httpx.DecodeChunks([]byte("a\r\nonly-fou"))
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(BeEmpty())
		Expect(string(rest)).To(Equal("a\r\nonly-fou"))
		Expect(done).To(BeFalse())
	})

	It("retains a split size line", func() {
		payloads, rest, _, err := httpx.DecodeChunks([]byte("1f"))
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(BeEmpty())
		Expect(string(rest)).To(Equal("1f"))
	})

	It("returns extracted payloads alongside an incomplete tail", func() {
		payloads, rest, _, err := httpx.DecodeChunks([]byte("2\r\nhi\r\n5\r\npar"))
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(HaveLen(1))
		Expect(string(payloads[0])).To(Equal("hi"))
		Expect(string(rest)).To(Equal("5\r\npar"))
	})

	It("resumes across a split exactly between reads", func() {
		full := []byte("6\r\nabcdef\r\n3\r\nghi\r\n0\r\n\r\n")

		for k := 0; k <= len(full); k++ {
			var got []byte

			p1, rest, _, err := httpx.DecodeChunks(full[:k])
			Expect(err).NotTo(HaveOccurred())
			for _, p := range p1 {
				got = append(got, p...)
			}

			buf := append(append([]byte{}, rest...), full[k:]...)
			p2, rest2, done, err := httpx.DecodeChunks(buf)
			Expect(err).NotTo(HaveOccurred())
			for _, p := range p2 {
				got = append(got, p...)
			}

			Expect(string(got)).To(Equal("abcdefghi"))
			Expect(rest2).To(BeEmpty())
			Expect(done).To(BeTrue())
		}
	})

	It("ignores chunk extensions", func() {
		payloads, _, _, err := httpx.DecodeChunks([]byte("4;ext=1\r\ndata\r\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payloads[0])).To(Equal("data"))
	})

	It("fails on a non-hex size line", func() {
		_, _, _, err := httpx.DecodeChunks([]byte("zz\r\ndata\r\n"))
		var sizeErr *httpx.ChunkSizeError
		Expect(errors.As(err, &sizeErr)).To(BeTrue())
		Expect(sizeErr.Line).To(Equal("zz"))
	})

	It("fails when chunk data is not CRLF terminated", func() {
		_, _, _, err := httpx.DecodeChunks([]byte("3\r\nabcXX"))
		var frameErr *httpx.ChunkFramingError
		Expect(errors.As(err, &frameErr)).To(BeTrue())
	})

	It("fails when a size line never terminates", func() {
		big := make([]byte, 512)
		for i := range big {
			big[i] = 'f'
		}

		_, _, _, err := httpx.DecodeChunks(big)
		var sizeErr *httpx.ChunkSizeError
		Expect(errors.As(err, &sizeErr)).To(BeTrue())
	})
})
