package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/pushpipe/pushpipe/pkg/journal"
	"github.com/pushpipe/pushpipe/pkg/journal/inmemory"
)

var _ = Describe("Server", func() {
	var (
		store  *inmemory.Store
		server *Server
	)

	BeforeEach(func() {
		store = inmemory.NewStore()
		server = New(Config{ListenAddr: ":0"}, store, zap.NewNop())
	})

	publish := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, "/publish", bytes.NewReader([]byte(body)))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("POST /publish", func() {
		It("journals the event and broadcasts it to subscribers", func() {
			sub := server.hub.Subscribe()

			resp := publish(`{"type": "tick", "data": "hello"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result PublishResponse
			respBody, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(respBody, &result)).To(Succeed())
			Expect(result.ID).NotTo(BeEmpty())
			Expect(result.Seq).To(Equal(int64(1)))

			frame := string(<-sub.C)
			Expect(frame).To(ContainSubstring("event: tick\n"))
			Expect(frame).To(ContainSubstring("data: hello\n"))
			Expect(frame).To(ContainSubstring("id: " + result.ID + "\n"))
			Expect(frame).To(HaveSuffix("\n\n"))

			entries, err := store.Recent(context.Background(), 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ID).To(Equal(result.ID))
			Expect(entries[0].Data).To(Equal("hello"))
		})

		It("accepts events without a type", func() {
			sub := server.hub.Subscribe()

			resp := publish(`{"data": "plain"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			frame := string(<-sub.C)
			Expect(frame).NotTo(ContainSubstring("event:"))
			Expect(frame).To(ContainSubstring("data: plain\n"))
		})

		It("rejects malformed bodies", func() {
			resp := publish(`not json`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects types that cannot be framed", func() {
			resp := publish(`{"type": "bad\ntype", "data": "x"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("pumpSubscription", func() {
		It("writes replayed entries before live frames", func() {
			sub := server.hub.Subscribe()
			replay := []*journal.Entry{
				{ID: "old-1", Data: "missed one"},
				{ID: "old-2", Type: "tick", Data: "missed two"},
			}

			pr, pw := io.Pipe()
			go server.pumpSubscription(sub, replay, pw)

			server.hub.Broadcast([]byte("data: live\n\n"))
			server.hub.Unsubscribe(sub)

			out, err := io.ReadAll(pr)
			Expect(err).NotTo(HaveOccurred())

			text := string(out)
			Expect(text).To(HaveSuffix("data: live\n\n"))

			first := bytes.Index(out, []byte("id: old-1"))
			second := bytes.Index(out, []byte("id: old-2"))
			live := bytes.Index(out, []byte("data: live"))
			Expect(first).To(BeNumerically(">=", 0))
			Expect(second).To(BeNumerically(">", first))
			Expect(live).To(BeNumerically(">", second))
		})

		It("emits keep-alive comments on idle subscriptions", func() {
			server.config.KeepAlive = 10 * time.Millisecond

			sub := server.hub.Subscribe()
			pr, pw := io.Pipe()
			go server.pumpSubscription(sub, nil, pw)

			expected := []byte(": keep-alive\n\n")
			got := make([]byte, len(expected))
			_, err := io.ReadFull(pr, got)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(expected))

			server.hub.Unsubscribe(sub)
			_, err = io.Copy(io.Discard, pr)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
