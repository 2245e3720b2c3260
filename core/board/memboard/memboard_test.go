package memboard_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/luciehof/smpc-go/core/board/memboard"
	"github.com/luciehof/smpc-go/core/field"
	"github.com/luciehof/smpc-go/core/protocol"
	"github.com/luciehof/smpc-go/core/tpg"
)

func newBoard() *Board {
	gen := tpg.NewGenerator(field.Default())
	Expect(gen.AddParticipant("A")).To(Succeed())
	Expect(gen.AddParticipant("B")).To(Succeed())
	gen.Finalize()
	return New(gen)
}

var _ = Describe("in-memory bulletin board", func() {

	It("lets a late FetchBroadcast observe an earlier Broadcast", func() {
		b := newBoard()
		ctx := context.Background()

		Expect(b.Broadcast(ctx, "A", "client_secrets_id", []byte("x"))).To(Succeed())

		got, err := b.FetchBroadcast(ctx, "A", "client_secrets_id")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte("x")))
	})

	It("lets FetchBroadcast block until a concurrent Broadcast arrives", func() {
		b := newBoard()
		ctx := context.Background()

		done := make(chan []byte, 1)
		go func() {
			got, err := b.FetchBroadcast(ctx, "A", "mask_x:op1")
			Expect(err).ToNot(HaveOccurred())
			done <- got
		}()

		time.Sleep(10 * time.Millisecond)
		Expect(b.Broadcast(ctx, "A", "mask_x:op1", []byte("d"))).To(Succeed())

		Eventually(done).Should(Receive(Equal([]byte("d"))))
	})

	It("rejects a second Broadcast under the same (sender, label)", func() {
		b := newBoard()
		ctx := context.Background()

		Expect(b.Broadcast(ctx, "A", "computed_share", []byte("first"))).To(Succeed())
		err := b.Broadcast(ctx, "A", "computed_share", []byte("second"))
		Expect(err).To(HaveOccurred())
	})

	It("keeps private mailboxes isolated per (recipient, label)", func() {
		b := newBoard()
		ctx := context.Background()

		Expect(b.SendPrivate(ctx, "B", "secret-1", []byte("share-for-B"))).To(Succeed())

		got, err := b.FetchPrivate(ctx, "B", "secret-1")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte("share-for-B")))

		// A's mailbox under the same label was never written, so fetching it
		// must block rather than return B's message; we assert that with a
		// short deadline instead of blocking the suite forever.
		shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = b.FetchPrivate(shortCtx, "A", "secret-1")
		Expect(err).To(HaveOccurred())
	})

	It("returns a TimeoutError when a fetch's context expires first", func() {
		b := newBoard()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()

		_, err := b.FetchBroadcast(ctx, "A", "never-published")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("TimeoutError"))
	})

	It("serves Beaver triples through the wired Generator", func() {
		b := newBoard()
		ctx := context.Background()
		var opID [16]byte
		copy(opID[:], "op-x")

		a, bb, c, err := b.FetchTriple(ctx, "A", opID)
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Value.Eq(a.Value.Mul(bb.Value))).ToNot(BeTrue(), "A's share of c is not A's share of a times A's share of b")
	})
})

var _ = Describe("field wiring sanity", func() {
	It("uses the module default prime when constructed via field.Default", func() {
		Expect(field.Default().Prime().Cmp(field.DefaultPrime)).To(Equal(0))
	})
})
