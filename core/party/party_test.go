package party_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luciehof/smpc-go/core/board/memboard"
	"github.com/luciehof/smpc-go/core/expr"
	"github.com/luciehof/smpc-go/core/field"
	"github.com/luciehof/smpc-go/core/party"
	"github.com/luciehof/smpc-go/core/protocol"
	"github.com/luciehof/smpc-go/core/tpg"
)

// requireAllEqual asserts every participant computed the same cleartext
// result and that it matches want (spec.md §8 invariant 5, "Protocol
// end-to-end").
func requireAllEqual(results map[protocol.ParticipantID]field.Element, errs map[protocol.ParticipantID]error, want int64) {
	Expect(errs).To(BeEmpty())
	f := field.Default()
	expected := f.NewElementFromInt64(want)
	for id, got := range results {
		Expect(got.Eq(expected)).To(BeTrue(), "participant %s computed %s, want %s", id, got.String(), expected.String())
	}
}

var _ = Describe("end-to-end protocol runs", func() {

	ctx := context.Background()

	It("S1: pure addition across three parties", func() {
		participants := []protocol.ParticipantID{"A", "B", "C"}
		root := expr.NewAdd(expr.NewAdd(ref("x"), ref("y")), ref("z"))
		inputs := map[protocol.ParticipantID]map[string]int64{
			"A": {"x": 5},
			"B": {"y": 7},
			"C": {"z": 11},
		}
		results, errs, _ := runScenario(ctx, participants, root, inputs)
		requireAllEqual(results, errs, 23)
	})

	It("S2: subtraction with a scalar", func() {
		participants := []protocol.ParticipantID{"A", "B"}
		f := field.Default()
		root := expr.NewSub(expr.NewSub(ref("x"), ref("y")), scalar(f, 1))
		inputs := map[protocol.ParticipantID]map[string]int64{
			"A": {"x": 10},
			"B": {"y": 4},
		}
		results, errs, _ := runScenario(ctx, participants, root, inputs)
		requireAllEqual(results, errs, 5)
	})

	It("S3: scalar multiplication only, no Beaver triples", func() {
		participants := []protocol.ParticipantID{"A"}
		f := field.Default()
		root := expr.NewAdd(expr.NewMul(ref("x"), scalar(f, 100)), scalar(f, 7))
		inputs := map[protocol.ParticipantID]map[string]int64{
			"A": {"x": 3},
		}
		results, errs, cb := runScenario(ctx, participants, root, inputs)
		requireAllEqual(results, errs, 307)
		Expect(cb.tripleFetchCount()).To(Equal(0))
	})

	It("S4: a single Beaver multiplication", func() {
		participants := []protocol.ParticipantID{"A", "B"}
		root := expr.NewMul(ref("x"), ref("y"))
		inputs := map[protocol.ParticipantID]map[string]int64{
			"A": {"x": 6},
			"B": {"y": 7},
		}
		results, errs, cb := runScenario(ctx, participants, root, inputs)
		requireAllEqual(results, errs, 42)
		Expect(cb.tripleFetchCount()).To(Equal(1))

		// Exactly one mask_x and one mask_y broadcast per party: the
		// masks are named after the single Mul node's op id, which this
		// test can't predict in advance, so it sums counts across every
		// label this sender ever broadcast under a mask_x:/mask_y: prefix.
		for _, id := range participants {
			var total int
			for label, count := range cb.maskCounts {
				if len(label) > len(id)+1 && label[:len(id)+1] == string(id)+"|" {
					total += count
				}
			}
			Expect(total).To(Equal(2), "participant %s should broadcast exactly one mask_x and one mask_y", id)
		}
	})

	It("S5: the hospital mixed scenario", func() {
		participants := []protocol.ParticipantID{"H1", "H2", "H3"}
		f := field.Default()
		term := func(npID, atID string) expr.Node {
			return expr.NewMul(ref(npID), ref(atID))
		}
		sum := expr.NewAdd(expr.NewAdd(term("np1", "at1"), term("np2", "at2")), term("np3", "at3"))
		root := expr.NewSub(expr.NewMul(sum, scalar(f, 1500)), scalar(f, 200))
		inputs := map[protocol.ParticipantID]map[string]int64{
			"H1": {"np1": 1500, "at1": 3},
			"H2": {"np2": 2000, "at2": 4},
			"H3": {"np3": 800, "at3": 3},
		}
		results, errs, _ := runScenario(ctx, participants, root, inputs)
		requireAllEqual(results, errs, 22349800)
	})

	It("S6: nested multiplications consume two distinct Beaver op ids", func() {
		participants := []protocol.ParticipantID{"A", "B", "C"}
		root := expr.NewMul(expr.NewMul(ref("x"), ref("y")), ref("z"))
		inputs := map[protocol.ParticipantID]map[string]int64{
			"A": {"x": 2},
			"B": {"y": 3},
			"C": {"z": 5},
		}
		results, errs, cb := runScenario(ctx, participants, root, inputs)
		requireAllEqual(results, errs, 30)
		Expect(cb.tripleFetchCount()).To(Equal(2))
	})

	It("S7: a 200-term left-associated addition chain", func() {
		participants := []protocol.ParticipantID{"A"}
		var root expr.Node = ref("t0")
		inputs := map[string]int64{"t0": 1}
		var want int64 = 1
		for i := 1; i < 200; i++ {
			id := fmt.Sprintf("t%03d", i)
			inputs[id] = int64(i)
			want += int64(i)
			root = expr.NewAdd(root, ref(id))
		}
		results, errs, _ := runScenario(ctx, participants, root, map[protocol.ParticipantID]map[string]int64{"A": inputs})
		requireAllEqual(results, errs, want)
	})
})

var _ = Describe("cancellation", func() {
	It("propagates a context deadline as a TimeoutError instead of hanging", func() {
		// "B" is a declared participant but never runs, so A's Phase A
		// fetch of B's client_secrets_id broadcast never resolves; A's
		// run must time out rather than block the test suite forever.
		participants := []protocol.ParticipantID{"A", "B"}
		root := expr.NewAdd(ref("x"), ref("y"))

		f := field.Default()
		spec, err := protocol.New(participants, root)
		Expect(err).ToNot(HaveOccurred())

		gen := tpg.NewGenerator(f)
		for _, id := range participants {
			Expect(gen.AddParticipant(id)).To(Succeed())
		}
		gen.Finalize()
		b := memboard.New(gen)

		pt, err := party.New("A", spec, map[string]field.Element{"x": f.NewElementFromInt64(1)}, b, f)
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		_, _, err = pt.Run(ctx)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("TimeoutError"))
	})
})
