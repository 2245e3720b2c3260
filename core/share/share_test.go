package share_test

import (
	"math/big"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luciehof/smpc-go/core/field"
	. "github.com/luciehof/smpc-go/core/share"
)

var _ = Describe("additive secret sharing", func() {

	f := field.New(big.NewInt(8113765242226142771))

	Context("reconstruction correctness", func() {
		DescribeTable("reconstruct(share(v, n)) == v",
			func(v int64, n int) {
				value := f.NewElementFromInt64(v)
				shares := Split(value, n)
				Expect(shares).To(HaveLen(n))

				reconstructed, err := Join(shares)
				Expect(err).ToNot(HaveOccurred())
				Expect(reconstructed.Eq(value)).To(BeTrue())
			},
			Entry("n=1", int64(42), 1),
			Entry("n=2", int64(42), 2),
			Entry("n=5", int64(1000000), 5),
			Entry("zero value", int64(0), 3),
			Entry("large n", int64(7), 50),
		)
	})

	It("is order-independent", func() {
		value := f.NewElementFromInt64(12345)
		shares := Split(value, 6)

		forward, err := Join(shares)
		Expect(err).ToNot(HaveOccurred())

		reversed := make([]Share, len(shares))
		for i, s := range shares {
			reversed[len(shares)-1-i] = s
		}
		backward, err := Join(reversed)
		Expect(err).ToNot(HaveOccurred())

		Expect(forward.Eq(backward)).To(BeTrue())
	})

	It("panics when splitting into zero shares", func() {
		value := f.NewElementFromInt64(1)
		Expect(func() { Split(value, 0) }).To(Panic())
	})

	It("fails to join an empty share list", func() {
		_, err := Join(nil)
		Expect(err).To(HaveOccurred())
	})

	It("produces shares that look uniform: the first share does not equal the secret for n>1", func() {
		// Not a statistical test of uniformity (that needs many samples and a
		// distribution test); this only guards against the degenerate
		// regression of forgetting to randomize and leaking v in shares[0].
		value := f.NewElementFromInt64(999999)
		shares := Split(value, 4)
		Expect(shares[0].Value.Eq(value)).To(BeFalse())
	})
})
