package stack_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/luciehof/smpc-go/core/stack"
)

var _ = Describe("Stack", func() {

	It("starts empty", func() {
		s := New()
		Expect(s.IsEmpty()).To(BeTrue())
		Expect(s.Len()).To(Equal(0))
	})

	It("pops elements in reverse push order", func() {
		s := New()
		for i := 0; i < 100; i++ {
			s.Push(i)
		}
		Expect(s.IsEmpty()).To(BeFalse())
		Expect(s.Len()).To(Equal(100))

		for i := 99; i >= 0; i-- {
			elem, err := s.Pop()
			Expect(err).ToNot(HaveOccurred())
			Expect(elem).To(Equal(i))
		}
		Expect(s.IsEmpty()).To(BeTrue())
	})

	It("returns ErrStackUnderflow when popping an empty stack", func() {
		s := New()
		_, err := s.Pop()
		Expect(err).To(Equal(ErrStackUnderflow))
	})

	It("grows past any fixed capacity a caller might have guessed", func() {
		s := New()
		for i := 0; i < 10000; i++ {
			s.Push(i)
		}
		Expect(s.Len()).To(Equal(10000))
	})
})
