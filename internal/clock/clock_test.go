package clock_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsim/internal/clock"
)

var _ = Describe("Clock", func() {
	var (
		c     *clock.Clock
		steps int
		step  func() error
	)

	BeforeEach(func() {
		var err error
		c, err = clock.New(0.25, clock.DefaultMaxCatchUp)
		Expect(err).NotTo(HaveOccurred())
		steps = 0
		step = func() error {
			steps++
			return nil
		}
	})

	It("rejects invalid parameters", func() {
		_, err := clock.New(0, 8)
		Expect(err).To(HaveOccurred())
		_, err = clock.New(0.1, 0)
		Expect(err).To(HaveOccurred())
	})

	It("runs one step per whole dt and keeps the remainder", func() {
		tick, err := c.Advance(625*time.Millisecond, step)
		Expect(err).NotTo(HaveOccurred())
		Expect(tick.Steps).To(Equal(2))
		Expect(tick.Dropped).To(BeZero())
		Expect(steps).To(Equal(2))
		Expect(c.Alpha()).To(BeNumerically("~", 0.5, 1e-12))

		tick, err = c.Advance(125*time.Millisecond, step)
		Expect(err).NotTo(HaveOccurred())
		Expect(tick.Steps).To(Equal(1))
		Expect(c.Alpha()).To(BeNumerically("~", 0, 1e-12))
	})

	It("does nothing below one step", func() {
		tick, err := c.Advance(100*time.Millisecond, step)
		Expect(err).NotTo(HaveOccurred())
		Expect(tick).To(Equal(clock.Tick{}))
		Expect(steps).To(BeZero())
	})

	It("ignores negative elapsed time", func() {
		_, err := c.Advance(-time.Second, step)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Alpha()).To(BeZero())
	})

	It("caps catch-up and drops whole steps", func() {
		tick, err := c.Advance(3125*time.Millisecond, step)
		Expect(err).NotTo(HaveOccurred())
		Expect(tick.Steps).To(Equal(clock.DefaultMaxCatchUp))
		Expect(tick.Dropped).To(Equal(4))
		Expect(tick.Lost).To(BeNumerically("~", 1.0, 1e-12))
		Expect(steps).To(Equal(clock.DefaultMaxCatchUp))
		Expect(c.Alpha()).To(BeNumerically("~", 0.5, 1e-12))

		tick, err = c.Advance(0, step)
		Expect(err).NotTo(HaveOccurred())
		Expect(tick.Steps).To(BeZero())
	})

	It("scales wall time", func() {
		c.TimeScale = 2
		tick, err := c.Advance(500*time.Millisecond, step)
		Expect(err).NotTo(HaveOccurred())
		Expect(tick.Steps).To(Equal(4))
	})

	Context("when a step fails", func() {
		boom := errors.New("boom")

		BeforeEach(func() {
			step = func() error {
				steps++
				if steps == 2 {
					return boom
				}
				return nil
			}
		})

		It("stops immediately and halts", func() {
			tick, err := c.Advance(time.Second, step)
			Expect(err).To(MatchError(boom))
			Expect(tick.Steps).To(Equal(1))
			Expect(steps).To(Equal(2))
			Expect(c.Alpha()).To(BeZero())

			_, err = c.Advance(time.Second, step)
			Expect(err).To(MatchError(clock.ErrHalted))
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(steps).To(Equal(2))
			Expect(c.Halted()).To(MatchError(clock.ErrHalted))
		})

		It("resumes after Reset", func() {
			_, _ = c.Advance(time.Second, step)
			c.Reset()
			Expect(c.Halted()).NotTo(HaveOccurred())

			tick, err := c.Advance(500*time.Millisecond, step)
			Expect(err).NotTo(HaveOccurred())
			Expect(tick.Steps).To(Equal(2))
		})
	})

	Describe("Poll", func() {
		var now time.Time

		BeforeEach(func() {
			now = time.Unix(1000, 0)
			c.Now = func() time.Time { return now }
		})

		It("measures elapsed time between polls", func() {
			tick, err := c.Poll(step)
			Expect(err).NotTo(HaveOccurred())
			Expect(tick.Steps).To(BeZero())

			now = now.Add(time.Second)
			tick, err = c.Poll(step)
			Expect(err).NotTo(HaveOccurred())
			Expect(tick.Steps).To(Equal(4))

			now = now.Add(250 * time.Millisecond)
			tick, err = c.Poll(step)
			Expect(err).NotTo(HaveOccurred())
			Expect(tick.Steps).To(Equal(1))
		})
	})
})
