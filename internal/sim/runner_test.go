package sim_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/clock"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/logger"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/snapshot"
)

func binaryEngine() *dynamo.Engine {
	store := dynamo.NewStore()
	_, err := store.Add(r2.Vec{X: -1}, r2.Vec{Y: 0.5}, 1)
	Expect(err).NotTo(HaveOccurred())
	_, err = store.Add(r2.Vec{X: 1}, r2.Vec{Y: -0.5}, 1)
	Expect(err).NotTo(HaveOccurred())

	eng, err := dynamo.NewEngine(store, compute.NewDirect(), integrators.NewSymplecticEuler(), dynamo.DefaultParams())
	Expect(err).NotTo(HaveOccurred())
	return eng
}

func coincidentEngine() *dynamo.Engine {
	store := dynamo.NewStore()
	for range 10 {
		_, err := store.Add(r2.Vec{X: 2, Y: 2}, r2.Vec{}, 1)
		Expect(err).NotTo(HaveOccurred())
	}
	eng, err := dynamo.NewEngine(store, compute.NewDirect(), integrators.NewSymplecticEuler(), dynamo.Params{G: 1, Softening: 0, Dt: 0.001})
	Expect(err).NotTo(HaveOccurred())
	return eng
}

var _ = Describe("Runner", func() {
	var (
		eng    *dynamo.Engine
		clk    *clock.Clock
		pub    *snapshot.Publisher
		runner *sim.Runner
		opts   []sim.RunnerOption
		ctx    context.Context
		cancel context.CancelFunc
		result chan error
	)

	BeforeEach(func() {
		runner = nil
		eng = binaryEngine()
		ctx, cancel = context.WithCancel(context.Background())
		log, err := logger.NewWriter(GinkgoWriter, "debug")
		Expect(err).NotTo(HaveOccurred())
		opts = []sim.RunnerOption{sim.WithLogger(log), sim.WithTickHz(1000)}
	})

	AfterEach(func() {
		cancel()
		if runner != nil {
			Eventually(runner.Done()).Should(BeClosed())
		}
	})

	start := func() {
		var err error
		clk, err = clock.New(eng.Params().Dt, clock.DefaultMaxCatchUp)
		Expect(err).NotTo(HaveOccurred())
		pub = snapshot.NewPublisher(snapshot.Capture(eng, 0))
		runner, err = sim.NewRunner(eng, clk, pub, opts...)
		Expect(err).NotTo(HaveOccurred())

		res, r, runCtx := make(chan error, 1), runner, ctx
		result = res
		go func() {
			defer GinkgoRecover()
			res <- r.Run(runCtx)
		}()
	}

	It("rejects missing collaborators", func() {
		_, err := sim.NewRunner(nil, nil, nil)
		Expect(err).To(MatchError(dynamo.ErrInvalidParams))
	})

	It("publishes snapshots as the clock advances", func() {
		start()
		Eventually(func() int64 { return pub.Latest().Step }).Should(BeNumerically(">=", 10))

		s := pub.Latest()
		Expect(s.Status).To(Equal(dynamo.Idle))
		Expect(s.Bodies).To(HaveLen(2))
		Expect(s.Time).To(BeNumerically("~", float64(s.Step)*0.001, 1e-9))
	})

	It("returns nil once stopped and never steps again", func() {
		start()
		Eventually(func() int64 { return pub.Latest().Step }).Should(BeNumerically(">", 0))

		runner.Stop()
		runner.Stop()
		Eventually(result).Should(Receive(BeNil()))
		Expect(runner.Done()).To(BeClosed())
		Expect(runner.Err()).NotTo(HaveOccurred())

		step := pub.Latest().Step
		Consistently(func() int64 { return pub.Latest().Step }, 50*time.Millisecond).Should(Equal(step))
	})

	It("refuses to run twice", func() {
		start()
		Eventually(func() int64 { return pub.Latest().Step }).Should(BeNumerically(">", 0))
		runner.Stop()
		Eventually(result).Should(Receive(BeNil()))

		Expect(runner.Run(context.Background())).To(MatchError(sim.ErrAlreadyRun))
		Expect(runner.Done()).To(BeClosed())
		Expect(runner.Err()).NotTo(HaveOccurred())
	})

	It("polls every nanosecond for unbounded tick rates", func() {
		opts = append(opts, sim.WithTickHz(math.Inf(1)))
		start()
		Eventually(func() int64 { return pub.Latest().Step }).Should(BeNumerically(">", 0))

		runner.Stop()
		Eventually(result).Should(Receive(BeNil()))
	})

	It("returns the context error on cancellation", func() {
		start()
		cancel()
		Eventually(result).Should(Receive(MatchError(context.Canceled)))
		Expect(runner.Err()).To(MatchError(context.Canceled))
	})

	It("does not step while paused", func() {
		start()
		Eventually(func() int64 { return pub.Latest().Step }).Should(BeNumerically(">", 0))

		runner.SetPaused(true)
		Expect(runner.Paused()).To(BeTrue())
		time.Sleep(20 * time.Millisecond)
		step := pub.Latest().Step
		Consistently(func() int64 { return pub.Latest().Step }, 50*time.Millisecond).Should(Equal(step))

		runner.SetPaused(false)
		Eventually(func() int64 { return pub.Latest().Step }).Should(BeNumerically(">", step))
	})

	It("records Prometheus metrics", func() {
		reg := prometheus.NewRegistry()
		c := metrics.NewCollectors(reg)
		opts = append(opts, sim.WithCollectors(c))
		start()

		Eventually(func() float64 { return testutil.ToFloat64(c.StepsTotal) }).Should(BeNumerically(">=", 5))
		Eventually(func() float64 { return testutil.ToFloat64(c.Bodies) }).Should(Equal(2.0))
	})

	Context("when the engine faults", func() {
		BeforeEach(func() {
			eng = coincidentEngine()
		})

		It("freezes on the last valid snapshot and reports the instability", func() {
			start()

			var err error
			Eventually(result).Should(Receive(&err))
			Expect(errors.Is(err, dynamo.ErrNumericalInstability)).To(BeTrue())
			Expect(runner.Err()).To(MatchError(dynamo.ErrNumericalInstability))
			Expect(eng.State()).To(Equal(dynamo.Faulted))

			s := pub.Latest()
			Expect(s.Status).To(Equal(dynamo.Faulted))
			Expect(s.Step).To(BeZero())
			Expect(s.Bodies).To(HaveLen(10))
			for _, b := range s.Bodies {
				Expect(b.Pos).To(Equal(r2.Vec{X: 2, Y: 2}))
			}
		})
	})
})
