package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ellipsim/internal/geometry"
	"github.com/san-kum/ellipsim/internal/integrators"
	"github.com/san-kum/ellipsim/internal/particle"
	"github.com/san-kum/ellipsim/internal/sim"
)

var _ = Describe("Simulator", func() {
	var cfg sim.Config

	BeforeEach(func() {
		cfg = sim.DefaultConfig()
		cfg.MaxTime = 1.0
		cfg.SaveInterval = 0.25
		cfg.Workers = 1
	})

	newSystem := func(ps []particle.Particle) *particle.System {
		s, err := particle.NewSystem(geometry.MustNew(2.0, 1.0), ps)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	Describe("configuration validation", func() {
		It("rejects inverted dt bounds", func() {
			cfg.DtMin = 1e-2
			cfg.DtMax = 1e-3
			_, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).To(HaveOccurred())
		})

		It("rejects a non-positive save interval", func() {
			cfg.SaveInterval = 0
			_, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).To(HaveOccurred())
		})

		It("rejects a missing projection tolerance", func() {
			cfg.ProjectionInterval = 100
			cfg.ProjectionTolerance = 0
			_, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("a collision-free run", func() {
		// Equal angular velocities: the pair distance never shrinks, so
		// the projector and resolver must stay idle and the stepper
		// alone accounts for conservation.
		It("conserves energy and momentum to 1e-10 with the projector off", func() {
			cfg.ProjectionInterval = 0
			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())

			sys := newSystem([]particle.Particle{
				{ID: 0, Mass: 1, Radius: 0.02, Phi: 0.0, PhiDot: 0.3},
				{ID: 1, Mass: 1, Radius: 0.02, Phi: 2.1, PhiDot: 0.3},
				{ID: 2, Mass: 1, Radius: 0.02, Phi: 4.2, PhiDot: 0.3},
			})
			e0 := sys.TotalEnergy()
			p0 := sys.TotalMomentum()

			result, err := s.Run(context.Background(), sys)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reason).To(Equal(sim.ReasonCompleted))
			Expect(result.TotalCollisions).To(BeZero())

			for i, e := range result.Energy {
				Expect(math.Abs(e-e0) / e0).To(BeNumerically("<=", 1e-10),
					"energy drift at snapshot %d", i)
			}
			for i, p := range result.Momentum {
				Expect(math.Abs(p-p0) / math.Abs(p0)).To(BeNumerically("<=", 1e-10),
					"momentum drift at snapshot %d", i)
			}
		})

		It("keeps snapshot times strictly increasing when the save interval undercuts the step", func() {
			cfg.MaxTime = 0.05
			cfg.SaveInterval = 1e-4 // well below DtMax: every step crosses several boundaries
			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())

			sys := newSystem([]particle.Particle{
				{ID: 0, Mass: 1, Radius: 0.02, Phi: 0.5, PhiDot: 0.4},
			})
			result, err := s.Run(context.Background(), sys)
			Expect(err).NotTo(HaveOccurred())

			Expect(len(result.Times)).To(BeNumerically(">", 1))
			for i := 1; i < len(result.Times); i++ {
				Expect(result.Times[i]).To(BeNumerically(">", result.Times[i-1]),
					"snapshot %d repeats the state at t=%g", i, result.Times[i])
			}
		})

		It("emits snapshots at every save boundary", func() {
			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())

			sys := newSystem([]particle.Particle{
				{ID: 0, Mass: 1, Radius: 0.02, Phi: 0.5, PhiDot: 0.4},
			})
			result, err := s.Run(context.Background(), sys)
			Expect(err).NotTo(HaveOccurred())

			Expect(len(result.Times)).To(BeNumerically(">=", 5))
			Expect(result.Times[0]).To(Equal(0.0))
			for i := 1; i < len(result.Times); i++ {
				Expect(result.Times[i]).To(BeNumerically(">", result.Times[i-1]))
			}
			Expect(result.Times[len(result.Times)-1]).To(BeNumerically("~", cfg.MaxTime, 1e-9))
		})
	})

	Describe("the two-particle contact scenario", func() {
		It("conserves both invariants through the first collision", func() {
			cfg.MaxTime = 0.01
			cfg.SaveInterval = 0.01
			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())

			sys := newSystem([]particle.Particle{
				{ID: 0, Mass: 1, Radius: 0.05, Phi: 0.0, PhiDot: 0.5},
				{ID: 1, Mass: 1, Radius: 0.05, Phi: 0.1, PhiDot: -0.5},
			})
			e0 := sys.TotalEnergy()
			p0 := sys.TotalMomentum()

			result, err := s.Run(context.Background(), sys)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reason).To(Equal(sim.ReasonCompleted),
				"a head-on approach at ordinary speed must reach contact, not exhaust the step size")
			Expect(result.TotalCollisions).To(BeNumerically(">=", 1))

			Expect(math.Abs(sys.TotalEnergy() - e0)).To(BeNumerically("<=", 1e-12))
			Expect(math.Abs(sys.TotalMomentum() - p0)).To(BeNumerically("<=", 1e-12))
		})
	})

	Describe("a collisional run with projection", func() {
		It("holds the invariants over many collisions", func() {
			cfg.MaxTime = 2.0
			cfg.ProjectionInterval = 100
			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())

			var ps []particle.Particle
			for i := 0; i < 8; i++ {
				v := 0.6
				if i%2 == 1 {
					v = -0.6
				}
				ps = append(ps, particle.Particle{
					ID: i, Mass: 1, Radius: 0.03,
					Phi:    float64(i) * math.Pi / 4,
					PhiDot: v,
				})
			}
			sys := newSystem(ps)
			e0 := sys.TotalEnergy()
			p0 := sys.TotalMomentum()

			result, err := s.Run(context.Background(), sys)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalCollisions).To(BeNumerically(">", 0))
			Expect(math.Abs(sys.TotalEnergy()-e0) / e0).To(BeNumerically("<=", 1e-9))
			Expect(math.Abs(sys.TotalMomentum()-p0) / math.Max(1, math.Abs(p0))).To(BeNumerically("<=", 1e-9))
		})
	})

	Describe("fatal conditions", func() {
		It("aborts with step-size exhaustion and keeps the partial trajectory", func() {
			cfg.DtMin = 1e-4
			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())

			sys := newSystem([]particle.Particle{
				{ID: 0, Mass: 1, Radius: 0.05, Phi: 0.0, PhiDot: 1e6},
				{ID: 1, Mass: 1, Radius: 0.05, Phi: 0.5, PhiDot: 0},
			})
			result, err := s.Run(context.Background(), sys)
			Expect(err).To(MatchError(sim.ErrStepTooSmall))
			Expect(result).NotTo(BeNil())
			Expect(result.Reason).To(Equal(sim.ReasonStepSizeExhausted))
			Expect(len(result.Times)).To(BeNumerically(">=", 1), "partial snapshots must be retained")

			var se *sim.StepSizeError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.TimeToContact).To(BeNumerically(">", 0))
		})

		It("reports cancellation with partial results", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())
			sys := newSystem([]particle.Particle{
				{ID: 0, Mass: 1, Radius: 0.02, Phi: 0.5, PhiDot: 0.4},
			})
			result, err := s.Run(ctx, sys)
			Expect(err).To(MatchError(context.Canceled))
			Expect(result.Reason).To(Equal(sim.ReasonCanceled))
		})
	})

	Describe("termination accounting", func() {
		It("stops at MaxSteps and says so", func() {
			cfg.MaxSteps = 10
			cfg.MaxTime = 1000
			s, err := sim.New(cfg, integrators.NewForestRuth())
			Expect(err).NotTo(HaveOccurred())
			sys := newSystem([]particle.Particle{
				{ID: 0, Mass: 1, Radius: 0.02, Phi: 0.5, PhiDot: 0.4},
			})
			result, err := s.Run(context.Background(), sys)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reason).To(Equal(sim.ReasonMaxSteps))
			Expect(result.StepsTaken).To(Equal(10))
		})

		It("matches the parallel and serial trajectories", func() {
			run := func(workers int) *sim.Result {
				cfg.Workers = workers
				cfg.MaxTime = 0.5
				s, err := sim.New(cfg, integrators.NewForestRuth())
				Expect(err).NotTo(HaveOccurred())
				var ps []particle.Particle
				for i := 0; i < 40; i++ {
					v := 0.5
					if i%2 == 1 {
						v = -0.5
					}
					ps = append(ps, particle.Particle{
						ID: i, Mass: 1, Radius: 0.01,
						Phi:    float64(i) * math.Pi / 20,
						PhiDot: v,
					})
				}
				sys := newSystem(ps)
				result, err := s.Run(context.Background(), sys)
				Expect(err).NotTo(HaveOccurred())
				return result
			}

			serial := run(1)
			parallel := run(4)
			Expect(parallel.Times).To(Equal(serial.Times))
			Expect(parallel.Phi).To(Equal(serial.Phi))
			Expect(parallel.PhiDot).To(Equal(serial.PhiDot))
		})
	})
})
