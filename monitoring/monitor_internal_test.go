package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/region"
	"github.com/sarchlab/masim/sim"
	"github.com/sarchlab/masim/simulation"
	"github.com/spf13/afero"
)

var _ = Describe("Monitor", func() {
	var (
		m        *Monitor
		s        *simulation.Simulation
		registry *region.Registry
		phases   []*phase.Phase
		router   http.Handler
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		router.ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		registry = region.NewRegistry().WithFs(afero.NewMemMapFs())
		buf, err := registry.Create(region.Spec{Name: "buf", Size: 1024})
		Expect(err).NotTo(HaveOccurred())

		phases = []*phase.Phase{
			{
				Name:     "warmup",
				Duration: 2 * time.Millisecond,
				Patterns: []*pattern.Pattern{{
					Region:      buf,
					Stride:      64,
					Probability: 1,
				}},
			},
			{Name: "idle", Duration: time.Millisecond},
		}

		s = simulation.MakeBuilder().Build()
		m = NewMonitor()
		m.RegisterSimulation(s)
		m.RegisterRegions(registry)
		m.RegisterPhases(phases)
		router = m.Router()
	})

	It("should list pending phases before the run", func() {
		rec := get("/api/phases")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should report the phases after the run", func() {
		_, err := s.Run(phases)
		Expect(err).NotTo(HaveOccurred())

		var status []simulation.PhaseStatus
		err = json.Unmarshal(get("/api/phases").Body.Bytes(), &status)

		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(HaveLen(2))
		Expect(status[0].Name).To(Equal("warmup"))
		Expect(status[0].State).To(Equal(simulation.PhaseDone))
		Expect(status[0].Accesses).To(BeNumerically(">", 0))
	})

	It("should report the elapsed time", func() {
		_, err := s.Run(phases)
		Expect(err).NotTo(HaveOccurred())

		var rsp struct {
			Now float64 `json:"now"`
		}
		err = json.Unmarshal(get("/api/now").Body.Bytes(), &rsp)

		Expect(err).NotTo(HaveOccurred())
		Expect(rsp.Now).To(BeNumerically(">=", 0.003))
	})

	It("should serialize a phase", func() {
		rec := get("/api/phase/warmup")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("warmup"))
	})

	It("should return 404 for an unknown phase", func() {
		rec := get("/api/phase/none")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should list the regions", func() {
		var rsp []regionRsp
		err := json.Unmarshal(get("/api/regions").Body.Bytes(), &rsp)

		Expect(err).NotTo(HaveOccurred())
		Expect(rsp).To(Equal([]regionRsp{
			{Name: "buf", Size: 1024, SubSize: 1024},
		}))
	})

	It("should remove the progress bars of finished phases", func() {
		_, err := s.Run(phases)
		Expect(err).NotTo(HaveOccurred())

		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should track the running phase with a progress bar", func() {
		bar := m.CreateProgressBar("phase", 1000)
		bar.Lock()
		bar.StartTime = time.Now().Add(-10 * time.Millisecond)
		bar.Unlock()

		var bars []struct {
			Finished uint64 `json:"finished"`
		}
		err := json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)

		Expect(err).NotTo(HaveOccurred())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Finished).To(BeNumerically(">=", 10))
		Expect(bars[0].Finished).To(BeNumerically("<=", 1000))
	})

	It("should start the phase bar before publishing it", func() {
		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)

			m.Func(sim.HookCtx{
				Domain: s,
				Pos:    simulation.HookPosPhaseStart,
				Item:   phases[0],
				Detail: simulation.PhaseStart{Index: 0, Threads: 1},
			})
		}()

		for polling := true; polling; {
			select {
			case <-done:
				polling = false
			default:
			}
			Expect(get("/api/progress").Code).To(Equal(http.StatusOK))
		}

		var bars []struct {
			StartTime time.Time `json:"start_time"`
		}
		err := json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)

		Expect(err).NotTo(HaveOccurred())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].StartTime.IsZero()).To(BeFalse())
	})

	It("should report the resources of the process", func() {
		var rsp resourceRsp
		err := json.Unmarshal(get("/api/resource").Body.Bytes(), &rsp)

		Expect(err).NotTo(HaveOccurred())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should export metrics", func() {
		_, err := s.Run(phases)
		Expect(err).NotTo(HaveOccurred())

		metrics := m.Metrics()
		Expect(testutil.ToFloat64(metrics.currentPhase)).To(Equal(-1.0))
		Expect(testutil.ToFloat64(metrics.phasesDone)).To(Equal(2.0))
		Expect(testutil.ToFloat64(
			metrics.accesses.WithLabelValues("0:warmup"))).
			To(BeNumerically(">", 0))
		Expect(testutil.ToFloat64(
			metrics.accesses.WithLabelValues("1:idle"))).
			To(Equal(0.0))

		rec := get("/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("masim_accesses_total"))
		Expect(rec.Body.String()).
			To(ContainSubstring("masim_running_phase_accesses 0"))
	})

	It("should serve the dashboard", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve over TCP", func() {
		port := m.StartServer()
		defer m.StopServer()

		rsp, err := http.Get("http://localhost:" +
			strconv.Itoa(port) + "/api/phases")

		Expect(err).NotTo(HaveOccurred())
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		rsp.Body.Close()
	})

	It("should refuse privileged ports", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})
})
