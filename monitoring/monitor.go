// Package monitoring serves the live state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/sarchlab/masim/monitoring/web"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/region"
	"github.com/sarchlab/masim/sim"
	"github.com/sarchlab/masim/simulation"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a simulation into a server that reports the progress of the
// phases, the resources of the process, and Prometheus metrics.
type Monitor struct {
	simulation *simulation.Simulation
	registry   *region.Registry
	phases     []*phase.Phase
	portNumber int
	metrics    *Metrics

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	phaseBars        map[*phase.Phase]*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   NewMetrics(),
		phaseBars: make(map[*phase.Phase]*ProgressBar),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulation registers the simulation to monitor and starts
// receiving its phase events.
func (m *Monitor) RegisterSimulation(s *simulation.Simulation) {
	m.simulation = s
	m.metrics.observeLiveAccesses(s)
	s.AcceptHook(m)
}

// RegisterRegions registers the memory regions that the phases access.
func (m *Monitor) RegisterRegions(r *region.Registry) {
	m.registry = r
}

// RegisterPhases registers the phases that the simulation is about to run.
func (m *Monitor) RegisterPhases(phases []*phase.Phase) {
	m.phases = phases
}

// Metrics returns the Prometheus metrics that the monitor maintains.
func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Func updates the progress bars and the metrics at phase boundaries.
func (m *Monitor) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case simulation.HookPosPhaseStart:
		p := ctx.Item.(*phase.Phase)
		start := ctx.Detail.(simulation.PhaseStart)

		bar := m.CreateProgressBar(p.Name, uint64(p.Duration.Milliseconds()))

		m.progressBarsLock.Lock()
		m.phaseBars[p] = bar
		m.progressBarsLock.Unlock()

		m.metrics.phaseStarted(start.Index)
	case simulation.HookPosPhaseEnd:
		p := ctx.Item.(*phase.Phase)
		r := ctx.Detail.(simulation.PhaseReport)

		m.progressBarsLock.Lock()
		bar := m.phaseBars[p]
		delete(m.phaseBars, p)
		m.progressBarsLock.Unlock()

		if bar != nil {
			m.CompleteProgressBar(bar)
		}

		m.metrics.phaseFinished(r)
	}
}

// CreateProgressBar creates a new progress bar that starts counting now.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves all the monitor endpoints.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/phases", m.listPhases)
	r.HandleFunc("/api/phase/{name}", m.listPhaseDetails)
	r.HandleFunc("/api/regions", m.listRegions)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(
		m.metrics.Registry(), promhttp.HandlerOpts{}))
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(
		os.Stderr,
		"Monitoring simulation with http://localhost:%d\n", port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != http.ErrServerClosed {
			dieOnErr(err)
		}
	}()

	return port
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer() {
	if m.server == nil {
		return
	}

	err := m.server.Close()
	dieOnErr(err)

	m.server = nil
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	var now time.Duration
	if m.simulation != nil {
		now = m.simulation.Now()
	}

	fmt.Fprintf(w, "{\"now\":%.10f}", now.Seconds())
}

func (m *Monitor) listPhases(w http.ResponseWriter, _ *http.Request) {
	status := []simulation.PhaseStatus{}
	if m.simulation != nil {
		status = m.simulation.Status()
	}

	writeJSON(w, status)
}

func (m *Monitor) listPhaseDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	p := m.findPhaseOr404(w, name)
	if p == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(p)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findPhaseOr404(
	w http.ResponseWriter,
	name string,
) *phase.Phase {
	for _, p := range m.phases {
		if p.Name == name {
			return p
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Phase not found"))
	dieOnErr(err)

	return nil
}

type regionRsp struct {
	Name     string `json:"name"`
	Size     uint64 `json:"size"`
	SubSize  uint64 `json:"sub_size"`
	DataFile string `json:"data_file,omitempty"`
}

func (m *Monitor) listRegions(w http.ResponseWriter, _ *http.Request) {
	rsp := []regionRsp{}
	if m.registry != nil {
		for _, r := range m.registry.Regions() {
			rsp = append(rsp, regionRsp{
				Name:     r.Name(),
				Size:     r.Size(),
				SubSize:  r.SubSize(),
				DataFile: r.DataFile(),
			})
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	for _, b := range m.progressBars {
		b.updateElapsed()
	}

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
