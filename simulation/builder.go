package simulation

import (
	"github.com/go-kit/log"
	"github.com/rs/xid"
	"github.com/sarchlab/masim/datarecording"
	"github.com/sarchlab/masim/pattern"
)

// DefaultMaxThreads is the default upper bound of worker threads per phase.
const DefaultMaxThreads = 128

// Builder can be used to build a simulation.
type Builder struct {
	numThreads     int
	maxThreads     int
	seed           uint64
	payload        pattern.Payload
	logger         log.Logger
	dataRecorder   datarecording.DataRecorder
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		numThreads: 1,
		maxThreads: DefaultMaxThreads,
		payload:    pattern.DefaultPayload(),
		logger:     log.NewNopLogger(),
	}
}

// WithNumThreads sets the number of worker threads of the phases that do not
// set their own.
func (b Builder) WithNumThreads(n int) Builder {
	b.numThreads = n
	return b
}

// WithMaxThreads sets the upper bound of worker threads in any phase.
func (b Builder) WithMaxThreads(n int) Builder {
	b.maxThreads = n
	return b
}

// WithSeed sets the seed of the workers' random number generators. Runs with
// the same seed and thread count draw the same random sequences.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithPayload sets what write accesses store.
func (b Builder) WithPayload(payload pattern.Payload) Builder {
	b.payload = payload
	return b
}

// WithLogger sets the logger of the simulation.
func (b Builder) WithLogger(logger log.Logger) Builder {
	b.logger = logger
	return b
}

// WithDataRecorder sets the recorder that stores the phase results.
func (b Builder) WithDataRecorder(recorder datarecording.DataRecorder) Builder {
	b.dataRecorder = recorder
	return b
}

// WithOutputFileName makes the simulation record its results into a new
// SQLite database with the given name.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.maxThreads < 1 {
		panic("max threads must be positive")
	}

	if b.dataRecorder != nil && b.outputFileName != "" {
		panic("cannot set both a data recorder and an output file name")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:           xid.New().String(),
		numThreads:   b.numThreads,
		maxThreads:   b.maxThreads,
		seed:         b.seed,
		payload:      b.payload,
		logger:       b.logger,
		dataRecorder: b.dataRecorder,
	}

	if b.outputFileName != "" {
		s.dataRecorder = datarecording.NewDataRecorder(b.outputFileName)
		s.ownsRecorder = true
	}

	return s
}
