package tracing

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter is a tracer that stores the accesses into a CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File
	w    *bufio.Writer
	cw   *csv.Writer

	lock       sync.Mutex
	accesses   []Access
	bufferSize int
	closed     bool
}

// NewCSVTraceWriter creates a new CSVTraceWriter. The trace goes to
// path + ".csv".
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 4096,
	}
}

// Init creates the trace file. It panics if the file already exists.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "masim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file
	t.w = bufio.NewWriter(file)
	t.cw = csv.NewWriter(t.w)

	err = t.cw.Write([]string{
		"PhaseIndex", "Thread", "Pattern", "Region",
		"Offset", "Mode", "Read", "Written",
	})
	if err != nil {
		panic(err)
	}

	atexit.Register(func() {
		err := t.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Filename returns the name of the trace file.
func (t *CSVTraceWriter) Filename() string {
	return t.path + ".csv"
}

// Trace buffers an access and writes the buffer when it is full. Accesses
// traced after Close are dropped.
func (t *CSVTraceWriter) Trace(a Access) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return
	}

	t.accesses = append(t.accesses, a)
	if len(t.accesses) >= t.bufferSize {
		t.flush()
	}
}

// Flush writes the buffered accesses to the file.
func (t *CSVTraceWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flush()
}

func (t *CSVTraceWriter) flush() {
	if t.closed {
		return
	}

	for _, a := range t.accesses {
		// Errors stick to the csv.Writer and surface in Close.
		_ = t.cw.Write([]string{
			strconv.Itoa(a.PhaseIndex),
			strconv.Itoa(a.Thread),
			strconv.Itoa(a.Pattern),
			a.Region,
			strconv.FormatUint(a.Offset, 10),
			a.Mode.String(),
			strconv.Itoa(int(a.Read)),
			strconv.Itoa(int(a.Written)),
		})
	}
	t.cw.Flush()

	t.accesses = nil
}

// Close writes the buffered accesses and closes the file.
func (t *CSVTraceWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	t.flush()
	t.closed = true

	err := t.cw.Error()
	if err != nil {
		return err
	}

	err = t.w.Flush()
	if err != nil {
		return err
	}

	return t.file.Close()
}
