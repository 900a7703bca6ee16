package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecTableName is the table that holds ExecInfo entries.
const ExecTableName = "exec_info"

// ExecRecorder records when and how the program was executed.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates an ExecRecorder and the table it writes into.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		recorder: recorder,
	}

	e.recorder.CreateTable(ExecTableName, ExecInfo{})

	return e
}

// Start logs the start of the current execution.
func (e *ExecRecorder) Start() {
	e.Add("Start Time", now())
	e.Add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err == nil {
		e.Add("Working Directory", cwd)
	}
}

// Add records an arbitrary property of the execution.
func (e *ExecRecorder) Add(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes the collected properties along with the end time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTableName, entry)
	}

	e.recorder.InsertData(ExecTableName, ExecInfo{"End Time", now()})

	e.entries = nil

	e.recorder.Flush()
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
