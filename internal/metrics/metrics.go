// Package metrics is the process-wide metrics seam used by the QC stages.
//
// Stages call the helpers (Step, Rows, Confusion) and never depend on a
// concrete backend. The default backend discards everything; binaries install
// a Datadog or Pushgateway backend with SetBackend at startup.
package metrics

import (
	"sync"
	"time"
)

// Metric names understood by the backends.
const (
	StepTotal      = "qc_step_total"
	StepDuration   = "qc_step_duration_seconds"
	RowsTotal      = "qc_rows_total"
	ConfusionTotal = "qc_confusion_total"
)

// Step outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

const (
	labelStage  = "stage"
	labelStatus = "status"
	labelKind   = "kind"
	labelCell   = "cell"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric events. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer.
type Flusher interface {
	Flush() error
}

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nop{}
)

// SetBackend installs b. A nil b restores the discarding backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nop{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the installed backend when it buffers.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Step records one completed stage with its outcome and duration.
func Step(stage, status string, d time.Duration) {
	b := current()
	l := Labels{labelStage: stage, labelStatus: status}
	b.IncCounter(StepTotal, 1, l)
	b.ObserveHistogram(StepDuration, d.Seconds(), l)
}

// Rows counts table rows of a kind such as "merged" or "sampled_good".
func Rows(kind string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(n), Labels{labelKind: kind})
}

// Confusion counts scored samples in one confusion-matrix cell (tp, fp, tn, fn).
func Confusion(cell string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(ConfusionTotal, float64(n), Labels{labelCell: cell})
}

// Status maps an error to StatusOK or StatusError.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
