package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type event struct {
	kind   string
	name   string
	value  float64
	labels Labels
}

type recordingBackend struct {
	mu      sync.Mutex
	events  []event
	flushes int
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"counter", name, delta, labels})
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"histogram", name, value, labels})
}

func (r *recordingBackend) Flush() error {
	r.flushes++
	return nil
}

// These tests swap the process-wide backend and therefore do not run in
// parallel.

func TestHelpers_EmitToBackend(t *testing.T) {
	rb := &recordingBackend{}
	SetBackend(rb)
	defer SetBackend(nil)

	Step("merge", Status(nil), 1500*time.Millisecond)
	Rows("merged", 3)
	Rows("skipped", 0)
	Confusion("tp", 2)
	Confusion("fn", -1)

	if len(rb.events) != 4 {
		t.Fatalf("events=%d, want 4: %+v", len(rb.events), rb.events)
	}
	if e := rb.events[0]; e.name != StepTotal || e.value != 1 || e.labels["stage"] != "merge" || e.labels["status"] != "ok" {
		t.Fatalf("step counter=%+v", e)
	}
	if e := rb.events[1]; e.kind != "histogram" || e.name != StepDuration || e.value != 1.5 {
		t.Fatalf("step histogram=%+v", e)
	}
	if e := rb.events[2]; e.name != RowsTotal || e.value != 3 || e.labels["kind"] != "merged" {
		t.Fatalf("rows=%+v", e)
	}
	if e := rb.events[3]; e.name != ConfusionTotal || e.labels["cell"] != "tp" {
		t.Fatalf("confusion=%+v", e)
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if rb.flushes != 1 {
		t.Fatalf("flushes=%d, want 1", rb.flushes)
	}
}

func TestNopDefault(t *testing.T) {
	SetBackend(nil)
	Step("merge", StatusError, time.Second)
	if err := Flush(); err != nil {
		t.Fatalf("Flush on nop backend: %v", err)
	}
}

func TestStatus(t *testing.T) {
	if Status(errors.New("x")) != StatusError || Status(nil) != StatusOK {
		t.Fatalf("Status mapping wrong")
	}
}
