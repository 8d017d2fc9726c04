package bulk

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	StatusImportedStr    = "imported"
	StatusQuarantinedStr = "quarantined"
	StatusRetryingStr    = "retrying"
)

// Status is the outcome of a batch (or of a single element when it never reached a batch).
type Status int

const (
	StatusImported Status = iota
	StatusQuarantined
	StatusRetrying
)

func (s Status) String() string {
	switch s {
	case StatusImported:
		return StatusImportedStr
	case StatusQuarantined:
		return StatusQuarantinedStr
	case StatusRetrying:
		return StatusRetryingStr
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome is reported to Options.OnOutcome. Count is the number of elements it covers.
type Outcome struct {
	Status  Status
	RangeID string
	Attempt int
	Count   int
	Reason  error
}

// Quarantined is an element excluded from retry, kept for offline remediation.
type Quarantined struct {
	Element graph.Element
	Reason  error
}

func (q Quarantined) MarshalJSON() ([]byte, error) {
	reason := ""
	if q.Reason != nil {
		reason = q.Reason.Error()
	}
	return json.Marshal(struct {
		Element graph.Element `json:"element"`
		Reason  string        `json:"reason"`
	}{
		Element: q.Element,
		Reason:  reason,
	})
}

type ImportResult struct {
	RunID                      string
	Kind                       graph.Kind
	State                      State
	NumberOfDocumentsImported  int64
	NumberOfDocumentsSkipped   int64
	TotalCapacityUnitsConsumed float64
	TotalTimeTaken             time.Duration
	BadInputDocuments          []Quarantined
	Cancelled                  bool
}

func (r *ImportResult) WritesPerSecond() float64 {
	if r == nil || r.TotalTimeTaken <= 0 {
		return 0
	}
	return float64(r.NumberOfDocumentsImported) / r.TotalTimeTaken.Seconds()
}

func (r *ImportResult) CapacityUnitsPerSecond() float64 {
	if r == nil || r.TotalTimeTaken <= 0 {
		return 0
	}
	return r.TotalCapacityUnitsConsumed / r.TotalTimeTaken.Seconds()
}

// accumulator is the only state shared by the writers of a run.
type accumulator struct {
	imported atomic.Int64
	skipped  atomic.Int64

	mu         sync.Mutex
	units      float64
	quarantine []Quarantined
}

func (a *accumulator) addImported(count int, units float64) {
	a.imported.Add(int64(count))
	a.mu.Lock()
	a.units += units
	a.mu.Unlock()
}

func (a *accumulator) addSkipped(count int) {
	a.skipped.Add(int64(count))
}

func (a *accumulator) addQuarantined(entries ...Quarantined) {
	if len(entries) == 0 {
		return
	}
	a.mu.Lock()
	a.quarantine = append(a.quarantine, entries...)
	a.mu.Unlock()
}

// mergeInto copies the totals into the run's result.
func (a *accumulator) mergeInto(result *ImportResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result.NumberOfDocumentsImported = a.imported.Load()
	result.NumberOfDocumentsSkipped = a.skipped.Load()
	result.TotalCapacityUnitsConsumed = a.units
	result.BadInputDocuments = make([]Quarantined, len(a.quarantine))
	copy(result.BadInputDocuments, a.quarantine)
}
