// Package progress folds download events into per-item records and batch
// level counters. The Aggregator is not safe for concurrent use; it is owned
// by a single goroutine.
package progress

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
)

var lastItemID atomic.Uint64

func nextItemID() domain.ItemID {
	return domain.ItemID(lastItemID.Add(1))
}

// Snapshot is a read-only copy of the aggregator state.
type Snapshot struct {
	BatchID   string          `json:"batch_id,omitempty"`
	Status    string          `json:"status"`
	ETA       string          `json:"eta,omitempty"`
	Records   []domain.Record `json:"records"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Active    bool            `json:"active"`
}

// Finished reports whether every submitted item reached a terminal state.
func (s Snapshot) Finished() bool {
	return s.Total > 0 && s.Completed == s.Total
}

// Aggregator folds task events into per-item records and batch totals.
type Aggregator struct {
	startedAt time.Time
	now       func() time.Time
	// OnLog is called for every appended session log block.
	OnLog     func(domain.LogEntry)
	index     map[domain.ItemID]*domain.Record
	batchID   string
	status    string
	records   []*domain.Record
	logs      []domain.LogEntry
	total     int
	completed int
	active    bool
}

// New returns an idle aggregator. now defaults to time.Now.
func New(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		now:   now,
		index: make(map[domain.ItemID]*domain.Record),
	}
}

// Submit replaces the current session with items and returns their IDs in
// submission order. Records of any previous batch are dropped, so their late
// events are ignored.
func (a *Aggregator) Submit(batchID string, items []domain.Item) []domain.ItemID {
	if len(items) == 0 {
		return nil
	}

	a.records = make([]*domain.Record, 0, len(items))
	a.index = make(map[domain.ItemID]*domain.Record, len(items))
	ids := make([]domain.ItemID, 0, len(items))

	for _, item := range items {
		rec := &domain.Record{
			ID:      nextItemID(),
			BatchID: batchID,
			Item:    item,
			Status:  domain.Status{State: domain.StateQueued},
			Phase:   domain.PhaseQueued,
		}
		a.records = append(a.records, rec)
		a.index[rec.ID] = rec
		ids = append(ids, rec.ID)
	}

	a.batchID = batchID
	a.total = len(items)
	a.completed = 0
	a.active = true
	a.startedAt = a.now()
	a.status = fmt.Sprintf("dl %d tracks", a.total)
	return ids
}

// OnProgress records a progress report. Reports for unknown or terminal
// records are ignored, and the percentage never moves backwards.
func (a *Aggregator) OnProgress(id domain.ItemID, phase domain.Phase, pct float64) bool {
	rec, ok := a.index[id]
	if !ok || rec.Status.State.IsTerminal() {
		return false
	}

	pct = clamp(pct)
	if pct < rec.Progress {
		pct = rec.Progress
	}
	if phase == "" {
		phase = rec.Phase
	}
	if rec.Status.State == domain.StateActive && pct == rec.Progress && phase == rec.Phase {
		return false
	}

	rec.Progress = pct
	rec.Phase = phase
	rec.Status = domain.Status{State: domain.StateActive, Percent: pct}
	return true
}

// OnTerminal records the final result of an item. It returns true exactly
// once per batch, when the last item completes.
func (a *Aggregator) OnTerminal(id domain.ItemID, res domain.Result) bool {
	rec, ok := a.index[id]
	if !ok || rec.Status.State.IsTerminal() {
		return false
	}

	entry := domain.LogEntry{
		ItemID:    rec.ID,
		BatchID:   rec.BatchID,
		Label:     rec.Item.Label(),
		CreatedAt: a.now(),
	}

	if res.Failed() {
		rec.Status = domain.Status{State: domain.StateFailed, Message: res.Message()}
		rec.Phase = domain.PhaseFailed
		entry.Failed = true
		entry.Body = res.Message()
	} else {
		rec.Status = domain.Status{State: domain.StateDone}
		rec.Phase = domain.PhaseDone
		rec.Progress = constants.ProgressComplete
		rec.FilePath = res.Path
		rec.Warning = res.Warning
		entry.Body = res.Log
		if res.Warning != "" {
			entry.Body += "\nwarning: " + res.Warning
		}
	}
	a.appendLog(entry)

	a.completed++
	if a.completed < a.total {
		a.status = fmt.Sprintf("%d/%d", a.completed, a.total)
		return false
	}

	a.status = fmt.Sprintf("done (%d tracks)", a.total)
	a.active = false
	a.startedAt = time.Time{}
	return true
}

// Apply dispatches ev to OnProgress or OnTerminal. It reports whether state
// changed and whether the batch just finished.
func (a *Aggregator) Apply(ev domain.Event) (changed, finished bool) {
	switch ev.Kind {
	case domain.EventProgress:
		return a.OnProgress(ev.ID, ev.Phase, ev.Percent), false
	case domain.EventTerminal:
		if ev.Result == nil {
			return false, false
		}
		if !a.Accepts(ev.ID) {
			return false, false
		}
		return true, a.OnTerminal(ev.ID, *ev.Result)
	}
	return false, false
}

// Accepts reports whether id belongs to the current batch and is not yet
// terminal.
func (a *Aggregator) Accepts(id domain.ItemID) bool {
	rec, ok := a.index[id]
	return ok && !rec.Status.State.IsTerminal()
}

// EstimateRemaining extrapolates the time left from the average time per
// completed item. It reports false when no estimate can be made.
func (a *Aggregator) EstimateRemaining() (time.Duration, bool) {
	if !a.active {
		return 0, false
	}
	remaining := a.total - a.completed
	if a.completed == 0 || remaining == 0 {
		return 0, false
	}

	elapsed := a.now().Sub(a.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	secs := elapsed.Seconds() / float64(a.completed) * float64(remaining)
	return time.Duration(math.Round(secs)) * time.Second, true
}

// ETAString formats the estimate as "eta MM:SS", or "" when there is none.
func (a *Aggregator) ETAString() string {
	eta, ok := a.EstimateRemaining()
	if !ok {
		return ""
	}
	secs := int(eta / time.Second)
	return fmt.Sprintf("eta %02d:%02d", secs/60, secs%60)
}

// Record returns a copy of the record for id.
func (a *Aggregator) Record(id domain.ItemID) (domain.Record, bool) {
	rec, ok := a.index[id]
	if !ok {
		return domain.Record{}, false
	}
	return *rec, true
}

// Snapshot copies the current state. Records are in submission order.
func (a *Aggregator) Snapshot() Snapshot {
	records := make([]domain.Record, 0, len(a.records))
	for _, rec := range a.records {
		records = append(records, *rec)
	}
	return Snapshot{
		BatchID:   a.batchID,
		Status:    a.status,
		ETA:       a.ETAString(),
		Records:   records,
		Completed: a.completed,
		Total:     a.total,
		Active:    a.active,
	}
}

// Logs returns the session log blocks in the order they were appended.
func (a *Aggregator) Logs() []domain.LogEntry {
	out := make([]domain.LogEntry, len(a.logs))
	copy(out, a.logs)
	return out
}

// ClearLogs empties the session log.
func (a *Aggregator) ClearLogs() {
	a.logs = nil
}

func (a *Aggregator) appendLog(entry domain.LogEntry) {
	a.logs = append(a.logs, entry)
	if a.OnLog != nil {
		a.OnLog(entry)
	}
}

func clamp(pct float64) float64 {
	if math.IsNaN(pct) || pct < constants.ProgressStart {
		return constants.ProgressStart
	}
	if pct > constants.ProgressComplete {
		return constants.ProgressComplete
	}
	return pct
}
