package domain

// EventKind distinguishes progress updates from terminal results.
type EventKind int

const (
	EventProgress EventKind = iota
	EventTerminal
)

// Event travels from a download task to the aggregator.
type Event struct {
	Result  *Result
	Phase   Phase
	ID      ItemID
	Percent float64
	Kind    EventKind
}

// ProgressEvent reports that item id is in phase at pct percent.
func ProgressEvent(id ItemID, phase Phase, pct float64) Event {
	return Event{ID: id, Kind: EventProgress, Phase: phase, Percent: pct}
}

// TerminalEvent reports the final result of item id.
func TerminalEvent(id ItemID, res Result) Event {
	return Event{ID: id, Kind: EventTerminal, Result: &res}
}

// Result is the outcome of one download task. Err is nil on success.
type Result struct {
	Err      error
	Path     string
	FileHash string
	Log      string
	// Warning carries non-fatal problems such as a missing cover or a failed
	// final rename.
	Warning string
}

// Failed reports whether the task ended in the Failed state.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Message is the diagnostic shown for a failed item.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
