package selfrag

// State is a stage in the Self-RAG pipeline state machine.
type State string

const (
	StateIdle       State = "idle"
	StateRouting    State = "routing"
	StateExpanding  State = "expanding"
	StateRetrieving State = "retrieving"
	StateGenerating State = "generating"
	StateEvaluating State = "evaluating"
	StateAccept     State = "accept"
	StateRegenerate State = "regenerate"
	StateRefuse     State = "refuse"
	StateDone       State = "done"
)

// TraceEntry records one state transition for debugging.
type TraceEntry struct {
	State    State
	Detail   string
	Error    string
	Duration int64 // milliseconds
}

// DebugTrace is the ordered list of stages a request passed through.
// Collected only when the caller opts in, since appending to it on every
// request would otherwise cost allocation on the hot path.
type DebugTrace struct {
	Entries []TraceEntry
}

func (t *DebugTrace) record(state State, detail string, err error, durationMs int64) {
	if t == nil {
		return
	}
	entry := TraceEntry{State: state, Detail: detail, Duration: durationMs}
	if err != nil {
		entry.Error = err.Error()
	}
	t.Entries = append(t.Entries, entry)
}
