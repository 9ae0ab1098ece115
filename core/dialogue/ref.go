package dialogue

// PendingOp describes the state change a handler requested for the current
// event. The update dispatcher applies it once, after dispatch, so the
// persist step stays all-or-nothing per event.
type PendingOp int

const (
	// PendingNone leaves storage untouched.
	PendingNone PendingOp = iota
	// PendingSet upserts the new state.
	PendingSet
	// PendingEnd removes the dialogue record.
	PendingEnd
)

// Ref is the per-event dialogue cell injected into the dispatch dependencies.
// It is owned by a single traversal; handlers read the loaded state and
// record at most one pending change. The last call wins.
type Ref[D any] struct {
	key     int64
	state   D
	present bool
	op      PendingOp
}

// NewRef wraps the state loaded for key. present reports whether a record
// existed in storage.
func NewRef[D any](key int64, state D, present bool) *Ref[D] {
	return &Ref[D]{key: key, state: state, present: present}
}

// Key returns the conversation key this ref belongs to.
func (r *Ref[D]) Key() int64 { return r.key }

// Get returns the current state and whether a record existed. After Set it
// returns the new state; after End it reports absent.
func (r *Ref[D]) Get() (D, bool) {
	if r.op == PendingEnd {
		var zero D
		return zero, false
	}
	return r.state, r.present || r.op == PendingSet
}

// Set records a state update to persist after dispatch.
func (r *Ref[D]) Set(state D) {
	r.state = state
	r.op = PendingSet
}

// End records that the dialogue is over; the record is removed after
// dispatch.
func (r *Ref[D]) End() {
	r.op = PendingEnd
}

// Pending reports the requested change and, for PendingSet, the new state.
func (r *Ref[D]) Pending() (PendingOp, D) {
	return r.op, r.state
}
