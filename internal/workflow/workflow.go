// Package workflow holds the in-memory workflow table, its status state
// machine, and the peer roster (§4.D).
package workflow

import (
	"sort"
	"sync"

	pkgerrors "github.com/endomorphosis/ipfs-kit-py-sub032/pkg/errors"
)

// Status is a workflow's lifecycle stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsValid reports whether s is one of the six recognised statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is a terminal status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// transitions enumerates every legal (from, to) status move, per §4.D.
var transitions = map[Status]map[Status]bool{
	StatusPending:    {StatusAssigned: true, StatusCancelled: true},
	StatusAssigned:   {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true, StatusFailed: true},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// Record is a single submitted workflow and its current state.
type Record struct {
	WorkflowID   string                 `json:"workflow_id"`
	Name         string                 `json:"name"`
	SourceRef    string                 `json:"source_ref"`
	Inputs       map[string]interface{} `json:"inputs"`
	Priority     float64                `json:"priority"`
	Tags         []string               `json:"tags"`
	Status       Status                 `json:"status"`
	AssignedPeer string                 `json:"assigned_peer,omitempty"`
	CreatedAt    int64                  `json:"created_at"`
	StartedAt    int64                  `json:"started_at,omitempty"`
	CompletedAt  int64                  `json:"completed_at,omitempty"`
	Result       map[string]interface{} `json:"result,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// ErrNotFound, ErrConflict and ErrIllegalTransition are the §7 sentinel
// errors this package produces. Callers compare with errors.Is and may
// inspect the wrapped *pkgerrors.Error for Code/Message detail.
var (
	ErrNotFound = pkgerrors.NewError().
			WithCode(pkgerrors.CodeNotFound).
			WithMessage("workflow not found")
	ErrConflict = pkgerrors.NewError().
			WithCode(pkgerrors.CodeConflict).
			WithMessage("workflow id already exists")
	ErrIllegalTransition = pkgerrors.NewError().
				WithCode(pkgerrors.CodeIllegalTransition).
				WithMessage("status transition not permitted")
	ErrInvalidStatus = pkgerrors.NewError().
				WithCode(pkgerrors.CodeInvalidStatus).
				WithMessage("status is not one of the recognised values")
)

// Table is the in-memory workflow map plus insertion-ordered id list, so
// list() and the assignment engine can iterate deterministically.
type Table struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
}

// NewTable returns an empty workflow table.
func NewTable() *Table {
	return &Table{records: make(map[string]*Record)}
}

// Submit inserts a new record. Duplicate ids are rejected with
// ErrConflict.
func (t *Table) Submit(r *Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[r.WorkflowID]; exists {
		return ErrConflict
	}
	t.records[r.WorkflowID] = r
	t.order = append(t.order, r.WorkflowID)
	return nil
}

// Get returns a copy of the record for id, or ErrNotFound.
func (t *Table) Get(id string) (Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *r, nil
}

// UpdateStatus enforces the state machine transition from the record's
// current status to newStatus. Repeated terminal transitions to the same
// status are idempotent and report changed=false rather than erroring.
// started_at/completed_at are set only on first arrival.
func (t *Table) UpdateStatus(id string, newStatus Status, result map[string]interface{}, errMsg string, nowNanos int64) (changed bool, err error) {
	if !newStatus.IsValid() {
		return false, ErrInvalidStatus
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[id]
	if !ok {
		return false, ErrNotFound
	}

	if r.Status == newStatus {
		// Idempotent repeat of the current status. Legal only when the
		// current status is terminal (§4.D); a repeat of a non-terminal
		// status is meaningless "no-op" noise from a caller and is also
		// tolerated as a no-op rather than rejected.
		return false, nil
	}

	if !transitions[r.Status][newStatus] {
		return false, ErrIllegalTransition
	}

	r.Status = newStatus
	if newStatus == StatusCancelled {
		// assigned_peer is non-empty iff status is one of
		// {assigned, in_progress, completed, failed} (§3); cancellation
		// from either pending or assigned must clear it.
		r.AssignedPeer = ""
	}
	if newStatus == StatusInProgress && r.StartedAt == 0 {
		r.StartedAt = nowNanos
	}
	if (newStatus == StatusCompleted || newStatus == StatusFailed) && r.CompletedAt == 0 {
		r.CompletedAt = nowNanos
	}
	if result != nil {
		r.Result = result
	}
	if errMsg != "" {
		r.Error = errMsg
	}
	return true, nil
}

// AssignTo sets assigned_peer and advances status to assigned. Used only
// by the assignment engine, which has already validated the record is
// pending.
func (t *Table) AssignTo(id, peerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[id]
	if !ok {
		return ErrNotFound
	}
	if !transitions[r.Status][StatusAssigned] {
		return ErrIllegalTransition
	}
	r.Status = StatusAssigned
	r.AssignedPeer = peerID
	return nil
}

// Filter narrows a List call.
type Filter struct {
	Status *Status
	Peer   *string
}

// List returns copies of every record matching filter, in submission
// order.
func (t *Table) List(filter Filter) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, 0, len(t.order))
	for _, id := range t.order {
		r := t.records[id]
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.Peer != nil && r.AssignedPeer != *filter.Peer {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// PendingIDs returns the ids of every record with status == pending, in
// submission order — the order the assignment engine must examine them.
func (t *Table) PendingIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for _, id := range t.order {
		if t.records[id].Status == StatusPending {
			out = append(out, id)
		}
	}
	return out
}

// StatusCounts tallies every record by status.
func (t *Table) StatusCounts() map[Status]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[Status]int)
	for _, id := range t.order {
		counts[t.records[id].Status]++
	}
	return counts
}

// Len returns the total number of workflow records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// All returns a copy of every record, in submission order.
func (t *Table) All() []Record {
	return t.List(Filter{})
}

// Roster is the ordered, deduplicated set of peer-ids participating in
// this coordinator, with self always present.
type Roster struct {
	mu   sync.RWMutex
	self string
	set  map[string]struct{}
}

// NewRoster returns a roster containing only self.
func NewRoster(self string) *Roster {
	return &Roster{self: self, set: map[string]struct{}{self: {}}}
}

// Add idempotently inserts peerID.
func (r *Roster) Add(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set[peerID] = struct{}{}
}

// Remove idempotently removes peerID. The self peer can never be
// removed.
func (r *Roster) Remove(peerID string) {
	if peerID == r.self {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.set, peerID)
}

// List returns the roster's peer-ids in sorted order.
func (r *Roster) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.set))
	for p := range r.set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the roster size.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.set)
}
