// Package assign implements the assignment engine: the algorithm that
// combines the Merkle clock, the priority queue and the workflow table to
// place pending workflows onto peers (§4.F).
package assign

import (
	"time"

	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/hashutil"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/merkleclock"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/pqueue"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflow"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log"
)

// Engine owns the priority queue and the handle bookkeeping needed to
// remove a specific workflow from it (on assignment or cancellation),
// and runs assign_workflows() against a clock, table and roster it does
// not own. Every Engine method assumes the caller already holds the
// coordinator's write lock (§5) — the engine has no lock of its own.
type Engine struct {
	clock   *merkleclock.Clock
	table   *workflow.Table
	roster  *workflow.Roster
	queue   *pqueue.Queue
	handles map[string]*pqueue.Handle
}

// NewEngine wires an Engine to the clock/table/roster it will coordinate.
func NewEngine(clock *merkleclock.Clock, table *workflow.Table, roster *workflow.Roster) *Engine {
	return &Engine{
		clock:   clock,
		table:   table,
		roster:  roster,
		queue:   pqueue.New(),
		handles: make(map[string]*pqueue.Handle),
	}
}

// Enqueue adds a pending workflow to the priority queue.
func (e *Engine) Enqueue(workflowID string, priority float64) {
	e.handles[workflowID] = e.queue.Insert(priority, workflowID, nil)
	QueuePendingGauge.Set(float64(e.queue.Size()))
}

// CancelPending removes workflowID from the priority queue, if present.
// It is a no-op if the workflow was never enqueued (e.g. already
// assigned).
func (e *Engine) CancelPending(workflowID string) {
	h, ok := e.handles[workflowID]
	if !ok {
		return
	}
	delete(e.handles, workflowID)
	_ = e.queue.Remove(h)
	QueuePendingGauge.Set(float64(e.queue.Size()))
}

// QueueSize reports the number of workflows currently pending in the
// priority queue.
func (e *Engine) QueueSize() int {
	return e.queue.Size()
}

// AssignWorkflows runs the full §4.F algorithm once: read the Merkle
// head, enumerate pending workflows in insertion order, select an owner
// for each by Hamming distance, mutate the record and the clock, and
// dequeue. Per-workflow NoPeersAvailable failures are logged and the
// workflow is left pending; the call never aborts early. It returns the
// ids successfully assigned.
func (e *Engine) AssignWorkflows() []string {
	start := time.Now()
	defer func() { AssignmentDuration.Observe(time.Since(start).Seconds()) }()

	head := e.clock.Head()
	if head == "" {
		return nil
	}

	pendingIDs := e.table.PendingIDs()
	var assigned []string

	for _, id := range pendingIDs {
		rec, err := e.table.Get(id)
		if err != nil {
			// Raced with a concurrent mutation; impossible under the
			// single-writer lock this engine assumes, but tolerated.
			continue
		}

		peers := e.roster.List()
		if len(peers) == 0 {
			log.Warnf("assign_workflows: no peers available for workflow %s", id)
			NoPeersAvailableTotal.Inc()
			continue
		}

		taskHashInput, err := hashutil.CanonicalJSON(map[string]interface{}{
			"workflow_id": id,
			"name":        rec.Name,
			"priority":    rec.Priority,
		})
		if err != nil {
			log.Errorf("assign_workflows: failed to hash task for workflow %s: %v", id, err)
			continue
		}
		taskHash := hashutil.ContentHash(taskHashInput)

		peer, dist := hashutil.SelectOwner(head, taskHash, peers)

		if err := e.table.AssignTo(id, peer); err != nil {
			log.Warnf("assign_workflows: failed to assign workflow %s to %s: %v", id, peer, err)
			continue
		}

		e.CancelPending(id)

		if _, err := e.clock.Append(map[string]interface{}{
			"kind":             "workflow_assigned",
			"workflow_id":      id,
			"peer_id":          peer,
			"hamming_distance": dist,
			"timestamp":        float64(time.Now().UnixNano()) / 1e9,
		}); err != nil {
			log.Errorf("assign_workflows: failed to append clock event for workflow %s: %v", id, err)
			continue
		}

		assigned = append(assigned, id)
		AssignmentsTotal.Inc()
	}

	return assigned
}
