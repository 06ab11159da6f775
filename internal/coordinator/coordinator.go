// Package coordinator glues the Merkle clock, priority queue, workflow
// table and durable store behind a single reader-writer lock and exposes
// the RPC handler set consumed by the CLI/HTTP/MCP collaborators (§4.G).
package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/assign"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/merkleclock"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/store"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflow"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflowdef"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log"
)

var tracer = otel.Tracer("github.com/endomorphosis/ipfs-kit-py-sub032/internal/coordinator")

// Coordinator owns the full CoordinatorState and the single RW-lock that
// covers it (§5). It is constructed once per process with an explicit
// peer-id and data directory — there is no process-wide singleton.
type Coordinator struct {
	mu sync.RWMutex

	peerID      string
	clock       *merkleclock.Clock
	table       *workflow.Table
	roster      *workflow.Roster
	engine      *assign.Engine
	store       *store.Store
	saveTimeout time.Duration
}

// Options configures a new Coordinator.
type Options struct {
	PeerID       string
	DataDir      string
	SaveTimeout  time.Duration
	InitialPeers []string
}

// New constructs a Coordinator, loading its prior snapshot from DataDir if
// one exists (best-effort per §4.E: missing file starts empty, malformed
// file is ErrSnapshotCorrupt and fatal at startup).
func New(opts Options) (*Coordinator, error) {
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 5 * time.Second
	}

	st, err := store.New(opts.DataDir)
	if err != nil {
		return nil, err
	}

	snap, found, err := st.Load(opts.PeerID)
	if err != nil {
		return nil, ErrSnapshotCorrupt.Clone().WithError(err)
	}

	roster := workflow.NewRoster(opts.PeerID)
	for _, p := range opts.InitialPeers {
		roster.Add(p)
	}

	var clock *merkleclock.Clock
	table := workflow.NewTable()
	engine := func(c *merkleclock.Clock) *assign.Engine { return assign.NewEngine(c, table, roster) }

	if found {
		clock = merkleclock.FromSnapshot(snap.MerkleClock)
		for _, p := range snap.PeerList {
			roster.Add(p)
		}
		// Re-submit in creation order so the table's insertion order (and
		// therefore PendingIDs and List) matches the original submission
		// order rather than map iteration order.
		ids := make([]string, 0, len(snap.Workflows))
		for id := range snap.Workflows {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			a, b := snap.Workflows[ids[i]], snap.Workflows[ids[j]]
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
			return ids[i] < ids[j]
		})
		for _, id := range ids {
			r := snap.Workflows[id]
			r.WorkflowID = id
			if err := table.Submit(&r); err != nil {
				return nil, ErrSnapshotCorrupt.Clone().WithMessage("duplicate workflow id in snapshot").WithError(err)
			}
		}
	} else {
		clock = merkleclock.New(opts.PeerID)
	}

	c := &Coordinator{
		peerID:      opts.PeerID,
		clock:       clock,
		table:       table,
		roster:      roster,
		engine:      engine(clock),
		store:       st,
		saveTimeout: opts.SaveTimeout,
	}

	if found {
		// Re-enqueue every still-pending workflow, matching the source's
		// _load_state behaviour of restoring the priority queue on boot.
		for _, id := range table.PendingIDs() {
			rec, _ := table.Get(id)
			c.engine.Enqueue(id, rec.Priority)
		}
	}

	return c, nil
}

func (c *Coordinator) save(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.saveTimeout)
	defer cancel()

	workflows := make(map[string]workflow.Record)
	for _, r := range c.table.All() {
		workflows[r.WorkflowID] = r
	}

	snap := store.Snapshot{
		PeerID:      c.peerID,
		PeerList:    c.roster.List(),
		MerkleClock: c.clock.ToSnapshot(),
		Workflows:   workflows,
		SavedAt:     float64(time.Now().UnixNano()) / 1e9,
	}
	if err := c.store.Save(ctx, snap); err != nil {
		return ErrPersistenceFailed.Clone().WithError(err)
	}
	return nil
}

func deriveWorkflowID(peerID string, submitNanos int64, sourceRef string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", peerID, submitNanos, sourceRef)))
	return hex.EncodeToString(sum[:])[:16]
}

// SubmitWorkflow creates a new workflow record, enqueues it, appends a
// workflow_submitted Merkle event, and saves. sourceRef is treated as a
// file path and parsed as YAML for tags; parse failures do not block
// submission — they are recorded on the record's Error field.
func (c *Coordinator) SubmitWorkflow(ctx context.Context, sourceRef, name string, inputs map[string]interface{}, priority *float64) (string, error) {
	ctx, span := tracer.Start(ctx, "SubmitWorkflow", trace.WithAttributes(attribute.String("correlation_id", uuid.NewString())))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	id := deriveWorkflowID(c.peerID, now, sourceRef)

	p := 5.0
	if priority != nil {
		p = *priority
	}

	parsed, parseErr := workflowdef.ParseFile(sourceRef)
	recName := name
	if recName == "" {
		recName = sourceRef
	}

	rec := &workflow.Record{
		WorkflowID: id,
		Name:       recName,
		SourceRef:  sourceRef,
		Inputs:     inputs,
		Priority:   p,
		Tags:       parsed.Tags,
		Status:     workflow.StatusPending,
		CreatedAt:  now,
	}
	if parseErr != nil {
		rec.Error = parseErr.Error()
		log.Warnf("submit_workflow: failed to parse workflow definition %q: %v", sourceRef, parseErr)
	}

	if err := c.table.Submit(rec); err != nil {
		return "", err
	}
	c.engine.Enqueue(id, p)

	if _, err := c.clock.Append(map[string]interface{}{
		"kind":        "workflow_submitted",
		"workflow_id": id,
	}); err != nil {
		return "", err
	}

	if err := c.save(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// AssignWorkflows runs the assignment algorithm once (§4.F) and saves if
// anything was assigned.
func (c *Coordinator) AssignWorkflows(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "AssignWorkflows")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	assigned := c.engine.AssignWorkflows()
	if len(assigned) > 0 {
		if err := c.save(ctx); err != nil {
			return assigned, err
		}
	}
	return assigned, nil
}

// GetWorkflowStatus reads a single workflow record.
func (c *Coordinator) GetWorkflowStatus(workflowID string) (workflow.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.Get(workflowID)
}

// ListWorkflows reads every workflow matching the given filters.
func (c *Coordinator) ListWorkflows(status *workflow.Status, peer *string) []workflow.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.List(workflow.Filter{Status: status, Peer: peer})
}

// UpdateWorkflowStatus enforces the state machine, appends a Merkle
// event, and saves.
func (c *Coordinator) UpdateWorkflowStatus(ctx context.Context, workflowID string, newStatus workflow.Status, result map[string]interface{}, errMsg string) (bool, error) {
	ctx, span := tracer.Start(ctx, "UpdateWorkflowStatus", trace.WithAttributes(attribute.String("workflow_id", workflowID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	changed, err := c.table.UpdateStatus(workflowID, newStatus, result, errMsg, time.Now().UnixNano())
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	if newStatus == workflow.StatusCancelled {
		// Cancellation is the only non-assignment path that removes a
		// workflow from the priority queue (§3 lifecycle); a no-op if the
		// workflow was already assigned and thus already dequeued.
		c.engine.CancelPending(workflowID)
	}

	if _, err := c.clock.Append(map[string]interface{}{
		"kind":        "workflow_status_updated",
		"workflow_id": workflowID,
		"status":      string(newStatus),
	}); err != nil {
		return false, err
	}

	if err := c.save(ctx); err != nil {
		return changed, err
	}
	return changed, nil
}

// AddPeer idempotently adds peerID to the roster, appends a Merkle event,
// and saves.
func (c *Coordinator) AddPeer(ctx context.Context, peerID string) error {
	ctx, span := tracer.Start(ctx, "AddPeer", trace.WithAttributes(attribute.String("peer_id", peerID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.roster.Add(peerID)
	if _, err := c.clock.Append(map[string]interface{}{"kind": "peer_added", "peer_id": peerID}); err != nil {
		return err
	}
	return c.save(ctx)
}

// RemovePeer idempotently removes peerID from the roster (the self peer
// is never removed), appends a Merkle event, and saves.
func (c *Coordinator) RemovePeer(ctx context.Context, peerID string) error {
	ctx, span := tracer.Start(ctx, "RemovePeer", trace.WithAttributes(attribute.String("peer_id", peerID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.roster.Remove(peerID)
	if _, err := c.clock.Append(map[string]interface{}{"kind": "peer_removed", "peer_id": peerID}); err != nil {
		return err
	}
	return c.save(ctx)
}

// GetMyWorkflows returns every workflow assigned to this coordinator's
// own peer-id.
func (c *Coordinator) GetMyWorkflows() []workflow.Record {
	self := c.peerID
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.List(workflow.Filter{Peer: &self})
}

// Stats is the response shape for get_stats (§4.G), extended per
// SPEC_FULL.md §9.1 with ClockValid.
type Stats struct {
	PeerID             string                   `json:"peer_id"`
	TotalWorkflows     int                      `json:"total_workflows"`
	QueueSize          int                      `json:"queue_size"`
	PeerCount          int                      `json:"peer_count"`
	MerkleClockHeight  int64                    `json:"merkle_clock_height"`
	StatusCounts       map[workflow.Status]int  `json:"status_counts"`
	MyWorkflowCount    int                      `json:"my_workflow_count"`
	ClockValid         bool                     `json:"clock_valid"`
}

// GetStats reports a snapshot of coordinator-wide counters.
func (c *Coordinator) GetStats() Stats {
	self := c.peerID
	c.mu.RLock()
	defer c.mu.RUnlock()

	myWorkflows := c.table.List(workflow.Filter{Peer: &self})
	return Stats{
		PeerID:            c.peerID,
		TotalWorkflows:    c.table.Len(),
		QueueSize:         c.engine.QueueSize(),
		PeerCount:         c.roster.Len(),
		MerkleClockHeight: c.clock.LogicalClock(),
		StatusCounts:      c.table.StatusCounts(),
		MyWorkflowCount:   len(myWorkflows),
		ClockValid:        c.clock.Verify(),
	}
}

// ParseWorkflowTags reads a workflow definition and returns its derived
// tags without submitting it.
func (c *Coordinator) ParseWorkflowTags(sourceRef string) (workflowdef.Parsed, error) {
	return workflowdef.ParseFile(sourceRef)
}
