package coordinator

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflow"
)

func newTestCoordinator(t *testing.T, initialPeers ...string) *Coordinator {
	t.Helper()
	c, err := New(Options{
		PeerID:       "peer-alpha",
		DataDir:      t.TempDir(),
		InitialPeers: initialPeers,
	})
	require.NoError(t, err)
	return c
}

func TestThreePeerRoundTrip(t *testing.T) {
	c := newTestCoordinator(t, "peer-beta", "peer-gamma")
	ctx := context.Background()

	dir := t.TempDir()
	writeWorkflowFile(t, dir, "a.yaml", "name: workflow-a\n")
	writeWorkflowFile(t, dir, "b.yaml", "name: workflow-b\n")
	writeWorkflowFile(t, dir, "c.yaml", "name: workflow-c\n")

	pA := 3.0
	pB := 1.0
	pC := 2.0
	_, err := c.SubmitWorkflow(ctx, dir+"/a.yaml", "A", nil, &pA)
	require.NoError(t, err)
	_, err = c.SubmitWorkflow(ctx, dir+"/b.yaml", "B", nil, &pB)
	require.NoError(t, err)
	_, err = c.SubmitWorkflow(ctx, dir+"/c.yaml", "C", nil, &pC)
	require.NoError(t, err)

	assigned, err := c.AssignWorkflows(ctx)
	require.NoError(t, err)
	assert.Len(t, assigned, 3)

	stats := c.GetStats()
	assert.Equal(t, 3, stats.StatusCounts[workflow.StatusAssigned])
	assert.True(t, stats.ClockValid)
}

func TestSelectionIsStableAcrossRepeatedAssignCalls(t *testing.T) {
	c := newTestCoordinator(t, "peer-beta", "peer-gamma")
	ctx := context.Background()

	id, err := c.SubmitWorkflow(ctx, "/no/such/file.yaml", "solo", nil, nil)
	require.NoError(t, err)

	assigned, err := c.AssignWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	rec1, err := c.GetWorkflowStatus(id)
	require.NoError(t, err)

	// A second assign call has nothing left pending, so the record's
	// assigned_peer must remain exactly what the first call produced.
	_, err = c.AssignWorkflows(ctx)
	require.NoError(t, err)
	rec2, err := c.GetWorkflowStatus(id)
	require.NoError(t, err)

	assert.Equal(t, rec1.AssignedPeer, rec2.AssignedPeer)
}

func TestUpdateWorkflowStatus_Idempotence(t *testing.T) {
	c := newTestCoordinator(t, "peer-beta")
	ctx := context.Background()

	id, err := c.SubmitWorkflow(ctx, "/no/such/file.yaml", "solo", nil, nil)
	require.NoError(t, err)

	_, err = c.AssignWorkflows(ctx)
	require.NoError(t, err)

	changed, err := c.UpdateWorkflowStatus(ctx, id, workflow.StatusInProgress, nil, "")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.UpdateWorkflowStatus(ctx, id, workflow.StatusCompleted, map[string]interface{}{"ok": true}, "")
	require.NoError(t, err)
	assert.True(t, changed)
	first, _ := c.GetWorkflowStatus(id)

	changed, err = c.UpdateWorkflowStatus(ctx, id, workflow.StatusCompleted, map[string]interface{}{"ok": true}, "")
	require.NoError(t, err)
	assert.False(t, changed)
	second, _ := c.GetWorkflowStatus(id)

	assert.Equal(t, first.CompletedAt, second.CompletedAt)
}

func TestUpdateWorkflowStatus_RejectsSkippingInProgress(t *testing.T) {
	c := newTestCoordinator(t, "peer-beta")
	ctx := context.Background()

	id, err := c.SubmitWorkflow(ctx, "/no/such/file.yaml", "solo", nil, nil)
	require.NoError(t, err)

	before, err := c.GetWorkflowStatus(id)
	require.NoError(t, err)

	_, err = c.UpdateWorkflowStatus(ctx, id, workflow.StatusCompleted, nil, "")
	assert.ErrorIs(t, err, workflow.ErrIllegalTransition)

	after, err := c.GetWorkflowStatus(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSnapshotRoundTrip_SurvivesRestart(t *testing.T) {
	dataDir := t.TempDir()
	c1, err := New(Options{PeerID: "peer-alpha", DataDir: dataDir, InitialPeers: []string{"peer-beta"}})
	require.NoError(t, err)

	ctx := context.Background()
	id, err := c1.SubmitWorkflow(ctx, "/no/such/file.yaml", "solo", nil, nil)
	require.NoError(t, err)

	c2, err := New(Options{PeerID: "peer-alpha", DataDir: dataDir})
	require.NoError(t, err)

	rec, err := c2.GetWorkflowStatus(id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, rec.Status)

	stats := c2.GetStats()
	assert.Equal(t, 2, stats.PeerCount)
}

func TestUpdateWorkflowStatus_CancellationDequeuesFromPriorityQueue(t *testing.T) {
	c := newTestCoordinator(t, "peer-beta")
	ctx := context.Background()

	id, err := c.SubmitWorkflow(ctx, "/no/such/file.yaml", "solo", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.GetStats().QueueSize)

	changed, err := c.UpdateWorkflowStatus(ctx, id, workflow.StatusCancelled, nil, "")
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, 0, c.GetStats().QueueSize, "cancelling a pending workflow must remove its queue handle")

	rec, err := c.GetWorkflowStatus(id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, rec.Status)
}

func TestAddRemovePeer_Idempotent(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.AddPeer(ctx, "peer-beta"))
	require.NoError(t, c.AddPeer(ctx, "peer-beta"))
	assert.Equal(t, 2, c.GetStats().PeerCount)

	require.NoError(t, c.RemovePeer(ctx, "peer-beta"))
	require.NoError(t, c.RemovePeer(ctx, "peer-beta"))
	assert.Equal(t, 1, c.GetStats().PeerCount)
}

func writeWorkflowFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(dir+"/"+name, []byte(content), 0o644))
}
