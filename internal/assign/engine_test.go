package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/merkleclock"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflow"
)

func setup(t *testing.T, peers ...string) (*Engine, *workflow.Table, *merkleclock.Clock) {
	t.Helper()
	clock := merkleclock.New("peer-alpha")
	table := workflow.NewTable()
	roster := workflow.NewRoster("peer-alpha")
	for _, p := range peers {
		roster.Add(p)
	}
	return NewEngine(clock, table, roster), table, clock
}

func submit(t *testing.T, table *workflow.Table, engine *Engine, id string, priority float64) {
	t.Helper()
	require.NoError(t, table.Submit(&workflow.Record{
		WorkflowID: id, Name: id, Status: workflow.StatusPending, Priority: priority, CreatedAt: 1,
	}))
	engine.Enqueue(id, priority)
}

func TestAssignWorkflows_EmptyHeadReturnsNil(t *testing.T) {
	engine, table, _ := setup(t, "peer-beta")
	submit(t, table, engine, "w1", 1.0)

	assigned := engine.AssignWorkflows()
	assert.Nil(t, assigned)

	rec, _ := table.Get("w1")
	assert.Equal(t, workflow.StatusPending, rec.Status)
}

func TestAssignWorkflows_AssignsAllPending(t *testing.T) {
	engine, table, clock := setup(t, "peer-beta", "peer-gamma")
	_, err := clock.Append(map[string]interface{}{"kind": "genesis"})
	require.NoError(t, err)

	submit(t, table, engine, "wA", 3.0)
	submit(t, table, engine, "wB", 1.0)
	submit(t, table, engine, "wC", 2.0)

	assigned := engine.AssignWorkflows()
	assert.ElementsMatch(t, []string{"wA", "wB", "wC"}, assigned)
	assert.Equal(t, 0, engine.QueueSize())

	for _, id := range []string{"wA", "wB", "wC"} {
		rec, err := table.Get(id)
		require.NoError(t, err)
		assert.Equal(t, workflow.StatusAssigned, rec.Status)
		assert.NotEmpty(t, rec.AssignedPeer)
	}
}

func TestAssignWorkflows_DeterministicAcrossRuns(t *testing.T) {
	engine1, table1, clock1 := setup(t, "peer-beta", "peer-gamma")
	_, err := clock1.Append(map[string]interface{}{"kind": "genesis"})
	require.NoError(t, err)
	genesis := clock1.Nodes()
	submit(t, table1, engine1, "w1", 1.0)
	engine1.AssignWorkflows()
	rec1, _ := table1.Get("w1")

	// The second run is seeded with the first run's genesis node instead of
	// a fresh append: a node's timestamp is part of its hash, so two
	// separate appends would give the two runs different heads.
	engine2, table2, clock2 := setup(t, "peer-beta", "peer-gamma")
	clock2.Merge(genesis)
	require.Equal(t, genesis[0].Hash, clock2.Head())
	submit(t, table2, engine2, "w1", 1.0)
	engine2.AssignWorkflows()
	rec2, _ := table2.Get("w1")

	assert.Equal(t, rec1.AssignedPeer, rec2.AssignedPeer)
}

func TestCancelPending_RemovesFromQueue(t *testing.T) {
	engine, table, _ := setup(t, "peer-beta")
	submit(t, table, engine, "w1", 1.0)
	assert.Equal(t, 1, engine.QueueSize())

	engine.CancelPending("w1")
	assert.Equal(t, 0, engine.QueueSize())
}
