package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id string, status Status) *Record {
	return &Record{WorkflowID: id, Name: id, Status: status, Priority: 5.0, CreatedAt: 1}
}

func TestSubmit_DuplicateIsConflict(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w1", StatusPending)))
	err := tbl.Submit(newRecord("w1", StatusPending))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGet_NotFound(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_FullHappyPath(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w1", StatusPending)))

	changed, err := tbl.UpdateStatus("w1", StatusAssigned, nil, "", 10)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = tbl.UpdateStatus("w1", StatusInProgress, nil, "", 20)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = tbl.UpdateStatus("w1", StatusCompleted, map[string]interface{}{"ok": true}, "", 30)
	require.NoError(t, err)
	assert.True(t, changed)

	rec, _ := tbl.Get("w1")
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, int64(20), rec.StartedAt)
	assert.Equal(t, int64(30), rec.CompletedAt)
}

func TestUpdateStatus_RepeatedTerminalIsIdempotent(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w1", StatusInProgress)))

	changed, err := tbl.UpdateStatus("w1", StatusCompleted, map[string]interface{}{"ok": true}, "", 100)
	require.NoError(t, err)
	assert.True(t, changed)
	first, _ := tbl.Get("w1")

	changed, err = tbl.UpdateStatus("w1", StatusCompleted, map[string]interface{}{"ok": true}, "", 200)
	require.NoError(t, err)
	assert.False(t, changed)

	second, _ := tbl.Get("w1")
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
}

func TestUpdateStatus_SkippingInProgressIsIllegal(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w1", StatusPending)))

	_, err := tbl.UpdateStatus("w1", StatusCompleted, nil, "", 10)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	rec, _ := tbl.Get("w1")
	assert.Equal(t, StatusPending, rec.Status)
}

func TestUpdateStatus_InvalidStatusValue(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w1", StatusPending)))

	_, err := tbl.UpdateStatus("w1", Status("bogus"), nil, "", 10)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestList_FiltersByStatusAndPeer(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w1", StatusPending)))
	r2 := newRecord("w2", StatusPending)
	require.NoError(t, tbl.Submit(r2))
	require.NoError(t, tbl.AssignTo("w2", "peer-a"))

	pending := StatusPending
	res := tbl.List(Filter{Status: &pending})
	require.Len(t, res, 1)
	assert.Equal(t, "w1", res[0].WorkflowID)

	peer := "peer-a"
	res = tbl.List(Filter{Peer: &peer})
	require.Len(t, res, 1)
	assert.Equal(t, "w2", res[0].WorkflowID)
}

func TestPendingIDs_PreservesInsertionOrder(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w3", StatusPending)))
	require.NoError(t, tbl.Submit(newRecord("w1", StatusPending)))
	require.NoError(t, tbl.Submit(newRecord("w2", StatusPending)))

	assert.Equal(t, []string{"w3", "w1", "w2"}, tbl.PendingIDs())
}

func TestUpdateStatus_CancellingAssignedClearsAssignedPeer(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Submit(newRecord("w1", StatusPending)))
	require.NoError(t, tbl.AssignTo("w1", "peer-a"))

	changed, err := tbl.UpdateStatus("w1", StatusCancelled, nil, "", 10)
	require.NoError(t, err)
	assert.True(t, changed)

	rec, _ := tbl.Get("w1")
	assert.Equal(t, StatusCancelled, rec.Status)
	assert.Empty(t, rec.AssignedPeer, "assigned_peer must be empty once status leaves {assigned,in_progress,completed,failed}")
}

func TestRoster_SelfAlwaysPresentAndCannotBeRemoved(t *testing.T) {
	r := NewRoster("self-peer")
	r.Remove("self-peer")
	assert.Contains(t, r.List(), "self-peer")
}

func TestRoster_AddRemoveIdempotent(t *testing.T) {
	r := NewRoster("self")
	r.Add("peer-b")
	r.Add("peer-b")
	assert.Equal(t, 2, r.Len())

	r.Remove("peer-b")
	r.Remove("peer-b")
	assert.Equal(t, 1, r.Len())
}
