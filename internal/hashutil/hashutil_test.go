package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash([]byte("hello"))
	h2 := ContentHash([]byte("hello"))
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestCanonicalJSON_KeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2}
	b := map[string]interface{}{"a": 2, "b": 1}

	ja, err := CanonicalJSON(a)
	require.NoError(t, err)
	jb, err := CanonicalJSON(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestHamming_EqualLength(t *testing.T) {
	assert.Equal(t, 0, Hamming("abcd", "abcd"))
	assert.Equal(t, 1, Hamming("abcd", "abce"))
	assert.Equal(t, 4, Hamming("0000", "1111"))
}

func TestHamming_PadsShorterOnTheRight(t *testing.T) {
	// "ab" padded to "ab00" vs "abcd" -> differ in last two positions.
	assert.Equal(t, 2, Hamming("ab", "abcd"))
}

func TestSelectOwner_Deterministic(t *testing.T) {
	peers := []string{"peer-b", "peer-a", "peer-c"}
	owner1, dist1 := SelectOwner("head-1", "task-1", peers)
	owner2, dist2 := SelectOwner("head-1", "task-1", peers)
	assert.Equal(t, owner1, owner2)
	assert.Equal(t, dist1, dist2)
}

func TestSelectOwner_OrderIndependentOfRosterOrder(t *testing.T) {
	peers := []string{"peer-b", "peer-a", "peer-c"}
	shuffled := []string{"peer-c", "peer-b", "peer-a"}

	owner1, _ := SelectOwner("head-1", "task-1", peers)
	owner2, _ := SelectOwner("head-1", "task-1", shuffled)
	assert.Equal(t, owner1, owner2)
}

func TestSelectOwner_SinglePeer(t *testing.T) {
	owner, _ := SelectOwner("head", "task", []string{"only-peer"})
	assert.Equal(t, "only-peer", owner)
}
