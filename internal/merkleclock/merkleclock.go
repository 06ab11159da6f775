// Package merkleclock implements the per-peer append-only, hash-linked
// event log that anchors deterministic peer selection and doubles as a
// logical clock (§4.B).
package merkleclock

import (
	"sort"
	"sync"
	"time"

	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/hashutil"
)

// Node is a single entry in a Merkle clock.
type Node struct {
	Timestamp    float64                `json:"timestamp"`
	PeerID       string                 `json:"peer_id"`
	Payload      map[string]interface{} `json:"payload"`
	ParentHash   string                 `json:"parent_hash"`
	LogicalClock int64                  `json:"logical_clock"`
	Hash         string                 `json:"hash"`
}

// computeHash recomputes the node's hash from its five significant
// fields, independent of the Hash field already stored on it.
func computeHash(n Node) (string, error) {
	payload := n.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	canon, err := hashutil.CanonicalJSON(map[string]interface{}{
		"timestamp":     n.Timestamp,
		"peer_id":       n.PeerID,
		"payload":       payload,
		"parent_hash":   n.ParentHash,
		"logical_clock": n.LogicalClock,
	})
	if err != nil {
		return "", err
	}
	return hashutil.ContentHash(canon), nil
}

// Clock is a single peer's append-only hash-linked log.
type Clock struct {
	mu           sync.RWMutex
	peerID       string
	nodes        []Node
	headHash     string
	logicalClock int64
}

// New constructs an empty clock owned by peerID.
func New(peerID string) *Clock {
	return &Clock{peerID: peerID}
}

// nowSeconds is a var so tests can override it; production code leaves it
// at wall-clock time, matching the spec's note that the stored timestamp
// is informational and never used for ordering.
var nowSeconds = func() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Append adds a new event carrying payload, advancing the logical clock
// and the head hash. The whole increment-build-hash-append-swap sequence
// runs under the write lock, per §4.B's edge policy.
func (c *Clock) Append(payload map[string]interface{}) (Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logicalClock++
	node := Node{
		Timestamp:    nowSeconds(),
		PeerID:       c.peerID,
		Payload:      payload,
		ParentHash:   c.headHash,
		LogicalClock: c.logicalClock,
	}
	hash, err := computeHash(node)
	if err != nil {
		c.logicalClock--
		return Node{}, err
	}
	node.Hash = hash

	c.nodes = append(c.nodes, node)
	c.headHash = hash
	return node, nil
}

// Head returns the current head hash, or "" if the clock has no events.
func (c *Clock) Head() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headHash
}

// LogicalClock returns this peer's own append counter — not the length of
// Nodes(), which may include events merged in from other peers. This is
// the spec's "merkle_clock_height" semantics (§9).
func (c *Clock) LogicalClock() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logicalClock
}

// Nodes returns a copy of the full node list, in stored order.
func (c *Clock) Nodes() []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// PeerID returns the clock's owning peer.
func (c *Clock) PeerID() string {
	return c.peerID
}

// Verify recomputes every node's hash and checks every non-genesis node's
// parent_hash against the previous node's stored hash.
func (c *Clock) Verify() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return verifyNodes(c.nodes)
}

func verifyNodes(nodes []Node) bool {
	var prevHash string
	for i, n := range nodes {
		recomputed, err := computeHash(n)
		if err != nil || recomputed != n.Hash {
			return false
		}
		if i > 0 && n.ParentHash != prevHash {
			return false
		}
		prevHash = n.Hash
	}
	return true
}

// Merge folds every node from other not already present (by hash) into
// this clock, resorts the combined list by (logical_clock, timestamp),
// advances the head to the last node's hash, and raises this clock's
// logical counter to the max of the two. It never rewrites existing
// hashes or parent links.
func (c *Clock) Merge(other []Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(c.nodes))
	for _, n := range c.nodes {
		seen[n.Hash] = struct{}{}
	}

	merged := c.nodes
	var otherMax int64
	for _, n := range other {
		if n.LogicalClock > otherMax {
			otherMax = n.LogicalClock
		}
		if _, ok := seen[n.Hash]; ok {
			continue
		}
		merged = append(merged, n)
		seen[n.Hash] = struct{}{}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].LogicalClock != merged[j].LogicalClock {
			return merged[i].LogicalClock < merged[j].LogicalClock
		}
		return merged[i].Timestamp < merged[j].Timestamp
	})

	c.nodes = merged
	if len(merged) > 0 {
		c.headHash = merged[len(merged)-1].Hash
	}
	if otherMax > c.logicalClock {
		c.logicalClock = otherMax
	}
}

// Snapshot is the serializable form of a Clock, matching the snapshot
// schema in §6.
type Snapshot struct {
	PeerID       string  `json:"peer_id"`
	HeadHash     *string `json:"head_hash"`
	LogicalClock int64   `json:"logical_clock"`
	Nodes        []Node  `json:"nodes"`
}

// ToSnapshot renders the clock's current state for persistence.
func (c *Clock) ToSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var head *string
	if c.headHash != "" {
		h := c.headHash
		head = &h
	}
	nodes := make([]Node, len(c.nodes))
	copy(nodes, c.nodes)
	return Snapshot{
		PeerID:       c.peerID,
		HeadHash:     head,
		LogicalClock: c.logicalClock,
		Nodes:        nodes,
	}
}

// FromSnapshot rebuilds a Clock from a previously persisted Snapshot.
func FromSnapshot(s Snapshot) *Clock {
	c := &Clock{
		peerID:       s.PeerID,
		nodes:        append([]Node(nil), s.Nodes...),
		logicalClock: s.LogicalClock,
	}
	if s.HeadHash != nil {
		c.headHash = *s.HeadHash
	}
	return c
}
