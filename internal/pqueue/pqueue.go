// Package pqueue implements the mergeable min-priority-queue the
// assignment engine examines pending workflows through (§4.C). It follows
// classical Fibonacci-heap structure: a circular root list, lazy
// consolidation on extract-min, and cascading cuts on decrease-key, which
// together give O(1) insert/find-min/merge and O(log n) amortised
// extract-min / O(1) amortised decrease-priority.
package pqueue

import (
	"math"

	pkgerrors "github.com/endomorphosis/ipfs-kit-py-sub032/pkg/errors"
)

// ErrStaleHandle is returned when an operation is attempted on a handle
// whose element has already been extracted.
var ErrStaleHandle = pkgerrors.NewError().
	WithCode(pkgerrors.CodeStaleHandle).
	WithMessage("handle refers to an already-extracted element")

// ErrPriorityIncrease is returned by DecreasePriority when the requested
// priority is greater than the element's current priority.
var ErrPriorityIncrease = pkgerrors.NewError().
	WithCode(pkgerrors.InvalidArgument).
	WithMessage("decrease_priority must not increase priority")

type node struct {
	priority   float64
	workflowID string
	data       interface{}
	degree     int
	mark       bool
	removed    bool
	seq        int64 // insertion sequence, for deterministic FIFO tie-break

	parent *node
	child  *node
	left   *node
	right  *node
}

// Handle is an opaque reference to an element held in a Queue. It is only
// valid for the Queue that produced it and becomes stale once the element
// is extracted.
type Handle struct {
	n *node
}

// Queue is a Fibonacci-heap-backed min-priority-queue over workflow ids.
type Queue struct {
	min     *node
	size    int
	nextSeq int64
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Size returns the number of elements currently held. O(1).
func (q *Queue) Size() int {
	return q.size
}

// IsEmpty reports whether the queue holds no elements.
func (q *Queue) IsEmpty() bool {
	return q.size == 0
}

// Insert adds a new element and returns a handle to it. O(1).
func (q *Queue) Insert(priority float64, workflowID string, data interface{}) *Handle {
	n := &node{priority: priority, workflowID: workflowID, data: data, seq: q.nextSeq}
	q.nextSeq++
	n.left, n.right = n, n

	q.insertIntoRootList(n)
	if q.min == nil || n.priority < q.min.priority || (n.priority == q.min.priority && n.seq < q.min.seq) {
		q.min = n
	}
	q.size++
	return &Handle{n: n}
}

// FindMin returns the handle, priority and workflow id of the minimum
// element without removing it. O(1).
func (q *Queue) FindMin() (*Handle, float64, string, bool) {
	if q.min == nil {
		return nil, 0, "", false
	}
	return &Handle{n: q.min}, q.min.priority, q.min.workflowID, true
}

// ExtractMin removes and returns the minimum element. O(log n) amortised.
func (q *Queue) ExtractMin() (priority float64, workflowID string, data interface{}, ok bool) {
	z := q.min
	if z == nil {
		return 0, "", nil, false
	}

	// Move z's children into the root list, one at a time: each child must
	// be severed to a singleton before insertIntoRootList splices it in,
	// since splicing whole rings together would merge the entire child
	// ring on the first iteration and isolate nodes on every iteration
	// after that.
	if z.child != nil {
		head := z.child
		c := head
		for {
			next := c.right
			c.parent = nil
			c.left, c.right = c, c
			q.insertIntoRootList(c)
			if next == head {
				break
			}
			c = next
		}
	}

	q.removeFromRootList(z)
	z.removed = true

	if z == z.right {
		q.min = nil
	} else {
		q.min = z.right
		q.consolidate()
	}
	q.size--

	return z.priority, z.workflowID, z.data, true
}

// DecreasePriority lowers the priority of the element h refers to. It
// rejects any request that would increase the priority and returns
// ErrStaleHandle if the element has already been extracted. O(1)
// amortised.
func (q *Queue) DecreasePriority(h *Handle, newPriority float64) error {
	n := h.n
	if n.removed {
		return ErrStaleHandle
	}
	if newPriority > n.priority {
		return ErrPriorityIncrease
	}
	n.priority = newPriority

	p := n.parent
	if p != nil && (n.priority < p.priority || (n.priority == p.priority && n.seq < p.seq)) {
		q.cut(n, p)
		q.cascadingCut(p)
	}
	if n.priority < q.min.priority || (n.priority == q.min.priority && n.seq < q.min.seq) {
		q.min = n
	}
	return nil
}

// Remove deletes the element h refers to, regardless of its current
// priority. It is implemented with the standard Fibonacci-heap trick of
// decreasing the element to -Inf and immediately extracting the minimum,
// so it must not be interleaved with another pending Remove on a
// different handle. Returns ErrStaleHandle if h was already extracted.
func (q *Queue) Remove(h *Handle) error {
	if h.n.removed {
		return ErrStaleHandle
	}
	n := h.n
	n.priority = math.Inf(-1)

	p := n.parent
	if p != nil {
		q.cut(n, p)
		q.cascadingCut(p)
	}
	q.min = n

	_, _, _, ok := q.ExtractMin()
	if !ok {
		return ErrStaleHandle
	}
	return nil
}

// Merge absorbs other's elements into q, leaving other empty. O(1).
func (q *Queue) Merge(other *Queue) {
	if other == nil || other.min == nil {
		return
	}
	if q.min == nil {
		q.min = other.min
		q.size = other.size
		if other.nextSeq > q.nextSeq {
			q.nextSeq = other.nextSeq
		}
		other.min, other.size = nil, 0
		return
	}

	spliceRootLists(q.min, other.min)
	if other.min.priority < q.min.priority || (other.min.priority == q.min.priority && other.min.seq < q.min.seq) {
		q.min = other.min
	}
	q.size += other.size
	if other.nextSeq > q.nextSeq {
		q.nextSeq = other.nextSeq
	}
	other.min, other.size = nil, 0
}

func (q *Queue) insertIntoRootList(n *node) {
	if q.min == nil {
		n.left, n.right = n, n
		return
	}
	spliceRootLists(q.min, n)
}

// spliceRootLists merges the circular list containing a with the circular
// list containing b, without touching which of the two stays "min".
func spliceRootLists(a, b *node) {
	aRight := a.right
	bLeft := b.left

	a.right = b
	b.left = a
	bLeft.right = aRight
	aRight.left = bLeft
}

func (q *Queue) removeFromRootList(n *node) {
	if n.right == n {
		return
	}
	n.left.right = n.right
	n.right.left = n.left
}

func (q *Queue) consolidate() {
	maxDegree := int(math.Log2(float64(q.size+1))) + 2
	table := make([]*node, maxDegree+2)

	var roots []*node
	if q.min != nil {
		c := q.min
		for {
			roots = append(roots, c)
			c = c.right
			if c == q.min {
				break
			}
		}
	}

	for _, w := range roots {
		x := w
		d := x.degree
		for d < len(table) && table[d] != nil {
			y := table[d]
			if y.priority < x.priority || (y.priority == x.priority && y.seq < x.seq) {
				x, y = y, x
			}
			q.link(y, x)
			table[d] = nil
			d++
		}
		for d >= len(table) {
			table = append(table, nil)
		}
		table[d] = x
	}

	q.min = nil
	for _, n := range table {
		if n == nil {
			continue
		}
		n.left, n.right = n, n
		if q.min == nil {
			q.min = n
		} else {
			spliceRootLists(q.min, n)
			if n.priority < q.min.priority || (n.priority == q.min.priority && n.seq < q.min.seq) {
				q.min = n
			}
		}
	}
}

// link makes y a child of x, removing y from the root list.
func (q *Queue) link(y, x *node) {
	q.removeFromRootList(y)
	y.left, y.right = y, y
	y.parent = x
	if x.child == nil {
		x.child = y
	} else {
		spliceRootLists(x.child, y)
	}
	x.degree++
	y.mark = false
}

func (q *Queue) cut(n, parent *node) {
	if parent.child == n {
		if n.right == n {
			parent.child = nil
		} else {
			parent.child = n.right
		}
	}
	n.left.right = n.right
	n.right.left = n.left
	parent.degree--

	n.parent = nil
	n.left, n.right = n, n
	q.insertIntoRootList(n)
	n.mark = false
}

func (q *Queue) cascadingCut(n *node) {
	p := n.parent
	if p == nil {
		return
	}
	if !n.mark {
		n.mark = true
		return
	}
	q.cut(n, p)
	q.cascadingCut(p)
}
