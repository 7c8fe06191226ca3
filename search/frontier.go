package search

import "container/heap"

// frontierEntry is one queued candidate: a node plus the scorer's ordering
// key and the monotonic insertion sequence used to break ties (spec.md
// §4.6 "binary heap keyed by (score, insertion_seq) with deterministic
// tie-break on insertion order").
type frontierEntry struct {
	node  Node
	score float64
	seq   int64
	index int // maintained by container/heap, used for Remove/update.
}

// frontierHeap implements heap.Interface as a min-heap ordered first by
// score ascending, then by insertion sequence ascending — the same shape
// as the teacher pack's container/heap-based tipHeap (txpool priority
// queue: primary key descending, secondary key (nonce) ascending as a
// deterministic tie-break), adapted here to ascending score since lower
// score pops first.
type frontierHeap []*frontierEntry

func (h frontierHeap) Len() int { return len(h) }

func (h frontierHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].seq < h[j].seq
}

func (h frontierHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *frontierHeap) Push(x any) {
	e := x.(*frontierEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Frontier is the best-first search queue: a binary heap over frontierHeap
// plus the monotonic sequence counter and peak-size tracking feeding
// HealthMetrics.frontier_peak (spec.md §4.6).
type Frontier struct {
	h       frontierHeap
	nextSeq int64
	peak    int
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	f := &Frontier{}
	heap.Init(&f.h)
	return f
}

// Push enqueues node with the given score, assigning it the next insertion
// sequence number for tie-breaking.
func (f *Frontier) Push(node Node, score float64) {
	heap.Push(&f.h, &frontierEntry{node: node, score: score, seq: f.nextSeq})
	f.nextSeq++
	if len(f.h) > f.peak {
		f.peak = len(f.h)
	}
}

// Pop removes and returns the lowest-(score,seq) node. ok is false if the
// frontier is empty.
func (f *Frontier) Pop() (node Node, ok bool) {
	if len(f.h) == 0 {
		return Node{}, false
	}
	e := heap.Pop(&f.h).(*frontierEntry)
	return e.node, true
}

// Len reports the current frontier size.
func (f *Frontier) Len() int { return len(f.h) }

// Peak reports the largest size the frontier has ever reached.
func (f *Frontier) Peak() int { return f.peak }
