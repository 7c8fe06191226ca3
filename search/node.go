// Package search implements the best-first search core over ByteStateV1:
// a frontier ordered by an advisory scorer, a chain-hashed SearchTape, and
// a SearchGraph derived purely from that tape (spec.md §3, §4.6).
package search

import (
	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
)

// Node is one SearchNode (spec.md §3): `(state_id, parent_id,
// incoming_op_id, depth)`, with state_id the identity hash of the state it
// carries. The carried ByteStateV1 itself is not part of the persisted
// graph; it exists only to let the engine expand this node further.
type Node struct {
	StateID      hashing.Digest
	ParentID     hashing.Digest // "" marks the root node.
	IncomingOpID code32.Code32
	IncomingArgs []code32.Code32
	Depth        int

	state *bytestate.ByteStateV1
}

// newNode computes state_id and snapshots args defensively.
func newNode(state *bytestate.ByteStateV1, parentID hashing.Digest, opID code32.Code32, args []code32.Code32, depth int) (Node, error) {
	id, err := bytestate.IdentityHash(state)
	if err != nil {
		return Node{}, err
	}
	return Node{
		StateID:      id,
		ParentID:     parentID,
		IncomingOpID: opID,
		IncomingArgs: append([]code32.Code32(nil), args...),
		Depth:        depth,
		state:        state,
	}, nil
}

// State returns the ByteStateV1 this node represents, for expansion.
func (n Node) State() *bytestate.ByteStateV1 { return n.state }
