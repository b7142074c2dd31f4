package core

import "github.com/jabolina/distcal/pkg/distcal/types"

// hasRec answers "does this node know that peer k has seen er?". It is
// pure and side-effect free: used to build a minimal partial log for a
// peer, to decide whether an incoming ER is new, and to decide whether
// an ER is safe to discard from the local log. Callers must hold n.mu.
func (n *Node) hasRec(er types.EventRecord, k types.NodeID) bool {
	return n.table.Get(k, er.Origin) >= er.Time
}
