package core

import (
	"github.com/jabolina/distcal/pkg/distcal/helper"
	"github.com/jabolina/distcal/pkg/distcal/types"
)

// send builds the minimal partial log for peer k, snapshots the time
// table by value, and hands the message to the transport. send is
// read-only with respect to local state; the lock is only held long
// enough to take the snapshot.
func (n *Node) send(k types.NodeID) {
	n.mu.Lock()
	var np []types.EventRecord
	for _, er := range n.log.Entries() {
		if !n.hasRec(er, k) {
			np = append(np, er)
		}
	}
	table := n.table.Clone()
	self := n.id
	n.mu.Unlock()

	msg := types.Message{NewForPeer: np, Table: table, Sender: self}
	if err := n.transport.Unicast(k, msg); err != nil {
		if n.logger != nil {
			n.logger.Warnf("send to %d failed: %v", k, err)
		}
		return
	}
	n.metrics.MessageSent()
	if n.logger != nil {
		n.logger.Debugf("sent to %d: %d new event(s), local high-water %d", k, len(np), helper.MaxValue(table.Row(self)))
	}
}

// gossipTo spawns one send(k) per peer in the given list, so insert and
// delete never block the caller on outbound I/O.
func (n *Node) gossipTo(peers []types.NodeID) {
	for _, p := range peers {
		p := p
		go n.send(p)
	}
}

// gossipAll spawns send(k) for every participant other than self. It
// backs GossipAll, the routine round that does not wait for a local
// insert or delete to trigger a send.
func (n *Node) gossipAll() {
	n.mu.Lock()
	self, total := n.id, n.n
	n.mu.Unlock()
	for k := 0; k < total; k++ {
		if types.NodeID(k) == self {
			continue
		}
		go n.send(types.NodeID(k))
	}
}
