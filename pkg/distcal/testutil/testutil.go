// Package testutil provides an in-memory Transport double and a small
// multi-node cluster harness, so replication-engine tests can drive
// convergence scenarios deterministically without real sockets.
package testutil

import (
	"sync"

	"github.com/jabolina/distcal/pkg/distcal/core"
	"github.com/jabolina/distcal/pkg/distcal/metrics"
	"github.com/jabolina/distcal/pkg/distcal/types"
)

// MemoryTransport delivers messages directly between Node instances
// registered on the same Network, with no serialization and no
// simulated loss except on links blocked with Partition below.
type MemoryTransport struct {
	self    types.NodeID
	network *Network
	inbox   chan types.Message

	mu      sync.Mutex
	blocked map[types.NodeID]bool
}

func newMemoryTransport(self types.NodeID, network *Network) *MemoryTransport {
	return &MemoryTransport{
		self:    self,
		network: network,
		inbox:   make(chan types.Message, 256),
		blocked: make(map[types.NodeID]bool),
	}
}

// Unicast hands m directly to the target's inbox, unless the link has
// been blocked by Partition.
func (m *MemoryTransport) Unicast(to types.NodeID, msg types.Message) error {
	m.mu.Lock()
	blocked := m.blocked[to]
	m.mu.Unlock()
	if blocked {
		return nil
	}
	target, ok := m.network.transport(to)
	if !ok {
		return nil
	}
	defer func() {
		// A send racing the target's Close lands on a closed inbox;
		// the message is dropped instead of panicking the sender.
		_ = recover()
	}()
	target.inbox <- msg
	return nil
}

// Listen returns the channel this node's transport delivers on.
func (m *MemoryTransport) Listen() <-chan types.Message {
	return m.inbox
}

// Close closes the inbox; further sends to it are dropped.
func (m *MemoryTransport) Close() error {
	close(m.inbox)
	return nil
}

// Partition stops (or resumes, with blocked=false) delivery from this
// node to peer, simulating a network split without tearing the
// transport down.
func (m *MemoryTransport) Partition(peer types.NodeID, blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[peer] = blocked
}

// Network is a set of in-process nodes wired together by
// MemoryTransport, used to build deterministic multi-node scenarios.
type Network struct {
	mu    sync.Mutex
	nodes map[types.NodeID]*core.Node
	trans map[types.NodeID]*MemoryTransport
}

// NewNetwork builds an n-node cluster, each Node freshly constructed
// with its own MemoryTransport, and starts each node's Run loop.
func NewNetwork(n int) *Network {
	net := &Network{
		nodes: make(map[types.NodeID]*core.Node),
		trans: make(map[types.NodeID]*MemoryTransport),
	}
	for i := 0; i < n; i++ {
		id := types.NodeID(i)
		mt := newMemoryTransport(id, net)
		net.trans[id] = mt
		node := core.NewNode(core.Config{
			ID:        id,
			N:         n,
			Transport: mt,
			Metrics:   metrics.NoOp{},
		})
		net.nodes[id] = node
		go node.Run()
	}
	return net
}

func (net *Network) transport(id types.NodeID) (*MemoryTransport, bool) {
	net.mu.Lock()
	defer net.mu.Unlock()
	t, ok := net.trans[id]
	return t, ok
}

// Node returns the node registered under id.
func (net *Network) Node(id types.NodeID) *core.Node {
	net.mu.Lock()
	defer net.mu.Unlock()
	return net.nodes[id]
}

// Transport returns the MemoryTransport registered under id, e.g. to
// call Partition on it.
func (net *Network) Transport(id types.NodeID) *MemoryTransport {
	net.mu.Lock()
	defer net.mu.Unlock()
	return net.trans[id]
}

// Close shuts down every node's transport.
func (net *Network) Close() {
	net.mu.Lock()
	defer net.mu.Unlock()
	for _, t := range net.trans {
		t.Close()
	}
}

// GossipAllPairs triggers every node to send to every other node, the
// kind of routine anti-entropy round a cluster relies on to reach
// quiescence.
func (net *Network) GossipAllPairs() {
	net.mu.Lock()
	nodes := make([]*core.Node, 0, len(net.nodes))
	for _, node := range net.nodes {
		nodes = append(nodes, node)
	}
	net.mu.Unlock()
	for _, node := range nodes {
		node.GossipAll()
	}
}
