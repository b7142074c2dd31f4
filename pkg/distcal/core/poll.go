package core

// Run blocks, dispatching every message delivered by the transport to
// Receive, until the transport's Listen channel is closed. Callers
// typically run this in its own goroutine for the lifetime of the node.
func (n *Node) Run() {
	for msg := range n.transport.Listen() {
		n.Receive(msg)
	}
}

// Close releases the node's transport. Safe to call once; what happens
// to later sends depends on the transport.
func (n *Node) Close() error {
	return n.transport.Close()
}
