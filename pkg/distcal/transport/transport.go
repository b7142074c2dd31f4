// Package transport provides the TCP transport and peer directory the
// replication engine treats as thin external collaborators: a
// byte-stream that preserves message boundaries and tolerates either
// at-most-once or at-least-once delivery, and a static id-to-endpoint
// map consumed only by send.
package transport

import "github.com/jabolina/distcal/pkg/distcal/types"

// ProtocolVersion is advertised on every new outbound connection and
// checked by the acceptor with go-version, so a node refuses to talk to
// an incompatible peer instead of misinterpreting its wire format.
const ProtocolVersion = "1.0.0"

// Directory is the static node id to host:port map, consumed only by
// the transport's outbound dialer.
type Directory map[types.NodeID]string

// Transport is the interface the replication engine is wired against.
// Distinct from core.Transport only in name, the two are structurally
// identical so TCPTransport satisfies either without an import cycle.
type Transport interface {
	Unicast(to types.NodeID, m types.Message) error
	Listen() <-chan types.Message
	Close() error
}
