package transport

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/hashicorp/go-version"
	"github.com/jabolina/distcal/pkg/distcal/definition"
	"github.com/jabolina/distcal/pkg/distcal/types"
)

var (
	// ErrUnknownPeer is returned when asked to dial a node id absent
	// from the configured Directory.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrIncompatibleVersion is returned (and the connection dropped)
	// when a peer advertises a protocol version this node can't speak.
	ErrIncompatibleVersion = errors.New("incompatible protocol version")
	// ErrCorruptMessage is returned when a frame can't be decoded.
	ErrCorruptMessage = errors.New("corrupt inbound message")

	// compatible is the version constraint this build accepts from a
	// peer's handshake line.
	compatible = version.Must(version.NewConstraint(">= 1.0.0, < 2.0.0"))
)

const maxFrameSize = 64 << 20 // 64MiB, generous upper bound on one gossip message.

// TCPTransport implements core.Transport (and transport.Transport) over
// plain TCP: one listener accepting framed connections, and a
// lazily-dialed, cached outbound connection per peer. Framing is a
// 4-byte big-endian length prefix followed by a JSON body, matching the
// shape the wire message already committed to.
type TCPTransport struct {
	self      types.NodeID
	directory Directory
	logger    definition.Logger

	listener net.Listener
	producer chan types.Message

	mu    sync.Mutex
	conns map[types.NodeID]net.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// NewTCPTransport binds listenAddr and starts accepting connections. The
// directory maps every peer id (including, harmlessly, self) to its
// dial address.
func NewTCPTransport(self types.NodeID, listenAddr string, directory Directory, logger definition.Logger) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	t := &TCPTransport{
		self:      self,
		directory: directory,
		logger:    logger,
		listener:  ln,
		producer:  make(chan types.Message, 256),
		conns:     make(map[types.NodeID]net.Conn),
		done:      make(chan struct{}),
	}
	go t.accept()
	return t, nil
}

// LocalAddress returns the address the listener is actually bound to,
// useful when listenAddr used port 0.
func (t *TCPTransport) LocalAddress() string {
	return t.listener.Addr().String()
}

// SetDirectory replaces the peer directory used by outbound dials.
// Useful when peers bind ephemeral ports (listenAddr ":0") and their
// addresses are only known after every transport has started.
func (t *TCPTransport) SetDirectory(directory Directory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.directory = directory
}

func (t *TCPTransport) accept() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				if t.logger != nil {
					t.logger.Warnf("accept failed: %v", err)
				}
				return
			}
		}
		go t.serve(conn)
	}
}

// serve reads the one-line version handshake, then frames for the
// lifetime of the connection, dropping the connection on any corrupt
// frame rather than risking a misinterpreted wire format.
func (t *TCPTransport) serve(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	peerVersion, err := reader.ReadString('\n')
	if err != nil {
		if t.logger != nil {
			t.logger.Warnf("handshake read failed from %s: %v", conn.RemoteAddr(), err)
		}
		return
	}
	if err := checkVersion(peerVersion); err != nil {
		if t.logger != nil {
			t.logger.Warnf("rejecting %s: %v", conn.RemoteAddr(), err)
		}
		return
	}

	for {
		msg, err := readFrame(reader)
		if err != nil {
			if err != io.EOF && t.logger != nil {
				t.logger.Warnf("dropping connection from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
		select {
		case t.producer <- msg:
		case <-t.done:
			return
		}
	}
}

func checkVersion(line string) error {
	trimmed := trimNewline(line)
	v, err := version.NewVersion(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrIncompatibleVersion, trimmed)
	}
	if !compatible.Check(v) {
		return fmt.Errorf("%w: peer speaks %s", ErrIncompatibleVersion, trimmed)
	}
	return nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Unicast sends m to peer to, dialing and caching a connection on
// demand. A failed send invalidates the cached connection but otherwise
// has no effect on local state, per the error handling design: the peer
// will catch up on the next gossip round.
func (t *TCPTransport) Unicast(to types.NodeID, m types.Message) error {
	conn, err := t.connFor(to)
	if err != nil {
		return err
	}
	if err := writeFrame(conn, m); err != nil {
		t.invalidate(to)
		return fmt.Errorf("unicast to %d: %w", to, err)
	}
	return nil
}

func (t *TCPTransport) connFor(to types.NodeID) (net.Conn, error) {
	t.mu.Lock()
	if conn, ok := t.conns[to]; ok {
		t.mu.Unlock()
		return conn, nil
	}
	directory := t.directory
	t.mu.Unlock()

	addr, err := directory.Endpoint(to)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %d at %s: %w", to, addr, err)
	}
	if _, err := io.WriteString(conn, ProtocolVersion+"\n"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake to %d: %w", to, err)
	}

	t.mu.Lock()
	t.conns[to] = conn
	t.mu.Unlock()
	return conn, nil
}

func (t *TCPTransport) invalidate(to types.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if conn, ok := t.conns[to]; ok {
		conn.Close()
		delete(t.conns, to)
	}
}

// Listen returns the channel inbound messages are delivered on.
func (t *TCPTransport) Listen() <-chan types.Message {
	return t.producer
}

// Close stops accepting connections and closes every cached outbound
// connection.
func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.listener.Close()
		t.mu.Lock()
		for id, conn := range t.conns {
			conn.Close()
			delete(t.conns, id)
		}
		t.mu.Unlock()
		close(t.producer)
	})
	return err
}

func writeFrame(w io.Writer, m types.Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("message too large: %d bytes", len(body))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func readFrame(r io.Reader) (types.Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return types.Message{}, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return types.Message{}, fmt.Errorf("%w: frame of %d bytes exceeds limit", ErrCorruptMessage, size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return types.Message{}, err
	}
	var msg types.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return types.Message{}, fmt.Errorf("%w: %v", ErrCorruptMessage, err)
	}
	return msg, nil
}
