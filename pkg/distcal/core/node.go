// Package core implements the causal anti-entropy replication engine:
// the local event-log + calendar state machine, hasRec, partial-log
// construction on send, merge/tombstone-aware apply on receive, the
// time-table update rules, and log truncation.
package core

import (
	"sync"

	"github.com/jabolina/distcal/pkg/distcal/definition"
	"github.com/jabolina/distcal/pkg/distcal/metrics"
	"github.com/jabolina/distcal/pkg/distcal/types"
)

// Transport is the thin external collaborator the engine sends outbound
// messages through. Unicast must not block past the given message being
// handed off; Listen delivers inbound messages as they arrive.
type Transport interface {
	Unicast(to types.NodeID, m types.Message) error
	Listen() <-chan types.Message
	Close() error
}

// ConflictHook is invoked whenever a local or merged insert collides
// with an existing appointment. The baseline strategy (Node.conflictHook
// default) deletes the deterministic loser so every node converges on
// the same outcome without a network round trip.
type ConflictHook func(n *Node, incoming types.EventRecord, existing types.EventRecord)

// Node is a single participant's entire state: (c, T, L, C), all
// mutated under one mutex, plus the collaborators it is wired to. It
// exposes the four core operations: insert, delete, send, receive.
type Node struct {
	mu sync.Mutex

	id    types.NodeID
	n     int
	clock uint64
	table *types.TimeTable
	log   *types.EventLog
	cal   *types.Calendar

	// origin tracks, for every appointment currently in cal, the ER that
	// introduced it. It is bookkeeping private to the engine, letting the
	// conflict hook apply the deterministic "lower ER tuple wins"
	// tie-break on merge without re-scanning a log that truncation may
	// have already shrunk.
	origin map[string]types.EventRecord

	conflictPredicate types.ConflictPredicate
	conflictHook      ConflictHook

	transport Transport
	logger    definition.Logger
	metrics   metrics.Recorder
}

// Config bundles the construction-time dependencies of a Node.
type Config struct {
	ID                types.NodeID
	N                 int
	Transport         Transport
	Logger            definition.Logger
	Metrics           metrics.Recorder
	ConflictPredicate types.ConflictPredicate
	ConflictHook      ConflictHook
}

// NewNode constructs a node with an empty log/calendar and clock zero.
// If cfg.ConflictPredicate/ConflictHook are nil, the defaults
// (types.DefaultConflictPredicate, deterministic-loser-delete) are used.
func NewNode(cfg Config) *Node {
	predicate := cfg.ConflictPredicate
	if predicate == nil {
		predicate = types.DefaultConflictPredicate
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NoOp{}
	}
	node := &Node{
		id:                cfg.ID,
		n:                 cfg.N,
		table:             types.NewTimeTable(cfg.N),
		log:               types.NewEventLog(),
		cal:               types.NewCalendar(),
		origin:            make(map[string]types.EventRecord),
		conflictPredicate: predicate,
		transport:         cfg.Transport,
		logger:            cfg.Logger,
		metrics:           rec,
	}
	if cfg.ConflictHook != nil {
		node.conflictHook = cfg.ConflictHook
	} else {
		node.conflictHook = defaultConflictHook
	}
	return node
}

// ID returns the node's own identifier.
func (n *Node) ID() types.NodeID { return n.id }

// N returns the fixed participant count.
func (n *Node) N() int { return n.n }

// Snapshot returns a consistent, independently-owned copy of
// (clock, table, log, calendar) for the crash-recovery serializer. It
// takes the node's lock for the duration of the copy.
func (n *Node) Snapshot() (clock uint64, table *types.TimeTable, log *types.EventLog, cal *types.Calendar) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clock, n.table.Clone(), n.log.Clone(), n.cal.Clone()
}

// Restore overwrites the node's state wholesale, used when loading from
// a snapshot. It does not validate invariants beyond what the snapshot
// adapter already guaranteed on write.
func (n *Node) Restore(clock uint64, table *types.TimeTable, log *types.EventLog, cal *types.Calendar) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clock = clock
	n.table = table
	n.log = log
	n.cal = cal
	n.origin = rebuildOriginIndex(log, cal)
}

// rebuildOriginIndex recovers the origin bookkeeping for a
// freshly-restored node: for every appointment currently in cal, the
// most recent matching INSERT in log is its origin. Appointments whose
// origin ER was already truncated away before the snapshot was taken
// fall back to being absent from the index. A merge collision involving
// such an appointment is not passed to the conflict hook; on a local
// insert the hook receives a zero-value record for the existing side.
func rebuildOriginIndex(log *types.EventLog, cal *types.Calendar) map[string]types.EventRecord {
	index := make(map[string]types.EventRecord)
	for _, er := range log.Entries() {
		if er.Op != types.Insert {
			continue
		}
		if !cal.Has(er.Payload.Name) {
			continue
		}
		index[er.Payload.Name] = er
	}
	return index
}

// Calendar returns a defensive copy of the current calendar view, safe
// to read without holding the node's lock.
func (n *Node) Calendar() *types.Calendar {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cal.Clone()
}

// Clock returns the node's current logical clock value.
func (n *Node) Clock() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clock
}

// Table returns a defensive copy of the node's time table.
func (n *Node) Table() *types.TimeTable {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.table.Clone()
}

// Log returns a defensive copy of the node's event log.
func (n *Node) Log() *types.EventLog {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.log.Clone()
}

// bump increments the clock and T[i][i] together, the rule every
// ER-producing operator runs before constructing its ER. Callers must
// hold n.mu.
func (n *Node) bump() uint64 {
	n.clock++
	n.table.Set(n.id, n.id, n.clock)
	return n.clock
}
