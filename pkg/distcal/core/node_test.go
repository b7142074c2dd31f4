package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jabolina/distcal/pkg/distcal/core"
	"github.com/jabolina/distcal/pkg/distcal/metrics"
	"github.com/jabolina/distcal/pkg/distcal/testutil"
	"github.com/jabolina/distcal/pkg/distcal/types"
)

// stubTransport satisfies core.Transport without ever delivering
// anything, for tests that only care about local state.
type stubTransport struct {
	ch chan types.Message
}

func newStubTransport() *stubTransport {
	return &stubTransport{ch: make(chan types.Message)}
}

func (s *stubTransport) Unicast(types.NodeID, types.Message) error { return nil }
func (s *stubTransport) Listen() <-chan types.Message              { return s.ch }
func (s *stubTransport) Close() error                              { return nil }

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

func lunch() types.Appointment {
	start, _ := types.NewTimeOfDay(12, 0, true)
	end, _ := types.NewTimeOfDay(1, 0, true)
	return types.Appointment{
		Name:         "lunch",
		Participants: []types.NodeID{0, 1},
		Day:          types.Friday,
		Start:        start,
		End:          end,
	}
}

// TestHappyPath covers a basic 2-node insert then gossip round.
func TestHappyPath(t *testing.T) {
	net := testutil.NewNetwork(2)
	defer net.Close()

	n0 := net.Node(0)
	appt := lunch()
	if err := n0.Insert(appt); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if got := n0.Clock(); got != 1 {
		t.Fatalf("expected clock 1, got %d", got)
	}
	if got := n0.Table().Get(0, 0); got != 1 {
		t.Fatalf("expected T[0][0]=1, got %d", got)
	}
	if got := n0.Log().Len(); got != 1 {
		t.Fatalf("expected 1 log entry, got %d", got)
	}

	n1 := net.Node(1)
	waitUntil(t, time.Second, func() bool {
		_, ok := n1.Calendar().Get("lunch")
		return ok
	})

	if got := n1.Clock(); got != 0 {
		t.Fatalf("receive must not advance the receiver's clock, got %d", got)
	}
	if got := n1.Log().Len(); got != 1 {
		t.Fatalf("expected 1 log entry at n1, got %d", got)
	}
}

// TestGossipTruncation covers a 3-node cluster where repeated gossip
// rounds eventually truncate every node's log to empty.
func TestGossipTruncation(t *testing.T) {
	net := testutil.NewNetwork(3)
	defer net.Close()

	n0 := net.Node(0)
	appt := types.Appointment{
		Name:         "standup",
		Participants: []types.NodeID{0},
		Day:          types.Monday,
		Start:        mustTime(t, 9, 0, false),
		End:          mustTime(t, 9, 30, false),
	}
	if err := n0.Insert(appt); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// The only participant is node 0, so the insert itself sends nothing:
	// N0 gossips to N1, then N1 gossips back its time table.
	n0.GossipAll()
	waitUntil(t, 2*time.Second, func() bool {
		return net.Node(1).Calendar().Has("standup")
	})
	net.Node(1).GossipAll()

	waitUntil(t, 2*time.Second, func() bool {
		return n0.Table().Get(1, 0) >= 1
	})

	for round := 0; round < 5; round++ {
		net.GossipAllPairs()
		time.Sleep(20 * time.Millisecond)
	}

	waitUntil(t, 2*time.Second, func() bool {
		for i := 0; i < 3; i++ {
			node := net.Node(types.NodeID(i))
			if node.Table().Get(types.NodeID(i), 0) < 1 {
				return false
			}
			if node.Log().Len() != 0 {
				return false
			}
		}
		return true
	})
}

// TestTombstoneWins covers a delete winning out over a concurrent
// re-insert the deleting node has not yet learned about.
func TestTombstoneWins(t *testing.T) {
	net := testutil.NewNetwork(2)
	defer net.Close()

	n0 := net.Node(0)
	n1 := net.Node(1)

	appt := lunch()
	if err := n0.Insert(appt); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		_, ok := n1.Calendar().Get("lunch")
		return ok
	})

	if err := n1.Delete("lunch"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	appt2 := appt
	appt2.Start = mustTime(t, 1, 0, true)
	appt2.End = mustTime(t, 2, 0, true)
	if err := n0.Insert(appt2); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	waitUntil(t, time.Second, func() bool {
		_, ok0 := n0.Calendar().Get("lunch")
		_, ok1 := n1.Calendar().Get("lunch")
		return !ok0 && !ok1
	})
}

// TestLocalConflict covers a local insert conflict: the conflict hook
// fires and the node's state is otherwise left untouched.
func TestLocalConflict(t *testing.T) {
	var mu sync.Mutex
	var hookCalls int
	hook := func(n *core.Node, incoming, existing types.EventRecord) {
		mu.Lock()
		hookCalls++
		mu.Unlock()
	}

	n0 := core.NewNode(core.Config{
		ID:           0,
		N:            2,
		Transport:    newStubTransport(),
		Metrics:      metrics.NoOp{},
		ConflictHook: hook,
	})

	a := types.Appointment{
		Name:         "A",
		Participants: []types.NodeID{0, 1},
		Day:          types.Friday,
		Start:        mustTime(t, 1, 0, false),
		End:          mustTime(t, 2, 0, false),
	}
	if err := n0.Insert(a); err != nil {
		t.Fatalf("insert A failed: %v", err)
	}

	clockBefore := n0.Clock()
	logBefore := n0.Log().Len()

	b := types.Appointment{
		Name:         "B",
		Participants: []types.NodeID{0, 1},
		Day:          types.Friday,
		Start:        mustTime(t, 1, 30, false),
		End:          mustTime(t, 2, 30, false),
	}
	err := n0.Insert(b)
	if err == nil {
		t.Fatalf("expected conflict error")
	}

	mu.Lock()
	calls := hookCalls
	mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected the conflict hook to fire once, fired %d times", calls)
	}

	if n0.Clock() != clockBefore {
		t.Fatalf("clock must not advance on rejected insert")
	}
	if n0.Log().Len() != logBefore {
		t.Fatalf("log must not grow on rejected insert")
	}
	if _, ok := n0.Calendar().Get("B"); ok {
		t.Fatalf("B must not appear in the calendar")
	}
}

// TestConcurrentNonConflicting covers concurrent, non-conflicting inserts
// from two different nodes converging to the same calendar.
func TestConcurrentNonConflicting(t *testing.T) {
	net := testutil.NewNetwork(2)
	defer net.Close()

	n0 := net.Node(0)
	n1 := net.Node(1)

	a := types.Appointment{
		Name:         "A",
		Participants: []types.NodeID{0, 1},
		Day:          types.Friday,
		Start:        mustTime(t, 1, 0, false),
		End:          mustTime(t, 2, 0, false),
	}
	b := types.Appointment{
		Name:         "B",
		Participants: []types.NodeID{0, 1},
		Day:          types.Monday,
		Start:        mustTime(t, 3, 0, false),
		End:          mustTime(t, 4, 0, false),
	}

	if err := n0.Insert(a); err != nil {
		t.Fatalf("insert A failed: %v", err)
	}
	if err := n1.Insert(b); err != nil {
		t.Fatalf("insert B failed: %v", err)
	}

	waitUntil(t, time.Second, func() bool {
		c0 := n0.Calendar()
		c1 := n1.Calendar()
		return c0.Has("A") && c0.Has("B") && c1.Has("A") && c1.Has("B")
	})
}

func mustTime(t *testing.T, hour, minute int, pm bool) types.TimeOfDay {
	t.Helper()
	tod, err := types.NewTimeOfDay(hour, minute, pm)
	if err != nil {
		t.Fatalf("bad time: %v", err)
	}
	return tod
}
