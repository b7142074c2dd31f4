package types

import "encoding/json"

// NodeID identifies one of the N fixed participants, in the range [0, N).
type NodeID int

// TimeTable is the N×N matrix kept by every node. Entry T[k][j] means
// "this node knows that node k has learned of all events originated at
// node j up to and including local-time T[k][j] at j".
//
// Rows are never required to dominate one another: T[i][j] >= T[k][j]
// does not need to hold for arbitrary k, since node i may know less
// about j than k does.
type TimeTable struct {
	n    int
	rows [][]uint64
}

// NewTimeTable allocates a zeroed N×N table.
func NewTimeTable(n int) *TimeTable {
	rows := make([][]uint64, n)
	for i := range rows {
		rows[i] = make([]uint64, n)
	}
	return &TimeTable{n: n, rows: rows}
}

// N returns the participant count this table was built for.
func (t *TimeTable) N() int {
	return t.n
}

// Get returns T[k][j].
func (t *TimeTable) Get(k, j NodeID) uint64 {
	return t.rows[k][j]
}

// Set assigns T[k][j] = v. Callers are responsible for only ever raising
// entries, monotonicity is enforced by the replication engine, not here.
func (t *TimeTable) Set(k, j NodeID, v uint64) {
	t.rows[k][j] = v
}

// Row returns a defensive copy of row k.
func (t *TimeTable) Row(k NodeID) []uint64 {
	row := make([]uint64, t.n)
	copy(row, t.rows[k])
	return row
}

// Clone returns a deep, independent copy of the table. Used by send(k) to
// snapshot state before handing it to the transport.
func (t *TimeTable) Clone() *TimeTable {
	clone := NewTimeTable(t.n)
	for i := range t.rows {
		copy(clone.rows[i], t.rows[i])
	}
	return clone
}

// JoinDirect applies T[i][j] <- max(T[i][j], other[k][j]) for all j, where
// i is the identity of the receiving node and k is the sender's id
// embedded in other. This is the "direct" half of the time-table join in
// receive(m).
func (t *TimeTable) JoinDirect(self NodeID, other *TimeTable, sender NodeID) {
	for j := 0; j < t.n; j++ {
		if v := other.Get(sender, NodeID(j)); v > t.rows[self][j] {
			t.rows[self][j] = v
		}
	}
}

// JoinIndirect applies T[I][J] <- max(T[I][J], other[I][J]) for every
// I, J. This is the "indirect" half of the time-table join in receive(m);
// the union is commutative, so running it after JoinDirect only matters
// for readability, not correctness.
func (t *TimeTable) JoinIndirect(other *TimeTable) {
	for i := 0; i < t.n; i++ {
		for j := 0; j < t.n; j++ {
			if v := other.rows[i][j]; v > t.rows[i][j] {
				t.rows[i][j] = v
			}
		}
	}
}

type timeTableWire struct {
	N    int      `json:"n"`
	Rows [][]uint64 `json:"rows"`
}

// MarshalJSON implements json.Marshaler over the table's unexported rows,
// so Message can carry a TimeTable on the wire without exposing mutable
// internals to callers.
func (t *TimeTable) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(timeTableWire{N: t.n, Rows: t.rows})
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (t *TimeTable) UnmarshalJSON(data []byte) error {
	var wire timeTableWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	t.n = wire.N
	t.rows = wire.Rows
	return nil
}

// Equal reports whether two tables hold identical entries. Used by tests.
func (t *TimeTable) Equal(other *TimeTable) bool {
	if t.n != other.n {
		return false
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if t.rows[i][j] != other.rows[i][j] {
				return false
			}
		}
	}
	return true
}
