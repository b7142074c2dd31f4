package types_test

import (
	"encoding/json"
	"testing"

	"github.com/jabolina/distcal/pkg/distcal/types"
)

func TestTimeTableJoinDirect(t *testing.T) {
	self := types.NewTimeTable(3)
	self.Set(0, 0, 5)

	other := types.NewTimeTable(3)
	other.Set(1, 0, 3)
	other.Set(1, 1, 7)

	self.JoinDirect(0, other, 1)

	if got := self.Get(0, 0); got != 5 {
		t.Fatalf("direct join must not lower an entry already ahead, got %d", got)
	}
	if got := self.Get(0, 1); got != 7 {
		t.Fatalf("expected T[0][1]=7 pulled from the sender's own row, got %d", got)
	}
}

func TestTimeTableJoinIndirect(t *testing.T) {
	self := types.NewTimeTable(2)
	self.Set(1, 0, 1)

	other := types.NewTimeTable(2)
	other.Set(1, 0, 4)
	other.Set(1, 1, 2)

	self.JoinIndirect(other)

	if got := self.Get(1, 0); got != 4 {
		t.Fatalf("expected T[1][0]=4, got %d", got)
	}
	if got := self.Get(1, 1); got != 2 {
		t.Fatalf("expected T[1][1]=2, got %d", got)
	}
}

func TestTimeTableCloneIsIndependent(t *testing.T) {
	table := types.NewTimeTable(2)
	table.Set(0, 0, 9)

	clone := table.Clone()
	clone.Set(0, 0, 100)

	if table.Get(0, 0) != 9 {
		t.Fatalf("mutating the clone must not affect the original")
	}
}

func TestTimeTableJSONRoundTrip(t *testing.T) {
	table := types.NewTimeTable(2)
	table.Set(0, 1, 3)
	table.Set(1, 0, 4)

	data, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	restored := &types.TimeTable{}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !table.Equal(restored) {
		t.Fatalf("round-tripped table does not equal the original")
	}
}
