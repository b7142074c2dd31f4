package types_test

import (
	"testing"

	"github.com/jabolina/distcal/pkg/distcal/types"
)

func TestNewTimeOfDayRejectsOffGrid(t *testing.T) {
	if _, err := types.NewTimeOfDay(9, 15, false); err == nil {
		t.Fatalf("expected an error for a non-30-minute-grid minute")
	}
	if _, err := types.NewTimeOfDay(13, 0, false); err == nil {
		t.Fatalf("expected an error for an hour outside 1-12")
	}
}

func TestTimeOfDayString(t *testing.T) {
	noon, err := types.NewTimeOfDay(12, 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := noon.String(); got != "12:00pm" {
		t.Fatalf("expected 12:00pm, got %s", got)
	}

	midnight, err := types.NewTimeOfDay(12, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := midnight.String(); got != "12:00am" {
		t.Fatalf("expected 12:00am, got %s", got)
	}
}

func TestParseWeekdayCaseInsensitive(t *testing.T) {
	day, err := types.ParseWeekday("fRiDaY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day != types.Friday {
		t.Fatalf("expected Friday, got %v", day)
	}
	if _, err := types.ParseWeekday("Someday"); err == nil {
		t.Fatalf("expected an error for an unknown weekday")
	}
}

func TestAppointmentValidate(t *testing.T) {
	start, _ := types.NewTimeOfDay(9, 0, false)
	end, _ := types.NewTimeOfDay(10, 0, false)

	valid := types.Appointment{
		Name:         "standup",
		Participants: []types.NodeID{0},
		Day:          types.Monday,
		Start:        start,
		End:          end,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid appointment, got %v", err)
	}

	noName := valid
	noName.Name = "  "
	if err := noName.Validate(); err != types.ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	noParticipants := valid
	noParticipants.Participants = nil
	if err := noParticipants.Validate(); err != types.ErrNoParticipants {
		t.Fatalf("expected ErrNoParticipants, got %v", err)
	}

	badRange := valid
	badRange.Start, badRange.End = end, start
	if err := badRange.Validate(); err != types.ErrBadTimeRange {
		t.Fatalf("expected ErrBadTimeRange, got %v", err)
	}
}

func TestAppointmentOverlaps(t *testing.T) {
	s1, _ := types.NewTimeOfDay(9, 0, false)
	e1, _ := types.NewTimeOfDay(10, 0, false)
	s2, _ := types.NewTimeOfDay(9, 30, false)
	e2, _ := types.NewTimeOfDay(10, 30, false)

	a := types.Appointment{Name: "a", Participants: []types.NodeID{0, 1}, Day: types.Monday, Start: s1, End: e1}
	b := types.Appointment{Name: "b", Participants: []types.NodeID{1, 2}, Day: types.Monday, Start: s2, End: e2}

	if !a.Overlaps(b) {
		t.Fatalf("expected overlapping windows sharing participant 1 to conflict")
	}

	c := b
	c.Participants = []types.NodeID{2, 3}
	if a.Overlaps(c) {
		t.Fatalf("no shared participant must never conflict")
	}

	d := b
	d.Day = types.Tuesday
	if a.Overlaps(d) {
		t.Fatalf("different days must never conflict")
	}
}
