package types

// ConflictPredicate decides whether candidate conflicts with any
// appointment already present in the calendar. It must be pure: no
// network round trips, no mutation, referentially transparent on its
// inputs, since the core invokes it both for local inserts and for
// appointments merged in from a remote peer.
type ConflictPredicate func(candidate Appointment, existing []Appointment) (Appointment, bool)

// DefaultConflictPredicate conflicts candidate against existing using
// Appointment.Overlaps, returning the first existing appointment that
// overlaps it, if any.
func DefaultConflictPredicate(candidate Appointment, existing []Appointment) (Appointment, bool) {
	for _, other := range existing {
		if other.Name == candidate.Name {
			continue
		}
		if candidate.Overlaps(other) {
			return other, true
		}
	}
	return Appointment{}, false
}

// Loser returns the ER that a deterministic, cluster-wide conflict
// resolution must delete: the one with the greater (origin, time) tuple,
// so every node independently reaches the same verdict without a
// network round trip.
func Loser(a, b EventRecord) EventRecord {
	if a.Origin != b.Origin {
		if a.Origin > b.Origin {
			return a
		}
		return b
	}
	if a.Time > b.Time {
		return a
	}
	return b
}
