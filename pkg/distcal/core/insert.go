package core

import (
	"math"

	"github.com/jabolina/distcal/pkg/distcal/types"
)

// ErrLocalConflict is returned by Insert when the candidate appointment
// conflicts with one already on the local calendar. No state changes:
// no clock bump, no log entry, no calendar mutation.
type ErrLocalConflict struct {
	Candidate types.Appointment
	Existing  types.Appointment
}

func (e *ErrLocalConflict) Error() string {
	return "appointment \"" + e.Candidate.Name + "\" conflicts with \"" + e.Existing.Name + "\""
}

// rejectedOrigin sentinel-tags the ER synthesized for a locally rejected
// insert: no real participant ever holds this id, so the deterministic
// tie-break (Origin compared first) always names it the loser regardless
// of Time, and deleting it is always a no-op, since it was never added to
// the calendar in the first place.
const rejectedOrigin types.NodeID = math.MaxInt

// rejectedRecord wraps a candidate that never made it into the log, so
// the conflict hook has something to compare against the record already
// occupying the slot it wanted.
func rejectedRecord(x types.Appointment) types.EventRecord {
	return types.EventRecord{Op: types.Insert, Origin: rejectedOrigin, Payload: x}
}

// Insert records a new local appointment, rejecting it if it conflicts
// with one already on the calendar. X must already be well-formed; the
// core does not validate appointment shape itself (that is the external
// appointment type's job), only appointment-conflict policy.
func (n *Node) Insert(x types.Appointment) error {
	n.mu.Lock()

	if existing, conflict := n.conflictPredicate(x, n.cal.Values()); conflict {
		existingER := n.origin[existing.Name]
		n.mu.Unlock()
		n.metrics.InsertRejected()
		n.metrics.ConflictDetected()
		if n.logger != nil {
			n.logger.Debugf("insert %q rejected: conflicts with %q", x.Name, existing.Name)
		}
		n.conflictHook(n, rejectedRecord(x), existingER)
		return &ErrLocalConflict{Candidate: x, Existing: existing}
	}

	t := n.bump()
	er := types.EventRecord{Op: types.Insert, Origin: n.id, Time: t, Payload: x}
	n.log.Append(er)
	n.cal.Set(x)
	n.origin[x.Name] = er
	n.metrics.InsertAccepted()
	n.metrics.LogSize(n.log.Len())
	if n.logger != nil {
		n.logger.Debugf("insert %s", er)
	}

	participants := otherParticipants(n.id, x.Participants)
	n.mu.Unlock()

	n.gossipTo(participants)
	return nil
}

// otherParticipants returns the appointment participants other than
// self, deduplicated, preserving first-seen order.
func otherParticipants(self types.NodeID, participants []types.NodeID) []types.NodeID {
	seen := make(map[types.NodeID]struct{}, len(participants))
	var out []types.NodeID
	for _, p := range participants {
		if p == self {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
