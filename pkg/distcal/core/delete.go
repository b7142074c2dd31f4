package core

import "github.com/jabolina/distcal/pkg/distcal/types"

// Delete removes a local appointment. Deleting one the local calendar
// does not know about is a silent no-op (no clock bump, no log entry).
// Otherwise the full value is resolved from the calendar so the
// resulting tombstone carries the complete payload.
func (n *Node) Delete(name string) error {
	n.mu.Lock()

	x, ok := n.cal.Get(name)
	if !ok {
		n.mu.Unlock()
		if n.logger != nil {
			n.logger.Debugf("delete %q: no such appointment, no-op", name)
		}
		return nil
	}

	t := n.bump()
	er := types.EventRecord{Op: types.Delete, Origin: n.id, Time: t, Payload: x}
	n.log.Append(er)
	n.cal.Remove(name)
	delete(n.origin, name)
	n.metrics.DeleteApplied()
	n.metrics.LogSize(n.log.Len())
	if n.logger != nil {
		n.logger.Debugf("delete %s", er)
	}

	participants := otherParticipants(n.id, x.Participants)
	n.mu.Unlock()

	n.gossipTo(participants)
	return nil
}
