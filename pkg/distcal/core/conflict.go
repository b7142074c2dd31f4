package core

import "github.com/jabolina/distcal/pkg/distcal/types"

// defaultConflictHook is the baseline conflict-resolution strategy:
// delete the deterministic loser (greater (origin, time) tuple) so
// every node that independently detects the same collision deletes the
// same appointment, converging without a network round trip.
func defaultConflictHook(n *Node, incoming, existing types.EventRecord) {
	loser := types.Loser(incoming, existing)
	if n.logger != nil {
		n.logger.Infof("conflict between %q and %q, deleting %q", incoming.Payload.Name, existing.Payload.Name, loser.Payload.Name)
	}
	_ = n.Delete(loser.Payload.Name)
}
