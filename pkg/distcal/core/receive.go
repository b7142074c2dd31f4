package core

import "github.com/jabolina/distcal/pkg/distcal/types"

type mergeConflict struct {
	incoming types.EventRecord
	existing types.EventRecord
}

// Receive merges an incoming message into local state: new events are
// folded into the log and calendar, the time table is joined, and the
// log is truncated down to what some peer still lacks. It does not
// advance the clock and does not itself produce a new ER: receiving is
// bookkeeping, not a causal event. Conflict resolution and its
// proactive re-gossip happen after the node's lock is released, since
// the default hook calls back into Delete/send.
func (n *Node) Receive(msg types.Message) {
	n.metrics.MessageReceived()

	n.mu.Lock()

	// 1. New events: NE <- {fR in NP_k | !hasRec(fR, i)}.
	var ne []types.EventRecord
	for _, fr := range msg.NewForPeer {
		if !n.hasRec(fr, n.id) {
			ne = append(ne, fr)
		}
	}

	// Snapshot pre-merge state for the "newly introduced" conflict check
	// and for resolving the origin ER of whatever was already present.
	preMerge := make(map[string]types.Appointment, n.cal.Len())
	preMergeList := n.cal.Values()
	for _, a := range preMergeList {
		preMerge[a.Name] = a
	}
	preMergeOrigin := make(map[string]types.EventRecord, len(n.origin))
	for name, er := range n.origin {
		preMergeOrigin[name] = er
	}

	// 2. Candidate appointments V <- values(C_i) ∪ {INSERT payloads in NE}.
	candidates := make(map[string]types.Appointment, len(preMerge))
	candidateOrigin := make(map[string]types.EventRecord, len(preMergeOrigin))
	for name, a := range preMerge {
		candidates[name] = a
		if er, ok := preMergeOrigin[name]; ok {
			candidateOrigin[name] = er
		}
	}
	for _, er := range ne {
		if er.Op == types.Insert {
			candidates[er.Payload.Name] = er.Payload
			candidateOrigin[er.Payload.Name] = er
		}
	}

	// 3. Tombstone filter: any DELETE in NE ∪ L_i removes its name,
	// finally — a later-arriving INSERT never resurrects it.
	for _, er := range ne {
		if er.Op == types.Delete {
			delete(candidates, er.Payload.Name)
			delete(candidateOrigin, er.Payload.Name)
		}
	}
	for _, er := range n.log.Entries() {
		if er.Op == types.Delete {
			delete(candidates, er.Payload.Name)
			delete(candidateOrigin, er.Payload.Name)
		}
	}

	// 4. Calendar rebuild.
	values := make([]types.Appointment, 0, len(candidates))
	for _, a := range candidates {
		values = append(values, a)
	}
	n.cal.Rebuild(values)
	n.origin = candidateOrigin

	// 5. Conflict detection on merge: only for appointments newly
	// introduced by this merge, checked against the pre-merge set.
	var conflicts []mergeConflict
	for name, a := range candidates {
		if _, wasPresent := preMerge[name]; wasPresent {
			continue
		}
		if existing, conflict := n.conflictPredicate(a, preMergeList); conflict {
			n.metrics.ConflictDetected()
			incomingER, hasIncoming := candidateOrigin[name]
			existingER, hasExisting := preMergeOrigin[existing.Name]
			if hasIncoming && hasExisting {
				conflicts = append(conflicts, mergeConflict{incoming: incomingER, existing: existingER})
			}
		}
	}

	// 6. Time-table join: direct, then indirect (commutative; the order
	// only matters for readability, not correctness).
	n.table.JoinDirect(n.id, msg.Table, msg.Sender)
	n.table.JoinIndirect(msg.Table)

	// 7. Log integration & truncation.
	for _, er := range ne {
		n.log.Append(er)
	}
	before := n.log.Len()
	n.log.Retain(func(er types.EventRecord) bool {
		for j := 0; j < n.n; j++ {
			if !n.hasRec(er, types.NodeID(j)) {
				return true
			}
		}
		return false
	})
	if n.log.Len() < before {
		n.metrics.LogTruncated()
	}
	n.metrics.LogSize(n.log.Len())

	if n.logger != nil {
		n.logger.Debugf("received from %d: %d new event(s), log now %d, calendar now %d", msg.Sender, len(ne), n.log.Len(), n.cal.Len())
	}

	n.mu.Unlock()

	for _, c := range conflicts {
		n.conflictHook(n, c.incoming, c.existing)
	}
}

// GossipAll triggers send(k) to every other participant, used after
// restoring from a snapshot so peers catch back up without waiting for
// the next locally-triggered insert/delete.
func (n *Node) GossipAll() {
	n.gossipAll()
}
