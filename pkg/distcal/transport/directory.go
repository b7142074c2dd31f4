package transport

import (
	"fmt"

	"github.com/jabolina/distcal/pkg/distcal/types"
)

// Endpoint resolves a peer id to its dial address, erroring if the peer
// is not a member of the fixed node set this directory was built for.
func (d Directory) Endpoint(id types.NodeID) (string, error) {
	addr, ok := d[id]
	if !ok {
		return "", fmt.Errorf("%w: node %d", ErrUnknownPeer, id)
	}
	return addr, nil
}
