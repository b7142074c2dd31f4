// Package config loads a node's startup configuration: its id, listen
// address, peer directory, snapshot path and metrics address.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/jabolina/distcal/pkg/distcal/transport"
	"github.com/jabolina/distcal/pkg/distcal/types"
)

// NodeConfig is the startup-time configuration for one node, loaded
// from a TOML file so the fixed node set and addresses live outside the
// binary.
type NodeConfig struct {
	ID           int            `toml:"id"`
	Listen       string         `toml:"listen"`
	Peers        map[string]string `toml:"peers"`
	SnapshotPath string         `toml:"snapshot_path"`
	MetricsAddr  string         `toml:"metrics_addr"`
}

// Load reads and parses a NodeConfig from path.
func Load(path string) (NodeConfig, error) {
	var cfg NodeConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return NodeConfig{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Directory converts the TOML-friendly string-keyed peer map into the
// transport package's NodeID-keyed Directory, and reports N as one more
// than the highest node id it names (including self).
func (c NodeConfig) Directory() (transport.Directory, int, error) {
	dir := make(transport.Directory, len(c.Peers))
	maxID := c.ID
	for idStr, addr := range c.Peers {
		var id int
		if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
			return nil, 0, fmt.Errorf("peer id %q is not an integer: %w", idStr, err)
		}
		dir[types.NodeID(id)] = addr
		if id > maxID {
			maxID = id
		}
	}
	return dir, maxID + 1, nil
}
