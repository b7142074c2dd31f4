// Command distcal-node runs one replicated-calendar peer: it loads its
// configuration, optionally restores from a crash snapshot, starts the
// TCP transport and metrics server, and then drives the node from a
// stdin REPL using the node's command language.
package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"

	"github.com/jabolina/distcal/pkg/distcal/command"
	"github.com/jabolina/distcal/pkg/distcal/config"
	"github.com/jabolina/distcal/pkg/distcal/core"
	"github.com/jabolina/distcal/pkg/distcal/definition"
	"github.com/jabolina/distcal/pkg/distcal/metrics"
	"github.com/jabolina/distcal/pkg/distcal/snapshot"
	"github.com/jabolina/distcal/pkg/distcal/transport"
	"github.com/jabolina/distcal/pkg/distcal/types"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var (
	configPath = kingpin.Flag("config", "Path to the node's TOML configuration file.").Required().String()
	restore    = kingpin.Flag("restore", "Restore node state from its snapshot file before starting.").Bool()
	debug      = kingpin.Flag("debug", "Enable debug-level logging.").Bool()
)

func main() {
	kingpin.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := definition.NewDefaultLogger(fmt.Sprintf("node-%d", cfg.ID))
	logger.ToggleDebug(*debug)

	directory, n, err := cfg.Directory()
	if err != nil {
		logger.Fatalf("bad peer directory: %v", err)
	}

	tcp, err := transport.NewTCPTransport(types.NodeID(cfg.ID), cfg.Listen, directory, logger)
	if err != nil {
		logger.Fatalf("failed to start transport: %v", err)
	}

	var recorder metrics.Recorder = metrics.NoOp{}
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(fmt.Sprintf("%d", cfg.ID))
		recorder = prom
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", prom.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warnf("metrics server stopped: %v", err)
			}
		}()
	}

	node := core.NewNode(core.Config{
		ID:        types.NodeID(cfg.ID),
		N:         n,
		Transport: tcp,
		Logger:    logger,
		Metrics:   recorder,
	})

	store := snapshot.NewStore(cfg.SnapshotPath)
	if *restore {
		state, ok, err := store.Load()
		if err != nil {
			logger.Errorf("snapshot restore failed, continuing fresh: %v", err)
		} else if ok {
			log, cal := snapshot.ToNode(state)
			node.Restore(state.Clock, state.Table, log, cal)
			logger.Infof("restored from snapshot: clock=%d calendar=%d entries", state.Clock, cal.Len())
			node.GossipAll()
		}
	}

	go node.Run()
	logger.Infof("node %d listening on %s", cfg.ID, tcp.LocalAddress())

	runREPL(node, store, logger)
}

func runREPL(node *core.Node, store *snapshot.Store, logger definition.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		cmd, err := command.Parse(line)
		if err != nil {
			logger.Errorf("internal parser error: %v", err)
			continue
		}

		switch cmd.Kind {
		case command.Malformed:
			fmt.Fprintf(os.Stderr, "malformed command: %s\n", cmd.Reason)

		case command.Schedule:
			if err := node.Insert(cmd.Appointment); err != nil {
				fmt.Fprintf(os.Stderr, "schedule failed: %v\n", err)
			}

		case command.Cancel:
			if err := node.Delete(cmd.Name); err != nil {
				fmt.Fprintf(os.Stderr, "cancel failed: %v\n", err)
			}

		case command.Fail:
			saveSnapshot(node, store, logger)
			logger.Warnf("node %d simulating crash", node.ID())
			os.Exit(1)

		case command.Quit:
			saveSnapshot(node, store, logger)
			node.Close()
			os.Exit(0)

		case command.Log:
			dumpLog(node, logger)
		}
	}
}

func saveSnapshot(node *core.Node, store *snapshot.Store, logger definition.Logger) {
	clock, table, log, cal := node.Snapshot()
	state := snapshot.FromNode(node.ID(), node.N(), clock, table, log, cal)
	if err := store.Save(state); err != nil {
		logger.Errorf("snapshot save failed: %v", err)
	}
}

func dumpLog(node *core.Node, logger definition.Logger) {
	clock, table, log, cal := node.Snapshot()
	fmt.Printf("%s clock=%d log_size=%d calendar_size=%d\n", definition.LevelColor("INFO"), clock, log.Len(), cal.Len())
	for k := 0; k < table.N(); k++ {
		logger.Infof("  T[%d]=%v", k, table.Row(types.NodeID(k)))
	}
	for _, a := range cal.Values() {
		logger.Infof("  %s: %s %s-%s participants=%v", a.Name, a.Day, a.Start, a.End, a.Participants)
	}
	for _, er := range log.Entries() {
		logger.Infof("  %s", er)
	}
}
