package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"measnet/internal/cli"
	"measnet/internal/config"
	"measnet/internal/emulator"
	"measnet/internal/topology"
)

// loadTopology picks the file named on the command line, then the
// configured one, then the assignment topology.
func loadTopology(cfg *config.Config, args []string) (*topology.Topology, error) {
	path := cfg.Topology
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return topology.Assignment(), nil
	}
	return topology.LoadFile(path)
}

func cmdRun(args []string) error {
	cfg := loadConfig()
	topo, err := loadTopology(cfg, args)
	if err != nil {
		return err
	}
	if !topo.Graph().Connected() {
		glog.Warningf("topology %s is not connected, some hosts cannot reach each other", topo.Name)
	}

	net, err := emulator.New(topo, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// Ctrl-C while building aborts and tears down; the CLI handles it after.
	startCtx, stopStart := signal.NotifyContext(ctx, os.Interrupt)
	err = net.Start(startCtx)
	stopStart()
	if err != nil {
		return fmt.Errorf("start network: %w", err)
	}

	fmt.Println("*** Starting CLI:")
	runErr := cli.New(net, os.Stdin, os.Stdout).Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, net.Stop())
}
