// Command assignment builds the five-host measurement topology, opens the
// interactive CLI on it and tears everything down when the CLI exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"measnet/internal/cli"
	"measnet/internal/config"
	"measnet/internal/container/domain"
	"measnet/internal/emulator"
	"measnet/internal/topology"
)

func main() {
	domain.HandleNsenter()

	configPath := flag.String("config", "measnet.env", "optional env-style config file")
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load(*configPath)
	if err != nil {
		glog.Fatalf("load config: %v", err)
	}
	cfg.Log()

	net, err := emulator.New(topology.Assignment(), cfg,
		emulator.WithAutoSetMacs(true),
		emulator.WithAutoStaticArp(true),
	)
	if err != nil {
		glog.Fatalf("create network: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// Ctrl-C while building aborts and tears down; the CLI handles it after.
	startCtx, stopStart := signal.NotifyContext(ctx, os.Interrupt)
	err = net.Start(startCtx)
	stopStart()
	if err != nil {
		glog.Fatalf("start network: %v", err)
	}

	fmt.Println("*** Starting CLI:")
	runErr := cli.New(net, os.Stdin, os.Stdout).Run(ctx)

	if err := net.Stop(); err != nil {
		glog.Errorf("stop network: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	if runErr != nil && ctx.Err() == nil {
		glog.Errorf("cli: %v", runErr)
		glog.Flush()
		os.Exit(1)
	}
}
