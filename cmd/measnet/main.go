// Command measnet builds emulated networks and manages the nodes they leave
// behind.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"measnet/internal/config"
	"measnet/internal/container/domain"
	"measnet/internal/container/manager"
	"measnet/internal/container/repository"
)

var configPath = flag.String("config", "measnet.env", "optional env-style config file")

func main() {
	domain.HandleNsenter()

	flag.Usage = printUsage
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]

	var err error
	switch command {
	case "run":
		err = cmdRun(rest)
	case "dump":
		err = cmdDump(rest)
	case "ls", "list":
		err = cmdList()
	case "rm", "remove":
		err = cmdRemove(rest)
	case "attach":
		err = cmdAttach(rest)
	case "exec":
		err = cmdExec(rest)
	case "cleanup":
		err = cmdCleanup()
	case "export":
		err = cmdExport(rest)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}
	cfg.Log()
	return cfg
}

func newManager(cfg *config.Config, opts ...manager.Option) *manager.ContainerManager {
	repos, err := repository.InitializeRepositories(cfg.StateDir)
	if err != nil {
		glog.Fatalf("Failed to initialize repositories: %v", err)
	}
	return manager.NewContainerManager(repos, opts...)
}

func printUsage() {
	fmt.Println("measnet - network emulator for link measurements")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  measnet [flags] run [topology.yaml]     Build a network and open the CLI")
	fmt.Println("  measnet [flags] dump [topology.yaml]    Print a topology and its addressing")
	fmt.Println("  measnet [flags] ls                      List all nodes")
	fmt.Println("  measnet [flags] rm <id|name>            Remove a node")
	fmt.Println("  measnet [flags] attach <id|name>        Attach to a node shell")
	fmt.Println("  measnet [flags] exec <id|name> <cmd>    Execute a command on a node")
	fmt.Println("  measnet [flags] cleanup                 Remove all nodes")
	fmt.Println("  measnet [flags] export [topology.yaml]  Write a topology to Neo4j")
	fmt.Println("  measnet help                            Show this help message")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Without a topology file, TOPOLOGY from the config is used, then the")
	fmt.Println("built-in five-host assignment topology.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  measnet run")
	fmt.Println("  measnet ls")
	fmt.Println("  measnet attach h1")
	fmt.Println("  measnet exec h1 ping -c 3 10.0.0.2")
	fmt.Println("  measnet rm h1")
}
