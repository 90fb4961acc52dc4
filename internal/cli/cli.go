package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"measnet/internal/emulator"
	"measnet/internal/probe"
	"measnet/internal/topology"
)

const (
	Prompt = "measnet> "

	iperfPort = 5001
)

var errExit = errors.New("exit")

// Net is the part of a running network the command loop drives.
type Net interface {
	Topology() *topology.Topology
	Plan() *topology.Plan
	Hosts() []string
	IP(name string) (netip.Addr, error)
	Ping(ctx context.Context, src, dst string, count int) (probe.Stats, error)
	PingAll(ctx context.Context) (*emulator.PingAllResult, error)
	Exec(ctx context.Context, node string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

type CLI struct {
	net    Net
	in     io.Reader
	out    io.Writer
	prompt string
	cmds   map[string]command
	// interrupts cancel the running command; nil means SIGINT.
	interrupts <-chan os.Signal
	// shell runs a line on the machine hosting the emulation.
	shell func(ctx context.Context, line string, stdout, stderr io.Writer) error
}

func New(net Net, in io.Reader, out io.Writer) *CLI {
	c := &CLI{net: net, in: in, out: out, prompt: Prompt, shell: hostShell}
	c.cmds = map[string]command{
		"help":    {"help", "list commands", c.help},
		"nodes":   {"nodes", "list all nodes", c.nodes},
		"links":   {"links", "list links and their parameters", c.links},
		"net":     {"net", "show interface connections", c.netCmd},
		"dump":    {"dump", "show node details", c.dump},
		"ips":     {"ips", "show host addresses", c.ips},
		"pingall": {"pingall", "ping between every pair of hosts", c.pingall},
		"ping":    {"ping <src> <dst> [count]", "ping one host from another", c.ping},
		"route":   {"route <a> <b>", "show the lowest-delay path", c.route},
		"rtt":     {"rtt <a> <b>", "compare expected and measured round trip time", c.rtt},
		"iperf":   {"iperf <client> <server> [seconds]", "measure throughput with iperfer", c.iperf},
		"topo":    {"topo", "print the topology as YAML", c.topo},
		"sh":      {"sh <cmd...>", "run a command outside the network", c.sh},
		"exit":    {"exit", "leave the CLI", exitCmd},
		"quit":    {"quit", "leave the CLI", exitCmd},
	}
	return c
}

// WithPrompt replaces the default prompt; an empty prompt disables it.
func (c *CLI) WithPrompt(p string) *CLI {
	c.prompt = p
	return c
}

// WithInterrupts replaces SIGINT as the source of command interrupts.
func (c *CLI) WithInterrupts(ch <-chan os.Signal) *CLI {
	c.interrupts = ch
	return c
}

// Run reads commands until exit, end of input or cancellation. An interrupt
// cancels the running command and returns to the prompt.
func (c *CLI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupts := c.interrupts
	if interrupts == nil {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		defer signal.Stop(sig)
		interrupts = sig
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		if c.prompt != "" {
			fmt.Fprint(c.out, c.prompt)
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return ctx.Err()
		case err := <-readErr:
			fmt.Fprintln(c.out)
			return err
		case <-interrupts:
			fmt.Fprintln(c.out, "\nInterrupt")
		case line := <-lines:
			if err := c.execInterruptible(ctx, line, interrupts); err != nil {
				if errors.Is(err, errExit) {
					return nil
				}
				fmt.Fprintf(c.out, "*** Error: %v\n", err)
			}
		}
	}
}

func (c *CLI) execInterruptible(ctx context.Context, line string, interrupts <-chan os.Signal) error {
	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Exec(cmdCtx, line) }()

	select {
	case err := <-done:
		return err
	case <-interrupts:
		cancel()
		<-done
		fmt.Fprintln(c.out, "\nInterrupt")
		return nil
	}
}

// Exec runs one command line.
func (c *CLI) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}
	glog.V(2).Infof("cli: %q", line)

	if cmd, ok := c.cmds[args[0]]; ok {
		return cmd.run(ctx, args[1:])
	}
	if _, ok := c.net.Topology().Nodes[args[0]]; ok {
		return c.nodeCmd(ctx, args[0], args[1:])
	}
	return fmt.Errorf("unknown command: %s", args[0])
}

func exitCmd(context.Context, []string) error {
	return errExit
}

func (c *CLI) help(context.Context, []string) error {
	names := make([]string, 0, len(c.cmds))
	for name := range c.cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(c.out, "Documented commands:")
	for _, name := range names {
		cmd := c.cmds[name]
		fmt.Fprintf(c.out, "  %-36s %s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintln(c.out, "  <node> <cmd...>                      run a command on a node; host names become their IPs")
	return nil
}

func (c *CLI) nodes(context.Context, []string) error {
	fmt.Fprintln(c.out, "available nodes are:")
	fmt.Fprintln(c.out, strings.Join(c.net.Topology().NodeNames(), " "))
	return nil
}

func (c *CLI) links(context.Context, []string) error {
	for _, l := range c.net.Plan().Links {
		fmt.Fprintf(c.out, "%s<->%s", l.A.Name, l.B.Name)
		if l.Options.Shaped() {
			fmt.Fprintf(c.out, " (%s)", l.Options)
		}
		fmt.Fprintln(c.out)
	}
	return nil
}

// portsOf maps each node to its interfaces and their peers, in link order.
func (c *CLI) portsOf() map[string][][2]string {
	ports := map[string][][2]string{}
	for _, l := range c.net.Plan().Links {
		ports[l.NodeA] = append(ports[l.NodeA], [2]string{l.A.Name, l.B.Name})
		ports[l.NodeB] = append(ports[l.NodeB], [2]string{l.B.Name, l.A.Name})
	}
	return ports
}

func (c *CLI) netCmd(context.Context, []string) error {
	ports := c.portsOf()
	for _, name := range c.net.Topology().NodeNames() {
		fmt.Fprint(c.out, name)
		for _, p := range ports[name] {
			fmt.Fprintf(c.out, " %s:%s", p[0], p[1])
		}
		fmt.Fprintln(c.out)
	}
	return nil
}

func (c *CLI) dump(context.Context, []string) error {
	plan := c.net.Plan()
	ports := c.portsOf()
	for _, name := range c.net.Topology().NodeNames() {
		if h, ok := plan.Host(name); ok {
			fmt.Fprintf(c.out, "<Host %s: %s:%s mac=%s>\n", name, h.Iface, h.Addr, h.MAC)
			continue
		}
		ifaces := make([]string, 0, len(ports[name]))
		for _, p := range ports[name] {
			ifaces = append(ifaces, p[0])
		}
		fmt.Fprintf(c.out, "<Switch %s: %s>\n", name, strings.Join(ifaces, ","))
	}
	return nil
}

func (c *CLI) ips(context.Context, []string) error {
	for _, h := range c.net.Plan().Hosts {
		fmt.Fprintf(c.out, "%-6s %-18s %s\n", h.Name, h.Addr, h.MAC)
	}
	return nil
}

func (c *CLI) pingall(ctx context.Context, _ []string) error {
	fmt.Fprintln(c.out, "*** Ping: testing ping reachability")
	res, err := c.net.PingAll(ctx)
	if err != nil {
		return err
	}
	res.Write(c.out)
	return nil
}

func (c *CLI) ping(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: ping <src> <dst> [count]")
	}
	count := 3
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[2])
		}
		count = n
	}
	stats, err := c.net.Ping(ctx, args[0], args[1], count)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "--- %s -> %s (%s) ping statistics ---\n%s\n", args[0], args[1], stats.Dst, stats)
	return nil
}

func (c *CLI) route(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: route <a> <b>")
	}
	r, err := c.net.Topology().Graph().ShortestPath(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, strings.Join(r.Nodes, " -> "))
	fmt.Fprintf(c.out, " (one-way delay %s", r.Delay)
	if r.Bandwidth > 0 {
		fmt.Fprintf(c.out, ", bottleneck %sMbit", strconv.FormatFloat(r.Bandwidth, 'f', -1, 64))
	}
	fmt.Fprintln(c.out, ")")
	return nil
}

func (c *CLI) rtt(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: rtt <a> <b>")
	}
	expected, err := c.net.Topology().Graph().ExpectedRTT(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "expected rtt %s -> %s: %s\n", args[0], args[1], expected)

	stats, err := c.net.Ping(ctx, args[0], args[1], 4)
	if err != nil {
		return err
	}
	if stats.Received == 0 {
		fmt.Fprintf(c.out, "measured rtt: no replies (%s)\n", stats)
		return nil
	}
	fmt.Fprintf(c.out, "measured rtt: %s avg over %d replies\n", stats.Avg().Round(10*time.Microsecond), stats.Received)
	return nil
}

// iperf runs an iperfer server on one host and a client on another.
func (c *CLI) iperf(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: iperf <client> <server> [seconds]")
	}
	client, server := args[0], args[1]
	secs := 10
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid duration %q", args[2])
		}
		secs = n
	}
	ip, err := c.net.IP(server)
	if err != nil {
		return err
	}
	if _, err := c.net.IP(client); err != nil {
		return err
	}

	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	srvDone := make(chan error, 1)
	go func() {
		port := strconv.Itoa(iperfPort)
		srvDone <- c.net.Exec(srvCtx, server, []string{"iperfer", "-s", "-p", port}, nil, c.out, c.out)
	}()

	select {
	case err := <-srvDone:
		return fmt.Errorf("iperfer server on %s: %w", server, err)
	case <-time.After(500 * time.Millisecond):
	}

	fmt.Fprintf(c.out, "*** Iperf: testing bandwidth between %s and %s\n", client, server)
	cmd := []string{"iperfer", "-c", "-h", ip.String(), "-p", strconv.Itoa(iperfPort), "-t", strconv.Itoa(secs)}
	if err := c.net.Exec(ctx, client, cmd, nil, c.out, c.out); err != nil {
		return fmt.Errorf("iperfer client on %s: %w", client, err)
	}

	select {
	case <-srvDone:
	case <-time.After(5 * time.Second):
		glog.Warningf("iperfer server on %s did not exit, stopping it", server)
	}
	return nil
}

func (c *CLI) topo(context.Context, []string) error {
	data, err := c.net.Topology().Marshal()
	if err != nil {
		return err
	}
	_, err = c.out.Write(data)
	return err
}

func (c *CLI) sh(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: sh <cmd...>")
	}
	return c.shell(ctx, strings.Join(args, " "), c.out, c.out)
}

// nodeCmd runs args on node after replacing host names with their address.
func (c *CLI) nodeCmd(ctx context.Context, node string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s <cmd...>", node)
	}
	cmd := make([]string, len(args))
	for i, a := range args {
		cmd[i] = a
		if ip, err := c.net.IP(a); err == nil {
			cmd[i] = ip.String()
		}
	}
	return c.net.Exec(ctx, node, cmd, nil, c.out, c.out)
}

func hostShell(ctx context.Context, line string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
