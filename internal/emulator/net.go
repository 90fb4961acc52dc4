package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/golang/glog"

	"measnet/internal/config"
	"measnet/internal/probe"
	"measnet/internal/topology"
)

var (
	ErrNotStarted     = errors.New("network not started")
	ErrAlreadyStarted = errors.New("network already started")
	ErrUnknownHost    = errors.New("unknown host")
)

// Runtime is what Net needs from the layer that owns kernel objects.
type Runtime interface {
	topology.Runtime
	CleanupStale(names []string) int
	Exec(ctx context.Context, node string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error
	Ping(ctx context.Context, node string, dst netip.Addr, opts probe.Options) (probe.Stats, error)
}

type Option func(*Net)

func WithAutoSetMacs(on bool) Option {
	return func(n *Net) { n.planOpts.AutoSetMacs = on }
}

func WithAutoStaticArp(on bool) Option {
	return func(n *Net) { n.planOpts.AutoStaticArp = on }
}

func WithIPBase(base netip.Prefix) Option {
	return func(n *Net) { n.planOpts.IPBase = base }
}

// WithRuntime replaces the kernel runtime Start would otherwise open.
func WithRuntime(rt Runtime) Option {
	return func(n *Net) { n.rt = rt }
}

// Net is an emulated network built from a topology.
type Net struct {
	topo     *topology.Topology
	cfg      *config.Config
	planOpts topology.PlanOptions

	mu         sync.Mutex
	rt         Runtime
	ownRuntime bool
	plan       *topology.Plan
	builder    *topology.Builder
	started    bool
}

// New prepares a network; nothing touches the kernel before Start.
func New(topo *topology.Topology, cfg *config.Config, opts ...Option) (*Net, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	n := &Net{
		topo: topo,
		cfg:  cfg,
		planOpts: topology.PlanOptions{
			IPBase:        cfg.IPBase,
			AutoSetMacs:   cfg.AutoSetMacs,
			AutoStaticArp: cfg.AutoStaticArp,
		},
	}
	for _, opt := range opts {
		opt(n)
	}

	plan, err := topology.NewPlan(topo, n.planOpts)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", topo.Name, err)
	}
	n.plan = plan
	return n, nil
}

func (n *Net) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return ErrAlreadyStarted
	}

	if n.rt == nil {
		kr, err := NewKernelRuntime(n.cfg)
		if err != nil {
			return err
		}
		n.rt = kr
		n.ownRuntime = true
	}

	glog.Infof("*** Creating network %s", n.topo.Name)
	start := time.Now()

	n.rt.CleanupStale(n.topo.NodeNames())

	n.builder = topology.NewBuilder(n.rt)
	if err := n.builder.Build(ctx, n.plan); err != nil {
		glog.Errorf("build %s: %v", n.topo.Name, err)
		if terr := n.builder.Teardown(); terr != nil {
			err = errors.Join(err, terr)
		}
		n.closeRuntime()
		return err
	}

	n.started = true
	glog.Infof("*** Starting %d hosts and %d switches took %s",
		len(n.plan.Hosts), len(n.plan.Switches), time.Since(start).Round(time.Millisecond))
	return nil
}

// Stop tears down everything Start built. Stopping a network that is not
// running is a no-op.
func (n *Net) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started {
		return nil
	}
	glog.Infof("*** Stopping %d switches and %d hosts", len(n.plan.Switches), len(n.plan.Hosts))
	err := n.builder.Teardown()
	n.started = false
	n.closeRuntime()
	glog.Infof("*** Done")
	return err
}

func (n *Net) closeRuntime() {
	if !n.ownRuntime {
		return
	}
	if c, ok := n.rt.(io.Closer); ok {
		if err := c.Close(); err != nil {
			glog.Warningf("close runtime: %v", err)
		}
	}
	n.rt = nil
	n.ownRuntime = false
}

func (n *Net) Started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}

func (n *Net) Topology() *topology.Topology {
	return n.topo
}

func (n *Net) Plan() *topology.Plan {
	return n.plan
}

// Hosts returns host names in declaration order.
func (n *Net) Hosts() []string {
	names := make([]string, len(n.plan.Hosts))
	for i, h := range n.plan.Hosts {
		names[i] = h.Name
	}
	return names
}

func (n *Net) Host(name string) (topology.HostPlan, error) {
	h, ok := n.plan.Host(name)
	if !ok {
		return topology.HostPlan{}, fmt.Errorf("%w: %s", ErrUnknownHost, name)
	}
	return h, nil
}

func (n *Net) IP(name string) (netip.Addr, error) {
	h, err := n.Host(name)
	if err != nil {
		return netip.Addr{}, err
	}
	return h.Addr.Addr(), nil
}

func (n *Net) MAC(name string) (net.HardwareAddr, error) {
	h, err := n.Host(name)
	if err != nil {
		return nil, err
	}
	return h.MAC, nil
}

func (n *Net) runtime() (Runtime, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return nil, ErrNotStarted
	}
	return n.rt, nil
}

// Exec runs cmd inside the named node.
func (n *Net) Exec(ctx context.Context, node string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	rt, err := n.runtime()
	if err != nil {
		return err
	}
	if _, ok := n.topo.Nodes[node]; !ok {
		return fmt.Errorf("%w: %s", topology.ErrUnknownNode, node)
	}
	return rt.Exec(ctx, node, cmd, stdin, stdout, stderr)
}

// Ping sends count echo requests from host src to host dst.
func (n *Net) Ping(ctx context.Context, src, dst string, count int) (probe.Stats, error) {
	rt, err := n.runtime()
	if err != nil {
		return probe.Stats{}, err
	}
	if _, err := n.Host(src); err != nil {
		return probe.Stats{}, err
	}
	ip, err := n.IP(dst)
	if err != nil {
		return probe.Stats{}, err
	}
	return rt.Ping(ctx, src, ip, probe.Options{Count: count})
}
