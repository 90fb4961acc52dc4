package topology

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type NodeType string

const (
	NodeHost   NodeType = "host"
	NodeSwitch NodeType = "switch"
)

var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrDuplicateNode = errors.New("node already declared")
	ErrDuplicateLink = errors.New("link already declared")
	ErrSelfLink      = errors.New("link endpoints must differ")
	ErrInvalidName   = errors.New("invalid node name")
)

// maxNameLen keeps derived interface names like "h1-eth0" under IFNAMSIZ.
const maxNameLen = 8

type Node struct {
	Name string
	Type NodeType
}

// LinkOptions are the traffic-control parameters of a link. Zero values
// leave the corresponding property unshaped.
type LinkOptions struct {
	Bandwidth    float64       // Mbit/s
	Delay        time.Duration // one-way, applied on both ends
	Loss         float64       // percent
	MaxQueueSize int           // packets
}

// Shaped reports whether any traffic-control parameter is set.
func (o LinkOptions) Shaped() bool {
	return o.Bandwidth > 0 || o.Delay > 0 || o.Loss > 0 || o.MaxQueueSize > 0
}

func (o LinkOptions) String() string {
	var parts []string
	if o.Bandwidth > 0 {
		parts = append(parts, strconv.FormatFloat(o.Bandwidth, 'f', -1, 64)+"Mbit")
	}
	if o.Delay > 0 {
		parts = append(parts, o.Delay.String()+" delay")
	}
	if o.Loss > 0 {
		parts = append(parts, strconv.FormatFloat(o.Loss, 'f', -1, 64)+"% loss")
	}
	if o.MaxQueueSize > 0 {
		parts = append(parts, strconv.Itoa(o.MaxQueueSize)+" pkt queue")
	}
	return strings.Join(parts, " ")
}

type LinkOption func(*LinkOptions)

func WithBandwidth(mbit float64) LinkOption {
	return func(o *LinkOptions) { o.Bandwidth = mbit }
}

func WithDelay(d time.Duration) LinkOption {
	return func(o *LinkOptions) { o.Delay = d }
}

func WithLoss(percent float64) LinkOption {
	return func(o *LinkOptions) { o.Loss = percent }
}

func WithMaxQueueSize(packets int) LinkOption {
	return func(o *LinkOptions) { o.MaxQueueSize = packets }
}

func (o LinkOptions) validate() error {
	switch {
	case o.Bandwidth < 0:
		return fmt.Errorf("bandwidth %v must not be negative", o.Bandwidth)
	case o.Delay < 0:
		return fmt.Errorf("delay %v must not be negative", o.Delay)
	case o.Loss < 0 || o.Loss > 100:
		return fmt.Errorf("loss %v must be between 0 and 100", o.Loss)
	case o.MaxQueueSize < 0:
		return fmt.Errorf("max queue size %d must not be negative", o.MaxQueueSize)
	}
	return nil
}

type Link struct {
	NodeA   string
	NodeB   string
	IPA     string
	IPB     string
	Options LinkOptions
}

// Connects reports whether the link joins a and b, in either orientation.
func (l Link) Connects(a, b string) bool {
	return (l.NodeA == a && l.NodeB == b) || (l.NodeA == b && l.NodeB == a)
}

// Peer returns the endpoint opposite to name.
func (l Link) Peer(name string) string {
	if l.NodeA == name {
		return l.NodeB
	}
	return l.NodeA
}

type Topology struct {
	Name  string
	Nodes map[string]Node
	Links []Link

	order []string
}

func NewTopology(name string) *Topology {
	return &Topology{
		Name:  name,
		Nodes: map[string]Node{},
		Links: []Link{},
	}
}

func (t *Topology) addNode(name string, typ NodeType) error {
	if name == "" || len(name) > maxNameLen || strings.ContainsAny(name, " /-") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, exists := t.Nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	t.Nodes[name] = Node{Name: name, Type: typ}
	t.order = append(t.order, name)
	return nil
}

func (t *Topology) AddHost(name string) error {
	return t.addNode(name, NodeHost)
}

func (t *Topology) AddSwitch(name string) error {
	return t.addNode(name, NodeSwitch)
}

// AddLink declares an edge between two already declared nodes.
func (t *Topology) AddLink(a, b string, opts ...LinkOption) error {
	var o LinkOptions
	for _, opt := range opts {
		opt(&o)
	}
	return t.addLink(Link{NodeA: a, NodeB: b, Options: o})
}

// AddLinkWithIPs declares an edge and pins the addresses of its host ends.
func (t *Topology) AddLinkWithIPs(a, b, ipA, ipB string, opts ...LinkOption) error {
	var o LinkOptions
	for _, opt := range opts {
		opt(&o)
	}
	return t.addLink(Link{NodeA: a, NodeB: b, IPA: ipA, IPB: ipB, Options: o})
}

func (t *Topology) addLink(l Link) error {
	if err := t.checkLink(l, len(t.Links)); err != nil {
		return err
	}
	t.Links = append(t.Links, l)
	return nil
}

// checkLink validates l against the nodes and the first n links.
func (t *Topology) checkLink(l Link, n int) error {
	if _, ok := t.Nodes[l.NodeA]; !ok {
		return fmt.Errorf("link %s-%s: %w: %s", l.NodeA, l.NodeB, ErrUnknownNode, l.NodeA)
	}
	if _, ok := t.Nodes[l.NodeB]; !ok {
		return fmt.Errorf("link %s-%s: %w: %s", l.NodeA, l.NodeB, ErrUnknownNode, l.NodeB)
	}
	if l.NodeA == l.NodeB {
		return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, ErrSelfLink)
	}
	for _, existing := range t.Links[:n] {
		if existing.Connects(l.NodeA, l.NodeB) {
			return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, ErrDuplicateLink)
		}
	}
	if err := l.Options.validate(); err != nil {
		return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, err)
	}
	return nil
}

// Validate re-checks every invariant on a topology assembled by hand.
func (t *Topology) Validate() error {
	if len(t.order) != len(t.Nodes) {
		t.order = sortedNames(t.Nodes)
	}
	for name, node := range t.Nodes {
		if node.Name != name {
			return fmt.Errorf("node %q stored under key %q", node.Name, name)
		}
		if node.Type != NodeHost && node.Type != NodeSwitch {
			return fmt.Errorf("node %s: unknown type %q", name, node.Type)
		}
	}
	for i, l := range t.Links {
		if err := t.checkLink(l, i); err != nil {
			return err
		}
	}
	return nil
}

func (t *Topology) ordered(typ NodeType) []Node {
	var out []Node
	for _, name := range t.order {
		if n := t.Nodes[name]; n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// Hosts returns the hosts in declaration order.
func (t *Topology) Hosts() []Node {
	return t.ordered(NodeHost)
}

// Switches returns the switches in declaration order.
func (t *Topology) Switches() []Node {
	return t.ordered(NodeSwitch)
}

// NodeNames returns every node name in declaration order.
func (t *Topology) NodeNames() []string {
	return append([]string(nil), t.order...)
}

// LinksOf returns the links touching name, in declaration order.
func (t *Topology) LinksOf(name string) []Link {
	var out []Link
	for _, l := range t.Links {
		if l.NodeA == name || l.NodeB == name {
			out = append(out, l)
		}
	}
	return out
}

func (t *Topology) Neighbors(name string) []string {
	var out []string
	for _, l := range t.LinksOf(name) {
		out = append(out, l.Peer(name))
	}
	return out
}

// ParseDelay accepts Go durations ("40ms") and bare numbers, which tc reads
// as microseconds.
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if us, err := strconv.ParseFloat(s, 64); err == nil {
		if us < 0 {
			return 0, fmt.Errorf("delay %q must not be negative", s)
		}
		return time.Duration(us * float64(time.Microsecond)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse delay %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("delay %q must not be negative", s)
	}
	return d, nil
}
