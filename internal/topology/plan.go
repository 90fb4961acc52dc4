package topology

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

// Interface is one planned end of a link.
type Interface struct {
	Node string
	Name string
	// MAC is nil when the kernel-assigned address is kept.
	MAC  net.HardwareAddr
	Addr netip.Prefix
}

// PlannedLink is a declared link with its two ends named and addressed.
type PlannedLink struct {
	Link
	A, B Interface
}

// Neighbor is a static ARP entry to install on a host interface.
type Neighbor struct {
	Node  string
	Iface string
	IP    netip.Addr
	MAC   net.HardwareAddr
}

// HostPlan is the default interface and addressing of a host.
type HostPlan struct {
	Name  string
	Iface string
	Addr  netip.Prefix
	MAC   net.HardwareAddr
}

type PlanOptions struct {
	IPBase        netip.Prefix
	AutoSetMacs   bool
	AutoStaticArp bool
}

// Plan is everything the builder needs to materialise a topology.
type Plan struct {
	Topology  *Topology
	Hosts     []HostPlan
	Switches  []string
	Links     []PlannedLink
	Neighbors []Neighbor
}

// Host returns the plan of the named host.
func (p *Plan) Host(name string) (HostPlan, bool) {
	for _, h := range p.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return HostPlan{}, false
}

// NewPlan names every interface and assigns host addresses. Hosts get
// consecutive addresses from the base in declaration order; host ports are
// numbered from eth0, switch ports from eth1.
func NewPlan(t *Topology, opts PlanOptions) (*Plan, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if !opts.IPBase.IsValid() || !opts.IPBase.Addr().Is4() {
		return nil, fmt.Errorf("ip base %s must be an IPv4 prefix", opts.IPBase)
	}

	p := &Plan{Topology: t}

	hostIndex := map[string]int{}
	for i, h := range t.Hosts() {
		addr, err := hostAddr(opts.IPBase, i+1)
		if err != nil {
			return nil, fmt.Errorf("host %s: %w", h.Name, err)
		}
		hp := HostPlan{Name: h.Name, Addr: addr}
		if opts.AutoSetMacs {
			hp.MAC = macFromIndex(i + 1)
		} else {
			hp.MAC = randomMAC()
		}
		hostIndex[h.Name] = len(p.Hosts)
		p.Hosts = append(p.Hosts, hp)
	}
	for _, s := range t.Switches() {
		p.Switches = append(p.Switches, s.Name)
	}

	ports := map[string]int{}
	for _, sw := range p.Switches {
		ports[sw] = 1
	}
	nextPort := func(node string) string {
		n := ports[node]
		ports[node] = n + 1
		return fmt.Sprintf("%s-eth%d", node, n)
	}

	for _, l := range t.Links {
		pl := PlannedLink{
			Link: l,
			A:    Interface{Node: l.NodeA, Name: nextPort(l.NodeA)},
			B:    Interface{Node: l.NodeB, Name: nextPort(l.NodeB)},
		}
		for _, end := range []struct {
			iface *Interface
			ip    string
		}{{&pl.A, l.IPA}, {&pl.B, l.IPB}} {
			idx, isHost := hostIndex[end.iface.Node]
			if !isHost {
				continue
			}
			hp := &p.Hosts[idx]
			if hp.Iface == "" {
				hp.Iface = end.iface.Name
				end.iface.MAC = hp.MAC
				end.iface.Addr = hp.Addr
			}
			if end.ip != "" {
				addr, err := netip.ParsePrefix(end.ip)
				if err != nil {
					return nil, fmt.Errorf("link %s-%s: address %q: %w", l.NodeA, l.NodeB, end.ip, err)
				}
				end.iface.Addr = addr
				if hp.Iface == end.iface.Name {
					hp.Addr = addr
				}
			}
		}
		p.Links = append(p.Links, pl)
	}

	if opts.AutoStaticArp {
		p.Neighbors = staticArp(p.Hosts)
	}
	return p, nil
}

// staticArp pairs every connected host with every other one.
func staticArp(hosts []HostPlan) []Neighbor {
	var out []Neighbor
	for _, src := range hosts {
		if src.Iface == "" {
			continue
		}
		for _, dst := range hosts {
			if dst.Name == src.Name || dst.Iface == "" || dst.MAC == nil {
				continue
			}
			out = append(out, Neighbor{
				Node:  src.Name,
				Iface: src.Iface,
				IP:    dst.Addr.Addr(),
				MAC:   dst.MAC,
			})
		}
	}
	return out
}

// hostAddr returns the n-th address of base with the base prefix length.
func hostAddr(base netip.Prefix, n int) (netip.Prefix, error) {
	start := base.Masked().Addr().As4()
	v := binary.BigEndian.Uint32(start[:]) + uint32(n)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	addr := netip.AddrFrom4(b)
	if !base.Contains(addr) || isBroadcast(base, addr) {
		return netip.Prefix{}, fmt.Errorf("address pool %s exhausted at host %d", base, n)
	}
	return netip.PrefixFrom(addr, base.Bits()), nil
}

func isBroadcast(base netip.Prefix, addr netip.Addr) bool {
	if base.Bits() >= 31 {
		return false
	}
	a := addr.As4()
	hostBits := 32 - base.Bits()
	mask := uint32(1)<<hostBits - 1
	return binary.BigEndian.Uint32(a[:])&mask == mask
}

func macFromIndex(n int) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	copy(mac, b[2:])
	return mac
}

// randomMAC returns a locally administered unicast address.
func randomMAC() net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	if _, err := rand.Read(mac); err != nil {
		panic(err)
	}
	mac[0] = (mac[0] | 0x02) &^ 0x01
	return mac
}
