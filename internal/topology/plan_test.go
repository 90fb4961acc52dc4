package topology

import (
	"net/netip"
	"testing"
)

func assignmentPlan(t *testing.T, opts PlanOptions) *Plan {
	t.Helper()
	p, err := NewPlan(Assignment(), opts)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	return p
}

func defaultPlanOptions() PlanOptions {
	return PlanOptions{
		IPBase:        netip.MustParsePrefix("10.0.0.0/8"),
		AutoSetMacs:   true,
		AutoStaticArp: true,
	}
}

func TestPlanHostAddressing(t *testing.T) {
	p := assignmentPlan(t, defaultPlanOptions())

	want := []struct {
		name, iface, addr, mac string
	}{
		{"h1", "h1-eth0", "10.0.0.1/8", "00:00:00:00:00:01"},
		{"h2", "h2-eth0", "10.0.0.2/8", "00:00:00:00:00:02"},
		{"h3", "h3-eth0", "10.0.0.3/8", "00:00:00:00:00:03"},
		{"h4", "h4-eth0", "10.0.0.4/8", "00:00:00:00:00:04"},
		{"h5", "h5-eth0", "10.0.0.5/8", "00:00:00:00:00:05"},
	}
	if len(p.Hosts) != len(want) {
		t.Fatalf("expected %d hosts, got %d", len(want), len(p.Hosts))
	}
	for i, w := range want {
		h := p.Hosts[i]
		if h.Name != w.name || h.Iface != w.iface || h.Addr.String() != w.addr || h.MAC.String() != w.mac {
			t.Fatalf("host %d: want %+v, got %s %s %s %s", i, w, h.Name, h.Iface, h.Addr, h.MAC)
		}
	}
}

func TestPlanPortNames(t *testing.T) {
	p := assignmentPlan(t, defaultPlanOptions())

	want := [][2]string{
		{"h1-eth0", "s1-eth1"},
		{"h2-eth0", "s2-eth1"},
		{"h3-eth0", "s3-eth1"},
		{"h4-eth0", "s4-eth1"},
		{"h5-eth0", "s5-eth1"},
		{"s1-eth2", "s2-eth2"},
		{"s1-eth3", "s3-eth2"},
		{"s1-eth4", "s4-eth2"},
		{"s1-eth5", "s5-eth2"},
	}
	for i, w := range want {
		l := p.Links[i]
		if l.A.Name != w[0] || l.B.Name != w[1] {
			t.Fatalf("link %d: want %s<->%s, got %s<->%s", i, w[0], w[1], l.A.Name, l.B.Name)
		}
	}

	first := p.Links[0]
	if first.A.Addr.String() != "10.0.0.1/8" || first.A.MAC.String() != "00:00:00:00:00:01" {
		t.Fatalf("host end should carry the host address: %+v", first.A)
	}
	if first.B.Addr.IsValid() || first.B.MAC != nil {
		t.Fatalf("switch ports are not addressed: %+v", first.B)
	}
}

func TestPlanStaticArp(t *testing.T) {
	p := assignmentPlan(t, defaultPlanOptions())
	if len(p.Neighbors) != 20 {
		t.Fatalf("expected an entry per ordered host pair, got %d", len(p.Neighbors))
	}
	for _, n := range p.Neighbors {
		if n.Node == "h1" && n.IP.String() == "10.0.0.5" {
			if n.Iface != "h1-eth0" || n.MAC.String() != "00:00:00:00:00:05" {
				t.Fatalf("unexpected entry %+v", n)
			}
			return
		}
	}
	t.Fatal("missing h1 entry for h5")
}

func TestPlanOptionsOff(t *testing.T) {
	opts := defaultPlanOptions()
	opts.AutoSetMacs = false
	opts.AutoStaticArp = false
	p := assignmentPlan(t, opts)

	if len(p.Neighbors) != 0 {
		t.Fatalf("static arp disabled, got %d entries", len(p.Neighbors))
	}
	for _, h := range p.Hosts {
		if h.MAC[0]&0x02 == 0 || h.MAC[0]&0x01 != 0 {
			t.Fatalf("%s: random MAC %s must be local unicast", h.Name, h.MAC)
		}
	}
}

func TestPlanExplicitAddress(t *testing.T) {
	topo := NewTopology("pinned")
	for _, h := range []string{"h1", "h2"} {
		if err := topo.AddHost(h); err != nil {
			t.Fatal(err)
		}
	}
	if err := topo.AddSwitch("s1"); err != nil {
		t.Fatal(err)
	}
	if err := topo.AddLinkWithIPs("h1", "s1", "192.168.1.10/24", ""); err != nil {
		t.Fatal(err)
	}
	if err := topo.AddLink("h2", "s1"); err != nil {
		t.Fatal(err)
	}

	p, err := NewPlan(topo, defaultPlanOptions())
	if err != nil {
		t.Fatal(err)
	}
	h1, _ := p.Host("h1")
	if h1.Addr.String() != "192.168.1.10/24" {
		t.Fatalf("pinned address ignored: %s", h1.Addr)
	}
	h2, _ := p.Host("h2")
	if h2.Addr.String() != "10.0.0.2/8" {
		t.Fatalf("second host keeps its pool address, got %s", h2.Addr)
	}
}

func TestPlanPoolExhausted(t *testing.T) {
	opts := defaultPlanOptions()
	opts.IPBase = netip.MustParsePrefix("10.0.0.0/30")
	if _, err := NewPlan(Assignment(), opts); err == nil {
		t.Fatal("a /30 cannot address five hosts")
	}
}

func TestPlanHostWithoutLink(t *testing.T) {
	topo := NewTopology("lonely")
	if err := topo.AddHost("h1"); err != nil {
		t.Fatal(err)
	}
	if err := topo.AddHost("h2"); err != nil {
		t.Fatal(err)
	}
	p, err := NewPlan(topo, defaultPlanOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Neighbors) != 0 {
		t.Fatalf("unlinked hosts get no arp entries, got %d", len(p.Neighbors))
	}
	if _, ok := p.Host("h3"); ok {
		t.Fatal("unknown host found")
	}
}
