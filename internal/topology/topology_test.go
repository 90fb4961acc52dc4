package topology

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAssignmentNodes(t *testing.T) {
	topo := Assignment()

	hosts, switches := topo.Hosts(), topo.Switches()
	if len(hosts) != 5 || len(switches) != 5 {
		t.Fatalf("expected 5 hosts and 5 switches, got %d and %d", len(hosts), len(switches))
	}
	for i := 0; i < 5; i++ {
		if want := fmt.Sprintf("h%d", i+1); hosts[i].Name != want {
			t.Fatalf("host %d: want %s, got %s", i, want, hosts[i].Name)
		}
		if want := fmt.Sprintf("s%d", i+1); switches[i].Name != want {
			t.Fatalf("switch %d: want %s, got %s", i, want, switches[i].Name)
		}
	}
	if len(topo.Nodes) != 10 {
		t.Fatalf("expected 10 nodes, got %d", len(topo.Nodes))
	}
}

func TestAssignmentHostLinks(t *testing.T) {
	topo := Assignment()
	for i := 1; i <= 5; i++ {
		host := fmt.Sprintf("h%d", i)
		links := topo.LinksOf(host)
		if len(links) != 1 {
			t.Fatalf("%s: expected exactly one link, got %d", host, len(links))
		}
		if peer := links[0].Peer(host); peer != fmt.Sprintf("s%d", i) {
			t.Fatalf("%s connects to %s", host, peer)
		}
		if links[0].Options.Shaped() {
			t.Fatalf("%s link should carry no parameters: %+v", host, links[0].Options)
		}
	}
}

func TestAssignmentSwitchStar(t *testing.T) {
	topo := Assignment()
	want := map[string]LinkOptions{
		"s2": {Bandwidth: 10, Delay: 40 * time.Millisecond},
		"s3": {Bandwidth: 20, Delay: 30 * time.Millisecond},
		"s4": {Bandwidth: 30, Delay: 20 * time.Millisecond},
		"s5": {Bandwidth: 40, Delay: 10 * time.Millisecond},
	}

	seen := map[string]int{}
	for _, l := range topo.Links {
		a, b := topo.Nodes[l.NodeA], topo.Nodes[l.NodeB]
		if a.Type != NodeSwitch || b.Type != NodeSwitch {
			continue
		}
		if l.NodeA != "s1" && l.NodeB != "s1" {
			t.Fatalf("unexpected switch link %s-%s", l.NodeA, l.NodeB)
		}
		peer := l.Peer("s1")
		opts, ok := want[peer]
		if !ok {
			t.Fatalf("unexpected switch link s1-%s", peer)
		}
		if l.Options != opts {
			t.Fatalf("s1-%s: want %+v, got %+v", peer, opts, l.Options)
		}
		seen[peer]++
	}
	for peer := range want {
		if seen[peer] != 1 {
			t.Fatalf("s1-%s declared %d times", peer, seen[peer])
		}
	}
	if len(topo.Links) != 9 {
		t.Fatalf("expected 9 links in total, got %d", len(topo.Links))
	}
}

func TestAddLinkRequiresDeclaredNodes(t *testing.T) {
	topo := NewTopology("t")
	if err := topo.AddHost("h1"); err != nil {
		t.Fatal(err)
	}
	err := topo.AddLink("h1", "s1")
	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if len(topo.Links) != 0 {
		t.Fatal("rejected link must not be recorded")
	}
}

func TestAddLinkRejections(t *testing.T) {
	topo := NewTopology("t")
	for _, n := range []string{"h1", "h2"} {
		if err := topo.AddHost(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := topo.AddSwitch("s1"); err != nil {
		t.Fatal(err)
	}
	if err := topo.AddLink("h1", "s1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		a, b string
		opts []LinkOption
		want error
	}{
		{"self loop", "s1", "s1", nil, ErrSelfLink},
		{"duplicate", "h1", "s1", nil, ErrDuplicateLink},
		{"duplicate reversed", "s1", "h1", nil, ErrDuplicateLink},
		{"unknown b", "h2", "s9", nil, ErrUnknownNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := topo.AddLink(tt.a, tt.b, tt.opts...); !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}

	if err := topo.AddLink("h2", "s1", WithLoss(150)); err == nil {
		t.Fatal("loss above 100% must be rejected")
	}
	if err := topo.AddLink("h2", "s1", WithDelay(-time.Second)); err == nil {
		t.Fatal("negative delay must be rejected")
	}
}

func TestAddNodeRejections(t *testing.T) {
	topo := NewTopology("t")
	if err := topo.AddHost("h1"); err != nil {
		t.Fatal(err)
	}
	if err := topo.AddSwitch("h1"); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
	for _, name := range []string{"", "has space", "a-b", "toolongname"} {
		if err := topo.AddHost(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("%q: expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestValidateHandBuiltTopology(t *testing.T) {
	topo := &Topology{
		Nodes: map[string]Node{
			"h1": {Name: "h1", Type: NodeHost},
			"s1": {Name: "s1", Type: NodeSwitch},
		},
		Links: []Link{{NodeA: "h1", NodeB: "s1"}},
	}
	if err := topo.Validate(); err != nil {
		t.Fatalf("valid topology rejected: %v", err)
	}
	if got := topo.NodeNames(); len(got) != 2 || got[0] != "h1" || got[1] != "s1" {
		t.Fatalf("hand-built topology should be ordered by name, got %v", got)
	}

	topo.Links = append(topo.Links, Link{NodeA: "s1", NodeB: "h1"})
	if err := topo.Validate(); !errors.Is(err, ErrDuplicateLink) {
		t.Fatalf("expected ErrDuplicateLink, got %v", err)
	}
}

func TestParseDelay(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"40ms", 40 * time.Millisecond, false},
		{"1.5s", 1500 * time.Millisecond, false},
		{"250", 250 * time.Microsecond, false},
		{"", 0, false},
		{"-5ms", 0, true},
		{"-3", 0, true},
		{"fast", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDelay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: unexpected error state %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("%q: want %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestLinkOptionsString(t *testing.T) {
	opts := LinkOptions{Bandwidth: 10, Delay: 40 * time.Millisecond}
	if got := opts.String(); got != "10Mbit 40ms delay" {
		t.Fatalf("unexpected rendering %q", got)
	}
	if got := (LinkOptions{}).String(); got != "" {
		t.Fatalf("empty options should render empty, got %q", got)
	}
}
