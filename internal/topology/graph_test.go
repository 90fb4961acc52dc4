package topology

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestShortestPathAssignment(t *testing.T) {
	g := Assignment().Graph()

	tests := []struct {
		a, b      string
		nodes     []string
		delay     time.Duration
		bandwidth float64
	}{
		{"h1", "h2", []string{"h1", "s1", "s2", "h2"}, 40 * time.Millisecond, 10},
		{"h1", "h5", []string{"h1", "s1", "s5", "h5"}, 10 * time.Millisecond, 40},
		{"h2", "h3", []string{"h2", "s2", "s1", "s3", "h3"}, 70 * time.Millisecond, 10},
		{"h4", "h5", []string{"h4", "s4", "s1", "s5", "h5"}, 30 * time.Millisecond, 30},
		{"h1", "s1", []string{"h1", "s1"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"-"+tt.b, func(t *testing.T) {
			r, err := g.ShortestPath(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(r.Nodes, tt.nodes) {
				t.Fatalf("want path %v, got %v", tt.nodes, r.Nodes)
			}
			if r.Delay != tt.delay {
				t.Fatalf("want delay %s, got %s", tt.delay, r.Delay)
			}
			if r.Bandwidth != tt.bandwidth {
				t.Fatalf("want bottleneck %v, got %v", tt.bandwidth, r.Bandwidth)
			}
		})
	}
}

func TestExpectedRTT(t *testing.T) {
	g := Assignment().Graph()
	rtt, err := g.ExpectedRTT("h2", "h5")
	if err != nil {
		t.Fatal(err)
	}
	if rtt != 100*time.Millisecond {
		t.Fatalf("want 100ms, got %s", rtt)
	}
}

func TestShortestPathErrors(t *testing.T) {
	topo := NewTopology("split")
	for _, h := range []string{"h1", "h2"} {
		if err := topo.AddHost(h); err != nil {
			t.Fatal(err)
		}
	}
	g := topo.Graph()

	if _, err := g.ShortestPath("h1", "h9"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if _, err := g.ShortestPath("h1", "h2"); err == nil {
		t.Fatal("disconnected hosts must have no route")
	}
	if g.Connected() {
		t.Fatal("split topology reported connected")
	}
	if !Assignment().Graph().Connected() {
		t.Fatal("assignment topology should be connected")
	}
}
