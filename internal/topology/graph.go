package topology

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// hopCost breaks ties between equal-delay routes in favour of fewer hops.
const hopCost = 1e-6

// Route is a loop-free path between two nodes.
type Route struct {
	Nodes     []string
	Delay     time.Duration // one-way
	Bandwidth float64       // bottleneck in Mbit/s, 0 when no hop is limited
}

// Graph indexes a topology for path queries.
type Graph struct {
	topo  *Topology
	g     *simple.WeightedUndirectedGraph
	ids   map[string]int64
	names map[int64]string
}

// Graph builds an undirected graph weighted by link delay in milliseconds.
func (t *Topology) Graph() *Graph {
	g := &Graph{
		topo:  t,
		g:     simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		ids:   make(map[string]int64, len(t.Nodes)),
		names: make(map[int64]string, len(t.Nodes)),
	}
	names := t.order
	if len(names) != len(t.Nodes) {
		names = sortedNames(t.Nodes)
	}
	for i, name := range names {
		id := int64(i)
		g.ids[name] = id
		g.names[id] = name
		g.g.AddNode(simple.Node(id))
	}
	for _, l := range t.Links {
		w := float64(l.Options.Delay)/float64(time.Millisecond) + hopCost
		g.g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(g.ids[l.NodeA]),
			T: simple.Node(g.ids[l.NodeB]),
			W: w,
		})
	}
	return g
}

// ShortestPath returns the lowest-delay route from a to b.
func (g *Graph) ShortestPath(a, b string) (Route, error) {
	from, ok := g.ids[a]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownNode, a)
	}
	to, ok := g.ids[b]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownNode, b)
	}

	shortest := path.DijkstraFrom(g.g.Node(from), g.g)
	nodes, _ := shortest.To(to)
	if len(nodes) == 0 {
		return Route{}, fmt.Errorf("no route from %s to %s", a, b)
	}
	return g.route(nodes), nil
}

func (g *Graph) route(nodes []graph.Node) Route {
	r := Route{Nodes: make([]string, len(nodes))}
	for i, n := range nodes {
		r.Nodes[i] = g.names[n.ID()]
	}
	for i := 1; i < len(r.Nodes); i++ {
		l, _ := g.topo.link(r.Nodes[i-1], r.Nodes[i])
		r.Delay += l.Options.Delay
		if bw := l.Options.Bandwidth; bw > 0 && (r.Bandwidth == 0 || bw < r.Bandwidth) {
			r.Bandwidth = bw
		}
	}
	return r
}

// ExpectedRTT is the round trip time implied by link delays alone.
func (g *Graph) ExpectedRTT(a, b string) (time.Duration, error) {
	r, err := g.ShortestPath(a, b)
	if err != nil {
		return 0, err
	}
	return 2 * r.Delay, nil
}

// Connected reports whether every node can reach every other node.
func (g *Graph) Connected() bool {
	if len(g.ids) == 0 {
		return true
	}
	shortest := path.DijkstraFrom(g.g.Node(0), g.g)
	for id := range g.names {
		if nodes, _ := shortest.To(id); len(nodes) == 0 {
			return false
		}
	}
	return true
}

func (t *Topology) link(a, b string) (Link, bool) {
	for _, l := range t.Links {
		if l.Connects(a, b) {
			return l, true
		}
	}
	return Link{}, false
}

func sortedNames(nodes map[string]Node) []string {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
