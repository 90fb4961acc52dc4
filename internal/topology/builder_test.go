package topology

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type fakeRuntime struct {
	calls     []string
	failOn    string
	deleteErr map[string]error
}

func (f *fakeRuntime) record(call string) error {
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeRuntime) CreateHost(name string) error   { return f.record("host " + name) }
func (f *fakeRuntime) CreateSwitch(name string) error { return f.record("switch " + name) }
func (f *fakeRuntime) CreateLink(l PlannedLink) error {
	return f.record(fmt.Sprintf("link %s %s", l.A.Name, l.B.Name))
}
func (f *fakeRuntime) Shape(iface Interface, opts LinkOptions) error {
	return f.record(fmt.Sprintf("shape %s %s", iface.Name, opts))
}
func (f *fakeRuntime) AddNeighbor(n Neighbor) error {
	return f.record(fmt.Sprintf("arp %s %s", n.Node, n.IP))
}
func (f *fakeRuntime) DeleteNode(name string) error {
	f.calls = append(f.calls, "delete "+name)
	return f.deleteErr[name]
}

func (f *fakeRuntime) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestBuildAssignment(t *testing.T) {
	rt := &fakeRuntime{}
	b := NewBuilder(rt)
	if err := b.Build(context.Background(), assignmentPlan(t, defaultPlanOptions())); err != nil {
		t.Fatal(err)
	}

	wantPrefix := []string{
		"host h1", "host h2", "host h3", "host h4", "host h5",
		"switch s1", "switch s2", "switch s3", "switch s4", "switch s5",
		"link h1-eth0 s1-eth1",
	}
	if !reflect.DeepEqual(rt.calls[:len(wantPrefix)], wantPrefix) {
		t.Fatalf("unexpected call order %v", rt.calls[:len(wantPrefix)])
	}
	if n := rt.count("link "); n != 9 {
		t.Fatalf("want 9 links, got %d", n)
	}
	// only the four switch links are shaped, on both ends
	if n := rt.count("shape "); n != 8 {
		t.Fatalf("want 8 shaped interfaces, got %d", n)
	}
	if n := rt.count("arp "); n != 20 {
		t.Fatalf("want 20 arp entries, got %d", n)
	}

	var shaped []string
	for _, c := range rt.calls {
		if strings.HasPrefix(c, "shape ") {
			shaped = append(shaped, c)
		}
	}
	if shaped[0] != "shape s1-eth2 10Mbit 40ms delay" || shaped[1] != "shape s2-eth2 10Mbit 40ms delay" {
		t.Fatalf("unexpected shaping of s1-s2: %v", shaped[:2])
	}
}

func TestBuildFailureKeepsBuiltNodes(t *testing.T) {
	rt := &fakeRuntime{failOn: "switch s3"}
	b := NewBuilder(rt)
	err := b.Build(context.Background(), assignmentPlan(t, defaultPlanOptions()))
	if err == nil {
		t.Fatal("expected build error")
	}

	want := []string{"h1", "h2", "h3", "h4", "h5", "s1", "s2"}
	if !reflect.DeepEqual(b.Built(), want) {
		t.Fatalf("want built %v, got %v", want, b.Built())
	}

	rt.calls = nil
	if err := b.Teardown(); err != nil {
		t.Fatal(err)
	}
	wantDeletes := []string{"delete s2", "delete s1", "delete h5", "delete h4", "delete h3", "delete h2", "delete h1"}
	if !reflect.DeepEqual(rt.calls, wantDeletes) {
		t.Fatalf("teardown should run in reverse, got %v", rt.calls)
	}
	if len(b.Built()) != 0 {
		t.Fatal("teardown must forget built nodes")
	}
}

func TestTeardownJoinsErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	rt := &fakeRuntime{deleteErr: map[string]error{"h1": errA, "s1": errB}}
	b := NewBuilder(rt)
	if err := b.Build(context.Background(), assignmentPlan(t, defaultPlanOptions())); err != nil {
		t.Fatal(err)
	}

	err := b.Teardown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("both failures should be reported, got %v", err)
	}
	if n := rt.count("delete "); n != 10 {
		t.Fatalf("every node must be attempted, got %d deletes", n)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt := &fakeRuntime{}
	err := NewBuilder(rt).Build(ctx, assignmentPlan(t, defaultPlanOptions()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(rt.calls) != 0 {
		t.Fatalf("nothing should be created, got %v", rt.calls)
	}
}
