package topology

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
)

// Runtime materialises planned nodes and links.
type Runtime interface {
	CreateHost(name string) error
	CreateSwitch(name string) error
	CreateLink(l PlannedLink) error
	Shape(iface Interface, opts LinkOptions) error
	AddNeighbor(n Neighbor) error
	DeleteNode(name string) error
}

type Builder struct {
	rt    Runtime
	built []string
}

func NewBuilder(rt Runtime) *Builder {
	return &Builder{rt: rt}
}

// Build creates the nodes, then the links, shaping and static ARP of the
// plan. On error the nodes created so far stay recorded for Teardown.
func (b *Builder) Build(ctx context.Context, p *Plan) error {
	glog.Infof("*** Adding hosts: %v", hostNames(p.Hosts))
	for _, h := range p.Hosts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.rt.CreateHost(h.Name); err != nil {
			return fmt.Errorf("build host %s: %w", h.Name, err)
		}
		b.built = append(b.built, h.Name)
	}

	glog.Infof("*** Adding switches: %v", p.Switches)
	for _, s := range p.Switches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.rt.CreateSwitch(s); err != nil {
			return fmt.Errorf("build switch %s: %w", s, err)
		}
		b.built = append(b.built, s)
	}

	glog.Infof("*** Adding links")
	for _, l := range p.Links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.rt.CreateLink(l); err != nil {
			return fmt.Errorf("build link %s-%s: %w", l.NodeA, l.NodeB, err)
		}
		if l.Options.Shaped() {
			for _, end := range []Interface{l.A, l.B} {
				if err := b.rt.Shape(end, l.Options); err != nil {
					return fmt.Errorf("shape %s: %w", end.Name, err)
				}
			}
			glog.Infof("(%s) %s <-> %s", l.Options, l.NodeA, l.NodeB)
		} else {
			glog.V(1).Infof("%s <-> %s", l.NodeA, l.NodeB)
		}
	}

	if len(p.Neighbors) > 0 {
		glog.Infof("*** Setting static ARP entries")
		for _, n := range p.Neighbors {
			if err := b.rt.AddNeighbor(n); err != nil {
				return fmt.Errorf("arp on %s: %w", n.Node, err)
			}
		}
	}
	return nil
}

// Teardown deletes built nodes in reverse order and reports every failure.
func (b *Builder) Teardown() error {
	var errs []error
	for i := len(b.built) - 1; i >= 0; i-- {
		name := b.built[i]
		if err := b.rt.DeleteNode(name); err != nil {
			glog.Warningf("delete %s: %v", name, err)
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	b.built = nil
	return errors.Join(errs...)
}

// Built returns the names of the nodes created so far.
func (b *Builder) Built() []string {
	return append([]string(nil), b.built...)
}

func hostNames(hosts []HostPlan) []string {
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Name
	}
	return names
}
