package domain

import (
	"fmt"
	"net"
	"time"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"measnet/internal/container/utils"
)

// Veth represents a virtual ethernet pair
type Veth struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	PeerName   string     `json:"peer_name"`
	NamespaceA *Namespace `json:"namespace_a,omitempty"`
	NamespaceB *Namespace `json:"namespace_b,omitempty"`
	CreatedAt  string     `json:"created_at"`
}

// CreateVeth creates a pair whose ends are born directly inside their
// target namespaces, so names only need to be unique per namespace.
func CreateVeth(namespaceA, namespaceB *Namespace, nameA, nameB string) (*Veth, error) {
	nsA, err := netns.GetFromPath(namespaceA.Path)
	if err != nil {
		return nil, fmt.Errorf("open netns %s: %w", namespaceA.Name, err)
	}
	defer nsA.Close()

	nsB, err := netns.GetFromPath(namespaceB.Path)
	if err != nil {
		return nil, fmt.Errorf("open netns %s: %w", namespaceB.Name, err)
	}
	defer nsB.Close()

	v := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{
			Name:      nameA,
			Namespace: netlink.NsFd(nsA),
		},
		PeerName:      nameB,
		PeerNamespace: netlink.NsFd(nsB),
	}

	if err := netlink.LinkAdd(v); err != nil {
		return nil, fmt.Errorf("create veth %s<->%s: %w", nameA, nameB, err)
	}

	// Both containers keep a copy, so the ID must exist before either is saved
	id, err := utils.GenerateID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	return &Veth{
		ID:         id,
		Name:       nameA,
		PeerName:   nameB,
		NamespaceA: namespaceA,
		NamespaceB: namespaceB,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}, nil
}

// namespaceOf returns the namespace holding the named end.
func (v *Veth) namespaceOf(ifname string) (*Namespace, error) {
	switch ifname {
	case v.Name:
		return v.NamespaceA, nil
	case v.PeerName:
		return v.NamespaceB, nil
	}
	return nil, fmt.Errorf("%s is not an end of veth %s<->%s", ifname, v.Name, v.PeerName)
}

func (v *Veth) withEnd(ifname string, fn func(h *netlink.Handle, link netlink.Link) error) error {
	ns, err := v.namespaceOf(ifname)
	if err != nil {
		return err
	}
	h, err := ns.Netlink()
	if err != nil {
		return err
	}
	defer h.Delete()

	link, err := h.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("get link %s in %s: %w", ifname, ns.Name, err)
	}
	return fn(h, link)
}

func (v *Veth) SetHardwareAddr(ifname string, mac net.HardwareAddr) error {
	return v.withEnd(ifname, func(h *netlink.Handle, link netlink.Link) error {
		if err := h.LinkSetHardwareAddr(link, mac); err != nil {
			return fmt.Errorf("set mac %s on %s: %w", mac, ifname, err)
		}
		return nil
	})
}

// HardwareAddr reads the current MAC of an end.
func (v *Veth) HardwareAddr(ifname string) (net.HardwareAddr, error) {
	var mac net.HardwareAddr
	err := v.withEnd(ifname, func(_ *netlink.Handle, link netlink.Link) error {
		mac = link.Attrs().HardwareAddr
		return nil
	})
	return mac, err
}

// AssignIP assigns an IP address to a veth end and brings it up
func (v *Veth) AssignIP(ifname, ipCIDR string) error {
	return v.withEnd(ifname, func(h *netlink.Handle, link netlink.Link) error {
		addr, err := netlink.ParseAddr(ipCIDR)
		if err != nil {
			return fmt.Errorf("parse addr: %w", err)
		}
		if err := h.AddrAdd(link, addr); err != nil {
			return fmt.Errorf("add addr: %w", err)
		}
		if err := h.LinkSetUp(link); err != nil {
			return fmt.Errorf("set up: %w", err)
		}
		return nil
	})
}

func (v *Veth) SetUp(ifname string) error {
	return v.withEnd(ifname, func(h *netlink.Handle, link netlink.Link) error {
		return h.LinkSetUp(link)
	})
}

// Shape installs the traffic-control tree of s on one end.
func (v *Veth) Shape(ifname string, s Shaping) error {
	return v.withEnd(ifname, func(h *netlink.Handle, link netlink.Link) error {
		return s.apply(h, link)
	})
}

// Delete removes the pair; deleting either end removes both.
func (v *Veth) Delete() error {
	if v.NamespaceA == nil {
		return nil
	}
	h, err := v.NamespaceA.Netlink()
	if err != nil {
		return nil
	}
	defer h.Delete()

	if link, err := h.LinkByName(v.Name); err == nil {
		if err := h.LinkDel(link); err != nil {
			return fmt.Errorf("delete veth %s: %w", v.Name, err)
		}
	}
	return nil
}
