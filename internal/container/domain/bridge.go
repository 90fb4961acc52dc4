package domain

import (
	"fmt"
	"time"

	"github.com/vishvananda/netlink"
)

// Bridge represents a network bridge
type Bridge struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Namespace *Namespace `json:"namespace,omitempty"`
	CreatedAt string     `json:"created_at"`
	Ports     []string   `json:"ports,omitempty"`
}

func CreateBridge(name string, namespace *Namespace) (*Bridge, error) {
	h, err := namespace.Netlink()
	if err != nil {
		return nil, err
	}
	defer h.Delete()

	br := &netlink.Bridge{
		LinkAttrs: netlink.LinkAttrs{
			Name: name,
		},
	}

	if err := h.LinkAdd(br); err != nil {
		return nil, fmt.Errorf("bridge add: %w", err)
	}

	// Look up the bridge we just created to get a fresh handle
	link, err := h.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup bridge: %w", err)
	}

	if err := h.LinkSetUp(link); err != nil {
		return nil, fmt.Errorf("bridge up: %w", err)
	}

	return &Bridge{
		Name:      name,
		Namespace: namespace,
		CreatedAt: time.Now().Format(time.RFC3339),
		Ports:     []string{},
	}, nil
}

// AttachInterfaceByName enslaves an interface of the bridge's namespace and
// brings it up.
func (b *Bridge) AttachInterfaceByName(ifName string) error {
	h, err := b.Namespace.Netlink()
	if err != nil {
		return err
	}
	defer h.Delete()

	brLink, err := h.LinkByName(b.Name)
	if err != nil {
		return fmt.Errorf("lookup bridge %s: %w", b.Name, err)
	}

	ifLink, err := h.LinkByName(ifName)
	if err != nil {
		return fmt.Errorf("lookup interface %s: %w", ifName, err)
	}

	if err := h.LinkSetMaster(ifLink, brLink); err != nil {
		return fmt.Errorf("set master: %w", err)
	}

	if err := h.LinkSetUp(ifLink); err != nil {
		return fmt.Errorf("set up: %w", err)
	}

	b.Ports = append(b.Ports, ifName)
	return nil
}

// Delete removes the bridge
func (b *Bridge) Delete() error {
	if b.Namespace == nil {
		return nil
	}
	h, err := b.Namespace.Netlink()
	if err != nil {
		// Namespace already deleted, nothing to clean up
		return nil
	}
	defer h.Delete()

	if br, err := h.LinkByName(b.Name); err == nil {
		if err := h.LinkDel(br); err != nil {
			return fmt.Errorf("delete bridge %s: %w", b.Name, err)
		}
	}
	return nil
}
