package domain

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// AddStaticNeighbor pins a permanent ARP entry on ifname.
func AddStaticNeighbor(namespace *Namespace, ifname string, ip net.IP, mac net.HardwareAddr) error {
	h, err := namespace.Netlink()
	if err != nil {
		return err
	}
	defer h.Delete()

	link, err := h.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("lookup %s in %s: %w", ifname, namespace.Name, err)
	}

	neigh := &netlink.Neigh{
		LinkIndex:    link.Attrs().Index,
		Family:       netlink.FAMILY_V4,
		State:        netlink.NUD_PERMANENT,
		IP:           ip,
		HardwareAddr: mac,
	}
	if err := h.NeighSet(neigh); err != nil {
		return fmt.Errorf("arp %s -> %s on %s: %w", ip, mac, ifname, err)
	}
	return nil
}
