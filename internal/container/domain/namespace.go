package domain

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

const (
	NETNS_BASE = "/var/run/netns"
)

// Namespace represents a network namespace
type Namespace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Path      string `json:"path"`
	// Owned namespaces are bind-mounted by us and removed on Delete. Docker
	// host namespaces belong to the container's init process instead.
	Owned bool `json:"owned"`
}

// CreateNamespace creates a named namespace and brings its loopback up.
func CreateNamespace(name string) (*Namespace, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origNS, err := netns.Get()
	if err != nil {
		return nil, fmt.Errorf("get current netns: %w", err)
	}
	defer origNS.Close()

	// NewNamed moves the calling thread into the new namespace
	ns, err := netns.NewNamed(name)
	if err != nil {
		netns.Set(origNS)
		return nil, fmt.Errorf("create netns %s: %w", name, err)
	}
	ns.Close()

	if err := netns.Set(origNS); err != nil {
		return nil, fmt.Errorf("setns back: %w", err)
	}

	namespace := &Namespace{
		Name:      name,
		CreatedAt: time.Now().Format(time.RFC3339),
		Path:      filepath.Join(NETNS_BASE, name),
		Owned:     true,
	}

	if err := namespace.loopbackUp(); err != nil {
		return nil, err
	}

	glog.V(2).Infof("netns %s created at %s", name, namespace.Path)
	return namespace, nil
}

// NamespaceOfPid wraps the network namespace of a running process.
func NamespaceOfPid(name string, pid int) (*Namespace, error) {
	namespace := &Namespace{
		Name:      name,
		CreatedAt: time.Now().Format(time.RFC3339),
		Path:      filepath.Join("/proc", strconv.Itoa(pid), "ns", "net"),
	}
	if err := namespace.loopbackUp(); err != nil {
		return nil, err
	}
	return namespace, nil
}

// Netlink opens a netlink handle bound to the namespace. The caller closes
// it with Delete.
func (ns *Namespace) Netlink() (*netlink.Handle, error) {
	target, err := netns.GetFromPath(ns.Path)
	if err != nil {
		return nil, fmt.Errorf("open netns %s: %w", ns.Name, err)
	}
	defer target.Close()

	h, err := netlink.NewHandleAt(target)
	if err != nil {
		return nil, fmt.Errorf("netlink handle in %s: %w", ns.Name, err)
	}
	return h, nil
}

func (ns *Namespace) loopbackUp() error {
	h, err := ns.Netlink()
	if err != nil {
		return err
	}
	defer h.Delete()

	lo, err := h.LinkByName("lo")
	if err != nil {
		return fmt.Errorf("lookup lo in %s: %w", ns.Name, err)
	}
	if err := h.LinkSetUp(lo); err != nil {
		return fmt.Errorf("lo up in %s: %w", ns.Name, err)
	}
	return nil
}

// Delete removes the network namespace
func (ns *Namespace) Delete() error {
	if !ns.Owned {
		return nil
	}
	if err := netns.DeleteNamed(ns.Name); err != nil {
		return fmt.Errorf("delete netns: %w", err)
	}
	return nil
}

// DeleteStaleNamespace removes a leftover named namespace, if any.
func DeleteStaleNamespace(name string) bool {
	h, err := netns.GetFromName(name)
	if err != nil {
		return false
	}
	h.Close()
	if err := netns.DeleteNamed(name); err != nil {
		glog.Warningf("delete stale netns %s: %v", name, err)
		return false
	}
	return true
}
