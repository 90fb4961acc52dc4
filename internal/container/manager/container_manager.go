package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"measnet/internal/container/domain"
	"measnet/internal/container/repository"
	"measnet/internal/topology"
)

const hostRuntimeTimeout = 2 * time.Minute

// HostRuntime runs hosts outside of bare namespaces, e.g. in Docker.
type HostRuntime interface {
	StartHost(ctx context.Context, name string) (id string, pid int, err error)
	RemoveHost(ctx context.Context, id string) error
}

type Option func(*ContainerManager)

// WithHostRuntime makes CreateHost start hosts through rt.
func WithHostRuntime(rt HostRuntime) Option {
	return func(cm *ContainerManager) { cm.hosts = rt }
}

type ContainerManager struct {
	containerRepo *repository.ContainerRepository
	hosts         HostRuntime

	mu   sync.Mutex
	live map[string]*domain.Container
}

var _ topology.Runtime = (*ContainerManager)(nil)

func NewContainerManager(repos *repository.Repositories, opts ...Option) *ContainerManager {
	cm := &ContainerManager{
		containerRepo: repos.ContainerRepo,
		live:          map[string]*domain.Container{},
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// CreateContainer creates a new container with namespace
func (cm *ContainerManager) CreateContainer(name string, kind domain.Kind) (*domain.Container, error) {
	container, err := domain.CreateWithNamespace(name, kind)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	if err := cm.track(container); err != nil {
		container.Namespace.Delete()
		return nil, err
	}
	return container, nil
}

func (cm *ContainerManager) track(container *domain.Container) error {
	if err := cm.containerRepo.Save(container); err != nil {
		return fmt.Errorf("save container: %w", err)
	}
	cm.mu.Lock()
	cm.live[container.Name] = container
	cm.mu.Unlock()
	glog.V(1).Infof("%s %s created (id %s)", container.Kind, container.Name, container.ID)
	return nil
}

func (cm *ContainerManager) CreateHost(name string) error {
	if cm.hosts == nil {
		_, err := cm.CreateContainer(name, domain.KindHost)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), hostRuntimeTimeout)
	defer cancel()

	id, pid, err := cm.hosts.StartHost(ctx, name)
	if err != nil {
		return fmt.Errorf("start host %s: %w", name, err)
	}
	ns, err := domain.NamespaceOfPid(name, pid)
	if err != nil {
		cm.hosts.RemoveHost(ctx, id)
		return err
	}

	container := domain.NewContainer(name, domain.KindHost)
	container.Namespace = ns
	container.DockerID = id
	if err := cm.track(container); err != nil {
		cm.hosts.RemoveHost(ctx, id)
		return err
	}
	return nil
}

// CreateSwitch creates a namespace holding one bridge named after the switch.
func (cm *ContainerManager) CreateSwitch(name string) error {
	container, err := cm.CreateContainer(name, domain.KindSwitch)
	if err != nil {
		return err
	}
	_, err = cm.CreateBridgeToContainer(container, name)
	return err
}

// CreateBridgeToContainer adds a bridge to an existing container
func (cm *ContainerManager) CreateBridgeToContainer(container *domain.Container, name string) (*domain.Bridge, error) {
	if container.Namespace == nil {
		return nil, fmt.Errorf("container has no namespace")
	}

	bridge, err := container.AddBridge(name)
	if err != nil {
		return nil, fmt.Errorf("add bridge: %w", err)
	}

	if err := cm.containerRepo.Save(container); err != nil {
		return nil, fmt.Errorf("save container: %w", err)
	}

	return bridge, nil
}

// CreateLink wires a veth pair between two live containers, addresses the
// host ends and enslaves switch ends to their bridge.
func (cm *ContainerManager) CreateLink(l topology.PlannedLink) error {
	a, err := cm.liveContainer(l.NodeA)
	if err != nil {
		return err
	}
	b, err := cm.liveContainer(l.NodeB)
	if err != nil {
		return err
	}

	veth, err := a.AddVeth(b, l.A.Name, l.B.Name)
	if err != nil {
		return fmt.Errorf("add veth: %w", err)
	}

	for _, end := range []struct {
		container *domain.Container
		iface     topology.Interface
	}{{a, l.A}, {b, l.B}} {
		if err := configureEnd(veth, end.container, end.iface); err != nil {
			return fmt.Errorf("configure %s: %w", end.iface.Name, err)
		}
	}

	for _, c := range []*domain.Container{a, b} {
		if err := cm.containerRepo.Save(c); err != nil {
			return fmt.Errorf("save container %s: %w", c.Name, err)
		}
	}
	return nil
}

func configureEnd(veth *domain.Veth, container *domain.Container, iface topology.Interface) error {
	if iface.MAC != nil {
		if err := veth.SetHardwareAddr(iface.Name, iface.MAC); err != nil {
			return err
		}
	}
	if bridge, ok := container.Bridge(); ok {
		return bridge.AttachInterfaceByName(iface.Name)
	}
	if iface.Addr.IsValid() {
		return veth.AssignIP(iface.Name, iface.Addr.String())
	}
	return veth.SetUp(iface.Name)
}

// Shape installs the tc tree for opts on one planned interface.
func (cm *ContainerManager) Shape(iface topology.Interface, opts topology.LinkOptions) error {
	container, err := cm.liveContainer(iface.Node)
	if err != nil {
		return err
	}
	veth, ok := findVeth(container, iface.Name)
	if !ok {
		return fmt.Errorf("%s has no interface %s", iface.Node, iface.Name)
	}
	return veth.Shape(iface.Name, shapingOf(opts))
}

func shapingOf(opts topology.LinkOptions) domain.Shaping {
	return domain.Shaping{
		Rate:  uint64(opts.Bandwidth * 1e6),
		Delay: opts.Delay,
		Loss:  opts.Loss,
		Limit: uint32(opts.MaxQueueSize),
	}
}

func findVeth(container *domain.Container, ifname string) (*domain.Veth, bool) {
	for i := range container.Veths {
		v := &container.Veths[i]
		if v.Name == ifname || v.PeerName == ifname {
			return v, true
		}
	}
	return nil, false
}

func (cm *ContainerManager) AddNeighbor(n topology.Neighbor) error {
	container, err := cm.liveContainer(n.Node)
	if err != nil {
		return err
	}
	return domain.AddStaticNeighbor(container.Namespace, n.Iface, net.IP(n.IP.AsSlice()), n.MAC)
}

// DeleteNode removes the named container, live or left over from an
// earlier run.
func (cm *ContainerManager) DeleteNode(name string) error {
	cm.mu.Lock()
	container, ok := cm.live[name]
	cm.mu.Unlock()
	if !ok {
		var err error
		if container, err = cm.containerRepo.FindByName(name); err != nil {
			return err
		}
	}
	return cm.DeleteContainer(container)
}

// Container returns a container created by this manager.
func (cm *ContainerManager) Container(name string) (*domain.Container, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	c, ok := cm.live[name]
	return c, ok
}

func (cm *ContainerManager) liveContainer(name string) (*domain.Container, error) {
	c, ok := cm.Container(name)
	if !ok {
		return nil, fmt.Errorf("container %s not created", name)
	}
	return c, nil
}

// ListContainers lists all containers
func (cm *ContainerManager) ListContainers() ([]*domain.Container, error) {
	containers, err := cm.containerRepo.List()
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	return containers, nil
}

// FindContainer matches target against container names, then ID prefixes.
func (cm *ContainerManager) FindContainer(target string) (*domain.Container, error) {
	containers, err := cm.ListContainers()
	if err != nil {
		return nil, err
	}
	for _, c := range containers {
		if c.Name == target {
			return c, nil
		}
	}
	for _, c := range containers {
		if target != "" && strings.HasPrefix(c.ID, target) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("container '%s' not found", target)
}

// AttachContainer attaches to a container shell
func (cm *ContainerManager) AttachContainer(container *domain.Container) error {
	if container.Namespace == nil {
		return fmt.Errorf("container has no namespace")
	}

	if err := container.AttachShell(); err != nil {
		return fmt.Errorf("attach to container: %w", err)
	}

	return nil
}

// ExecCommand executes a command in container
func (cm *ContainerManager) ExecCommand(ctx context.Context, container *domain.Container, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if container.Namespace == nil {
		return fmt.Errorf("container has no namespace")
	}

	glog.V(1).Infof("%s: exec %s", container.Name, strings.Join(cmd, " "))

	if err := container.Exec(ctx, cmd, stdin, stdout, stderr); err != nil {
		return fmt.Errorf("exec command: %w", err)
	}

	return nil
}

// DeleteContainer removes a container and its resources. Kernel failures are
// reported but do not stop the record from being removed.
func (cm *ContainerManager) DeleteContainer(container *domain.Container) error {
	glog.V(1).Infof("deleting %s '%s'", container.Kind, container.Name)

	var errs []error

	for _, veth := range container.Veths {
		if err := veth.Delete(); err != nil {
			errs = append(errs, fmt.Errorf("veth %s: %w", veth.Name, err))
		}
	}

	for _, bridge := range container.Bridges {
		if err := bridge.Delete(); err != nil {
			errs = append(errs, fmt.Errorf("bridge %s: %w", bridge.Name, err))
		}
	}

	if container.Namespace != nil {
		if err := container.Namespace.Delete(); err != nil {
			errs = append(errs, fmt.Errorf("namespace %s: %w", container.Namespace.Name, err))
		}
	}

	if container.DockerID != "" {
		if cm.hosts == nil {
			errs = append(errs, fmt.Errorf("docker container %s: no host runtime configured", container.DockerID))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), hostRuntimeTimeout)
			err := cm.hosts.RemoveHost(ctx, container.DockerID)
			cancel()
			if err != nil {
				errs = append(errs, fmt.Errorf("docker container %s: %w", container.DockerID, err))
			}
		}
	}

	for _, err := range errs {
		glog.Warningf("delete %s: %v", container.Name, err)
	}

	if container.ID != "" {
		if err := cm.containerRepo.Delete(container.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete container record: %w", err))
		}
	}

	cm.mu.Lock()
	if cm.live[container.Name] == container {
		delete(cm.live, container.Name)
	}
	cm.mu.Unlock()

	return errors.Join(errs...)
}

// CleanupStale removes whatever an earlier run left behind under names:
// recorded containers first, then orphaned named namespaces.
func (cm *ContainerManager) CleanupStale(names []string) int {
	containers, err := cm.ListContainers()
	if err != nil {
		glog.Warningf("cleanup: %v", err)
	}

	removed := 0
	for _, name := range names {
		if _, live := cm.Container(name); live {
			continue
		}
		found := false
		for _, c := range containers {
			if c.Name != name {
				continue
			}
			found = true
			if err := cm.DeleteContainer(c); err != nil {
				glog.Warningf("cleanup %s: %v", name, err)
			}
			removed++
		}
		if !found && domain.DeleteStaleNamespace(name) {
			removed++
		}
	}
	if removed > 0 {
		glog.Infof("*** Removed %d stale nodes", removed)
	}
	return removed
}
