package emulator

import (
	"context"
	"fmt"
	"io"
	"net/netip"

	"measnet/internal/config"
	"measnet/internal/container/docker"
	"measnet/internal/container/manager"
	"measnet/internal/container/repository"
	"measnet/internal/probe"
)

// KernelRuntime drives real namespaces through the container manager.
type KernelRuntime struct {
	*manager.ContainerManager
	hosts *docker.HostRuntime
}

// NewKernelRuntime opens the state repositories under cfg.StateDir and, when
// cfg.HostImage is set, connects to Docker for the hosts.
func NewKernelRuntime(cfg *config.Config) (*KernelRuntime, error) {
	repos, err := repository.InitializeRepositories(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("initialize repositories: %w", err)
	}

	kr := &KernelRuntime{}
	var opts []manager.Option
	if cfg.HostImage != "" {
		kr.hosts, err = docker.NewHostRuntime(cfg.HostImage)
		if err != nil {
			return nil, err
		}
		opts = append(opts, manager.WithHostRuntime(kr.hosts))
	}
	kr.ContainerManager = manager.NewContainerManager(repos, opts...)
	return kr, nil
}

func (kr *KernelRuntime) Exec(ctx context.Context, node string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c, ok := kr.Container(node)
	if !ok {
		return fmt.Errorf("node %s not running", node)
	}
	return kr.ExecCommand(ctx, c, cmd, stdin, stdout, stderr)
}

func (kr *KernelRuntime) Ping(ctx context.Context, node string, dst netip.Addr, opts probe.Options) (probe.Stats, error) {
	c, ok := kr.Container(node)
	if !ok || c.Namespace == nil {
		return probe.Stats{Dst: dst}, fmt.Errorf("node %s not running", node)
	}
	return probe.Ping(ctx, c.Namespace.Path, dst, opts)
}

func (kr *KernelRuntime) Close() error {
	if kr.hosts == nil {
		return nil
	}
	return kr.hosts.Close()
}
