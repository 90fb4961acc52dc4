package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/golang/glog"
)

const (
	namePrefix = "measnet-"
	nodeLabel  = "measnet.node"
)

// HostRuntime runs emulated hosts as Docker containers with no network of
// their own; the emulator wires their namespace like any other host.
type HostRuntime struct {
	cli   *client.Client
	image string
}

func NewHostRuntime(imageRef string) (*HostRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &HostRuntime{cli: cli, image: imageRef}, nil
}

func ContainerName(node string) string {
	return namePrefix + node
}

func (r *HostRuntime) ensureImage(ctx context.Context) error {
	images, err := r.cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", r.image)),
	})
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	if len(images) > 0 {
		return nil
	}

	glog.Infof("*** Pulling %s", r.image)
	rc, err := r.cli.ImagePull(ctx, r.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", r.image, err)
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

// StartHost starts an idle container for node and returns its ID and the
// PID whose network namespace the host lives in.
func (r *HostRuntime) StartHost(ctx context.Context, node string) (string, int, error) {
	if err := r.ensureImage(ctx); err != nil {
		return "", 0, err
	}

	name := ContainerName(node)
	// leftover from a crashed run
	r.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})

	resp, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:    r.image,
			Hostname: node,
			Cmd:      []string{"sleep", "infinity"},
			Labels:   map[string]string{nodeLabel: node},
		},
		&container.HostConfig{
			NetworkMode: "none",
			CapAdd:      []string{"NET_ADMIN", "NET_RAW"},
		},
		nil, nil, name)
	if err != nil {
		return "", 0, fmt.Errorf("create container %s: %w", name, err)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		r.RemoveHost(ctx, resp.ID)
		return "", 0, fmt.Errorf("start container %s: %w", name, err)
	}

	info, err := r.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		r.RemoveHost(ctx, resp.ID)
		return "", 0, fmt.Errorf("inspect container %s: %w", name, err)
	}
	if info.State == nil || info.State.Pid == 0 {
		r.RemoveHost(ctx, resp.ID)
		return "", 0, fmt.Errorf("container %s is not running", name)
	}

	glog.V(1).Infof("host %s running in container %.12s (pid %d)", node, resp.ID, info.State.Pid)
	return resp.ID, info.State.Pid, nil
}

func (r *HostRuntime) RemoveHost(ctx context.Context, id string) error {
	if err := r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove container %.12s: %w", id, err)
	}
	return nil
}

// Nodes lists the node names of every container this runtime started.
func (r *HostRuntime) Nodes(ctx context.Context) ([]string, error) {
	list, err := r.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", nodeLabel)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	nodes := make([]string, 0, len(list))
	for _, c := range list {
		nodes = append(nodes, c.Labels[nodeLabel])
	}
	return nodes, nil
}

func (r *HostRuntime) Close() error {
	return r.cli.Close()
}
