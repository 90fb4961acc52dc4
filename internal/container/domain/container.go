package domain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

type Kind string

const (
	KindHost   Kind = "host"
	KindSwitch Kind = "switch"
)

// Container represents an emulated node with its network components
type Container struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      Kind       `json:"kind"`
	CreatedAt string     `json:"created_at"`
	Namespace *Namespace `json:"namespace,omitempty"`
	Bridges   []Bridge   `json:"bridges,omitempty"`
	Veths     []Veth     `json:"veths,omitempty"`
	// DockerID is set when the node runs inside a Docker container.
	DockerID string `json:"docker_id,omitempty"`
}

func NewContainer(name string, kind Kind) *Container {
	return &Container{
		Name:      name,
		Kind:      kind,
		CreatedAt: time.Now().Format(time.RFC3339),
		Bridges:   []Bridge{},
		Veths:     []Veth{},
	}
}

// CreateWithNamespace creates a new container and initializes its namespace
func CreateWithNamespace(name string, kind Kind) (*Container, error) {
	container := NewContainer(name, kind)

	ns, err := CreateNamespace(name)
	if err != nil {
		return nil, err
	}

	container.Namespace = ns
	return container, nil
}

// AddBridge creates and adds a bridge to the container's namespace
func (c *Container) AddBridge(name string) (*Bridge, error) {
	if c.Namespace == nil {
		return nil, fmt.Errorf("container does not have a namespace")
	}

	bridge, err := CreateBridge(name, c.Namespace)
	if err != nil {
		return nil, fmt.Errorf("create bridge: %w", err)
	}

	c.Bridges = append(c.Bridges, *bridge)
	return &c.Bridges[len(c.Bridges)-1], nil
}

// AddVeth creates a pair from this container to peer and records it on both.
func (c *Container) AddVeth(peer *Container, name, peerName string) (*Veth, error) {
	if c.Namespace == nil || peer.Namespace == nil {
		return nil, fmt.Errorf("veth %s<->%s: container does not have a namespace", name, peerName)
	}

	veth, err := CreateVeth(c.Namespace, peer.Namespace, name, peerName)
	if err != nil {
		return nil, fmt.Errorf("create veth: %w", err)
	}

	c.Veths = append(c.Veths, *veth)
	peer.Veths = append(peer.Veths, *veth)
	return veth, nil
}

// Bridge returns the container's first bridge, the switch fabric.
func (c *Container) Bridge() (*Bridge, bool) {
	if len(c.Bridges) == 0 {
		return nil, false
	}
	return &c.Bridges[0], true
}

// Exec runs a command inside the container's namespace with the given stdio.
func (c *Container) Exec(ctx context.Context, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if c.Namespace == nil {
		return fmt.Errorf("container does not have a namespace")
	}
	if len(cmd) == 0 {
		return fmt.Errorf("empty command")
	}

	execution := nsenterCmd(c.Namespace, c.Name, cmd)
	execution.Stdin = stdin
	execution.Stdout = stdout
	execution.Stderr = stderr

	if err := execution.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- execution.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		execution.Process.Kill()
		<-done
		return ctx.Err()
	}
}

// Output runs a command in the namespace and returns its combined output.
func (c *Container) Output(ctx context.Context, cmd []string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.Exec(ctx, cmd, nil, &buf, &buf)
	return buf.Bytes(), err
}

// AttachShell attaches to an interactive shell in the container's namespace
func (c *Container) AttachShell() error {
	if c.Namespace == nil {
		return fmt.Errorf("container does not have a namespace")
	}

	cmd := nsenterCmd(c.Namespace, c.Name, nil)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	return cmd.Run()
}
