package main

import (
	"errors"
	"fmt"

	"measnet/internal/config"
	"measnet/internal/container/docker"
	"measnet/internal/container/manager"
)

// managerFor adds the Docker host runtime when nodes may run in containers.
func managerFor(cfg *config.Config) (*manager.ContainerManager, func(), error) {
	if cfg.HostImage == "" {
		return newManager(cfg), func() {}, nil
	}
	hosts, err := docker.NewHostRuntime(cfg.HostImage)
	if err != nil {
		return nil, nil, err
	}
	return newManager(cfg, manager.WithHostRuntime(hosts)), func() { hosts.Close() }, nil
}

func cmdRemove(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: measnet rm <container-id|name>")
	}

	cm, closeFn, err := managerFor(loadConfig())
	if err != nil {
		return err
	}
	defer closeFn()

	container, err := cm.FindContainer(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Deleting %s '%s' (ID: %.12s)...\n", container.Kind, container.Name, container.ID)

	if err := cm.DeleteContainer(container); err != nil {
		return err
	}

	fmt.Println("✓ Deleted")
	return nil
}
