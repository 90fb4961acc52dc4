package main

import (
	"context"
	"fmt"
	"time"

	"measnet/internal/container/docker"
)

func cmdCleanup() error {
	cfg := loadConfig()
	cm, closeFn, err := managerFor(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	containers, err := cm.ListContainers()
	if err != nil {
		return err
	}

	if len(containers) > 0 {
		fmt.Printf("Found %d containers to delete\n\n", len(containers))
	}

	failed := 0
	for _, container := range containers {
		fmt.Printf("Deleting %s '%s' (ID: %.12s)...\n", container.Kind, container.Name, container.ID)

		if err := cm.DeleteContainer(container); err != nil {
			fmt.Printf("  Error deleting container: %v\n", err)
			failed++
			continue
		}

		fmt.Println("  ✓ Deleted")
	}

	if cfg.HostImage != "" {
		if err := cleanupDocker(cfg.HostImage); err != nil {
			fmt.Printf("Error cleaning Docker hosts: %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d nodes could not be removed", failed)
	}
	fmt.Println("\n✓ Cleanup complete!")
	return nil
}

// cleanupDocker removes host containers whose state record was lost.
func cleanupDocker(image string) error {
	hosts, err := docker.NewHostRuntime(image)
	if err != nil {
		return err
	}
	defer hosts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	nodes, err := hosts.Nodes(ctx)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		fmt.Printf("Removing Docker host %s...\n", node)
		if err := hosts.RemoveHost(ctx, docker.ContainerName(node)); err != nil {
			return err
		}
	}
	return nil
}
