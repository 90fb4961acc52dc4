package main

import (
	"fmt"
)

func cmdList() error {
	cm := newManager(loadConfig())

	containers, err := cm.ListContainers()
	if err != nil {
		return err
	}

	// Display containers in Docker-like format
	fmt.Printf("%-12s  %-10s  %-8s  %-30s  %-8s  %-8s  %s\n",
		"CONTAINER ID", "NAME", "KIND", "NAMESPACE", "BRIDGES", "VETHS", "CREATED")

	for _, c := range containers {
		namespacePath := "-"
		if c.Namespace != nil {
			namespacePath = c.Namespace.Path
		}

		fmt.Printf("%-12.12s  %-10s  %-8s  %-30s  %-8d  %-8d  %s\n",
			c.ID,
			c.Name,
			c.Kind,
			namespacePath,
			len(c.Bridges),
			len(c.Veths),
			c.CreatedAt,
		)
	}
	return nil
}
