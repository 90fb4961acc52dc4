package repository

import (
	"fmt"
	"path/filepath"
)

// Repositories holds all repository instances
type Repositories struct {
	NamespaceRepo *NamespaceRepository
	BridgeRepo    *BridgeRepository
	VethRepo      *VethRepository
	ContainerRepo *ContainerRepository
}

// InitializeRepositories initializes all repositories under stateDir
func InitializeRepositories(stateDir string) (*Repositories, error) {
	namespaceRepo, err := NewNamespaceRepository(filepath.Join(stateDir, "namespaces"))
	if err != nil {
		return nil, fmt.Errorf("namespace repository: %w", err)
	}
	vethRepo, err := NewVethRepository(filepath.Join(stateDir, "veths"), namespaceRepo)
	if err != nil {
		return nil, fmt.Errorf("veth repository: %w", err)
	}
	bridgeRepo, err := NewBridgeRepository(filepath.Join(stateDir, "bridges"))
	if err != nil {
		return nil, fmt.Errorf("bridge repository: %w", err)
	}
	containerRepo, err := NewContainerRepository(filepath.Join(stateDir, "containers"), namespaceRepo, bridgeRepo, vethRepo)
	if err != nil {
		return nil, fmt.Errorf("container repository: %w", err)
	}

	return &Repositories{
		NamespaceRepo: namespaceRepo,
		BridgeRepo:    bridgeRepo,
		VethRepo:      vethRepo,
		ContainerRepo: containerRepo,
	}, nil
}
