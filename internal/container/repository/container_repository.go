package repository

import (
	"fmt"

	"github.com/golang/glog"

	"measnet/internal/container/domain"
	"measnet/internal/container/utils"
)

type ContainerRepository struct {
	store         jsonStore
	namespaceRepo *NamespaceRepository
	bridgeRepo    *BridgeRepository
	vethRepo      *VethRepository
}

func NewContainerRepository(dir string, namespaceRepo *NamespaceRepository, bridgeRepo *BridgeRepository, vethRepo *VethRepository) (*ContainerRepository, error) {
	store, err := newJSONStore(dir)
	if err != nil {
		return nil, err
	}
	return &ContainerRepository{
		store:         store,
		namespaceRepo: namespaceRepo,
		bridgeRepo:    bridgeRepo,
		vethRepo:      vethRepo,
	}, nil
}

// Save stores the container along with its namespace, bridges and veths.
func (cr *ContainerRepository) Save(container *domain.Container) error {
	if container.ID == "" {
		id, err := utils.GenerateID()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		container.ID = id
	}

	if container.Namespace != nil {
		if err := cr.namespaceRepo.Save(container.Namespace); err != nil {
			return fmt.Errorf("save namespace: %w", err)
		}
	}

	for i := range container.Bridges {
		if err := cr.bridgeRepo.Save(&container.Bridges[i]); err != nil {
			return fmt.Errorf("save bridge %s: %w", container.Bridges[i].Name, err)
		}
	}

	for i := range container.Veths {
		if err := cr.vethRepo.Save(&container.Veths[i]); err != nil {
			return fmt.Errorf("save veth %s: %w", container.Veths[i].Name, err)
		}
	}

	return cr.store.save(container.ID, container)
}

func (cr *ContainerRepository) FindByID(containerID string) (*domain.Container, error) {
	var container domain.Container
	if err := cr.store.load(containerID, &container); err != nil {
		return nil, err
	}
	return &container, nil
}

func (cr *ContainerRepository) FindByName(name string) (*domain.Container, error) {
	containers, err := cr.List()
	if err != nil {
		return nil, err
	}
	for _, container := range containers {
		if container.Name == name {
			return container, nil
		}
	}
	return nil, fmt.Errorf("container with name %s not found", name)
}

func (cr *ContainerRepository) List() ([]*domain.Container, error) {
	ids, err := cr.store.ids()
	if err != nil {
		return nil, err
	}
	var containers []*domain.Container
	for _, id := range ids {
		container, err := cr.FindByID(id)
		if err == nil {
			containers = append(containers, container)
		}
	}
	return containers, nil
}

// Delete removes the container record and the records it owns.
func (cr *ContainerRepository) Delete(containerID string) error {
	container, err := cr.FindByID(containerID)
	if err != nil {
		return err
	}

	if container.Namespace != nil {
		if err := cr.namespaceRepo.Delete(container.Namespace.ID); err != nil {
			glog.Warningf("delete namespace record %s: %v", container.Namespace.ID, err)
		}
	}

	for _, bridge := range container.Bridges {
		if err := cr.bridgeRepo.Delete(bridge.ID); err != nil {
			glog.Warningf("delete bridge record %s: %v", bridge.ID, err)
		}
	}

	for _, veth := range container.Veths {
		if err := cr.vethRepo.Delete(veth.ID); err != nil {
			glog.Warningf("delete veth record %s: %v", veth.ID, err)
		}
	}

	return cr.store.remove(containerID)
}
