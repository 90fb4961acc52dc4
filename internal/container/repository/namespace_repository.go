package repository

import (
	"fmt"

	"measnet/internal/container/domain"
	"measnet/internal/container/utils"
)

type NamespaceRepository struct {
	store jsonStore
}

func NewNamespaceRepository(dir string) (*NamespaceRepository, error) {
	store, err := newJSONStore(dir)
	if err != nil {
		return nil, err
	}
	return &NamespaceRepository{store: store}, nil
}

func (nr *NamespaceRepository) Save(namespace *domain.Namespace) error {
	if namespace.ID == "" {
		id, err := utils.GenerateID()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		namespace.ID = id
	}
	return nr.store.save(namespace.ID, namespace)
}

func (nr *NamespaceRepository) FindByID(id string) (*domain.Namespace, error) {
	var namespace domain.Namespace
	if err := nr.store.load(id, &namespace); err != nil {
		return nil, err
	}
	return &namespace, nil
}

func (nr *NamespaceRepository) FindByName(name string) (*domain.Namespace, error) {
	namespaces, err := nr.List()
	if err != nil {
		return nil, err
	}
	for _, namespace := range namespaces {
		if namespace.Name == name {
			return namespace, nil
		}
	}
	return nil, fmt.Errorf("namespace with name %s not found", name)
}

func (nr *NamespaceRepository) List() ([]*domain.Namespace, error) {
	ids, err := nr.store.ids()
	if err != nil {
		return nil, err
	}
	var namespaces []*domain.Namespace
	for _, id := range ids {
		namespace, err := nr.FindByID(id)
		if err == nil {
			namespaces = append(namespaces, namespace)
		}
	}
	return namespaces, nil
}

func (nr *NamespaceRepository) Delete(id string) error {
	return nr.store.remove(id)
}
