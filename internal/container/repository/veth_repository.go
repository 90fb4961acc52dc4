package repository

import (
	"fmt"

	"measnet/internal/container/domain"
	"measnet/internal/container/utils"
)

type VethRepository struct {
	store         jsonStore
	namespaceRepo *NamespaceRepository
}

func NewVethRepository(dir string, namespaceRepo *NamespaceRepository) (*VethRepository, error) {
	store, err := newJSONStore(dir)
	if err != nil {
		return nil, err
	}
	return &VethRepository{store: store, namespaceRepo: namespaceRepo}, nil
}

func (vr *VethRepository) Save(veth *domain.Veth) error {
	if veth.ID == "" {
		id, err := utils.GenerateID()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		veth.ID = id
	}

	if vr.namespaceRepo != nil {
		for _, ns := range []*domain.Namespace{veth.NamespaceA, veth.NamespaceB} {
			if ns == nil {
				continue
			}
			if err := vr.namespaceRepo.Save(ns); err != nil {
				return fmt.Errorf("save namespace %s: %w", ns.Name, err)
			}
		}
	}

	return vr.store.save(veth.ID, veth)
}

func (vr *VethRepository) FindByID(id string) (*domain.Veth, error) {
	var veth domain.Veth
	if err := vr.store.load(id, &veth); err != nil {
		return nil, err
	}
	return &veth, nil
}

func (vr *VethRepository) FindByName(name string) (*domain.Veth, error) {
	veths, err := vr.List()
	if err != nil {
		return nil, err
	}
	for _, veth := range veths {
		if veth.Name == name || veth.PeerName == name {
			return veth, nil
		}
	}
	return nil, fmt.Errorf("veth with name %s not found", name)
}

func (vr *VethRepository) List() ([]*domain.Veth, error) {
	ids, err := vr.store.ids()
	if err != nil {
		return nil, err
	}
	var veths []*domain.Veth
	for _, id := range ids {
		veth, err := vr.FindByID(id)
		if err == nil {
			veths = append(veths, veth)
		}
	}
	return veths, nil
}

// Delete removes the veth record; its namespaces belong to their containers.
func (vr *VethRepository) Delete(id string) error {
	return vr.store.remove(id)
}
