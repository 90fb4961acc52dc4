package repository

import (
	"fmt"

	"measnet/internal/container/domain"
	"measnet/internal/container/utils"
)

type BridgeRepository struct {
	store jsonStore
}

func NewBridgeRepository(dir string) (*BridgeRepository, error) {
	store, err := newJSONStore(dir)
	if err != nil {
		return nil, err
	}
	return &BridgeRepository{store: store}, nil
}

func (br *BridgeRepository) Save(bridge *domain.Bridge) error {
	if bridge.ID == "" {
		id, err := utils.GenerateID()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		bridge.ID = id
	}
	return br.store.save(bridge.ID, bridge)
}

func (br *BridgeRepository) FindByID(id string) (*domain.Bridge, error) {
	var bridge domain.Bridge
	if err := br.store.load(id, &bridge); err != nil {
		return nil, err
	}
	return &bridge, nil
}

func (br *BridgeRepository) FindByNamespace(namespace string) ([]*domain.Bridge, error) {
	bridges, err := br.List()
	if err != nil {
		return nil, err
	}
	var out []*domain.Bridge
	for _, bridge := range bridges {
		if bridge.Namespace != nil && bridge.Namespace.Name == namespace {
			out = append(out, bridge)
		}
	}
	return out, nil
}

func (br *BridgeRepository) List() ([]*domain.Bridge, error) {
	ids, err := br.store.ids()
	if err != nil {
		return nil, err
	}
	var bridges []*domain.Bridge
	for _, id := range ids {
		bridge, err := br.FindByID(id)
		if err == nil {
			bridges = append(bridges, bridge)
		}
	}
	return bridges, nil
}

func (br *BridgeRepository) Delete(id string) error {
	return br.store.remove(id)
}
