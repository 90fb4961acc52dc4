package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// jsonStore keeps one indented JSON document per object under dir.
type jsonStore struct {
	dir string
}

func newJSONStore(dir string) (jsonStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return jsonStore{}, fmt.Errorf("create %s: %w", dir, err)
	}
	return jsonStore{dir: dir}, nil
}

func (s jsonStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s jsonStore) save(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(id))
}

func (s jsonStore) load(id string, v any) error {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s jsonStore) remove(id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ids lists stored objects in lexical order.
func (s jsonStore) ids() ([]string, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(file.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
