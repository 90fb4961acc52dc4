package main

import (
	"path/filepath"
	"testing"

	"measnet/internal/config"
	"measnet/internal/topology"
)

func TestLoadTopology(t *testing.T) {
	cfg := config.Default()

	topo, err := loadTopology(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if topo.Name != topology.AssignmentName {
		t.Fatalf("want the assignment topology, got %s", topo.Name)
	}

	line := topology.NewTopology("line")
	for _, err := range []error{
		line.AddHost("h1"),
		line.AddHost("h2"),
		line.AddLink("h1", "h2"),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "line.yaml")
	if err := line.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	cfg.Topology = path
	topo, err = loadTopology(cfg, nil)
	if err != nil || topo.Name != "line" {
		t.Fatalf("configured file not used: %v %v", err, topo)
	}

	if _, err := loadTopology(cfg, []string{filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatal("argument should take precedence over the configured file")
	}
}
