package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.StateDir != "/var/lib/measnet" {
		t.Fatalf("unexpected state dir %q", cfg.StateDir)
	}
	if cfg.IPBase.String() != "10.0.0.0/8" {
		t.Fatalf("unexpected ip base %s", cfg.IPBase)
	}
	if !cfg.AutoSetMacs || !cfg.AutoStaticArp {
		t.Fatalf("mac and arp automation should default to on: %+v", cfg)
	}
	if cfg.HostImage != "" {
		t.Fatalf("host image should default to empty, got %q", cfg.HostImage)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "measnet.env")
	content := "STATE_DIR=" + dir + "\nIP_BASE=192.168.7.9/24\nAUTO_STATIC_ARP=false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEASNET_HOST_IMAGE", "alpine:3.20")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateDir != dir {
		t.Fatalf("state dir from file not applied: %q", cfg.StateDir)
	}
	if cfg.IPBase.String() != "192.168.7.0/24" {
		t.Fatalf("ip base should be masked, got %s", cfg.IPBase)
	}
	if cfg.AutoStaticArp {
		t.Fatal("AUTO_STATIC_ARP=false not applied")
	}
	if cfg.HostImage != "alpine:3.20" {
		t.Fatalf("env override not applied: %q", cfg.HostImage)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Neo4jDatabase != "neo4j" {
		t.Fatalf("unexpected neo4j database %q", cfg.Neo4jDatabase)
	}
}

func TestLoadRejectsBadIPBase(t *testing.T) {
	t.Setenv("MEASNET_IP_BASE", "not-a-prefix")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid IP_BASE")
	}

	t.Setenv("MEASNET_IP_BASE", "fd00::/64")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for IPv6 IP_BASE")
	}
}
