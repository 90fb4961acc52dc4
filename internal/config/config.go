package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

const envPrefix = "MEASNET"

// Config holds every runtime setting of the emulator.
type Config struct {
	StateDir      string
	IPBase        netip.Prefix
	AutoSetMacs   bool
	AutoStaticArp bool
	HostImage     string
	Topology      string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("STATE_DIR", "/var/lib/measnet")
	v.SetDefault("IP_BASE", "10.0.0.0/8")
	v.SetDefault("AUTO_SET_MACS", true)
	v.SetDefault("AUTO_STATIC_ARP", true)
	v.SetDefault("HOST_IMAGE", "")
	v.SetDefault("TOPOLOGY", "")
	v.SetDefault("NEO4J_URI", "")
	v.SetDefault("NEO4J_USER", "")
	v.SetDefault("NEO4J_PASSWORD", "")
	v.SetDefault("NEO4J_DATABASE", "neo4j")
}

// Load reads the optional env-style file at path, then applies MEASNET_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			glog.V(1).Infof("config file %s not found, using defaults", path)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	base, err := netip.ParsePrefix(v.GetString("IP_BASE"))
	if err != nil {
		return nil, fmt.Errorf("parse IP_BASE: %w", err)
	}
	if !base.Addr().Is4() {
		return nil, fmt.Errorf("IP_BASE %s: only IPv4 is supported", base)
	}

	cfg := &Config{
		StateDir:      v.GetString("STATE_DIR"),
		IPBase:        base.Masked(),
		AutoSetMacs:   v.GetBool("AUTO_SET_MACS"),
		AutoStaticArp: v.GetBool("AUTO_STATIC_ARP"),
		HostImage:     v.GetString("HOST_IMAGE"),
		Topology:      v.GetString("TOPOLOGY"),
		Neo4jURI:      v.GetString("NEO4J_URI"),
		Neo4jUser:     v.GetString("NEO4J_USER"),
		Neo4jPassword: v.GetString("NEO4J_PASSWORD"),
		Neo4jDatabase: v.GetString("NEO4J_DATABASE"),
	}
	if cfg.StateDir == "" {
		return nil, errors.New("STATE_DIR must not be empty")
	}
	return cfg, nil
}

// Default returns the configuration with no file and no environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := fromViper(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Log prints every setting in key order, hiding the database password.
func (c *Config) Log() {
	settings := map[string]any{
		"state_dir":       c.StateDir,
		"ip_base":         c.IPBase.String(),
		"auto_set_macs":   c.AutoSetMacs,
		"auto_static_arp": c.AutoStaticArp,
		"host_image":      c.HostImage,
		"topology":        c.Topology,
		"neo4j_uri":       c.Neo4jURI,
		"neo4j_user":      c.Neo4jUser,
		"neo4j_database":  c.Neo4jDatabase,
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		glog.V(1).Infof("config %s=%v", k, settings[k])
	}
}
