package topology

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileLink struct {
	A        string  `yaml:"a"`
	B        string  `yaml:"b"`
	IPA      string  `yaml:"ip_a,omitempty"`
	IPB      string  `yaml:"ip_b,omitempty"`
	Bw       float64 `yaml:"bw,omitempty"`
	Delay    string  `yaml:"delay,omitempty"`
	Loss     float64 `yaml:"loss,omitempty"`
	MaxQueue int     `yaml:"max_queue,omitempty"`
}

type fileTopology struct {
	Name     string     `yaml:"name"`
	Hosts    []string   `yaml:"hosts"`
	Switches []string   `yaml:"switches"`
	Links    []fileLink `yaml:"links"`
}

// Marshal encodes the topology as YAML, nodes in declaration order.
func (t *Topology) Marshal() ([]byte, error) {
	ft := fileTopology{Name: t.Name}
	for _, n := range t.Hosts() {
		ft.Hosts = append(ft.Hosts, n.Name)
	}
	for _, n := range t.Switches() {
		ft.Switches = append(ft.Switches, n.Name)
	}
	for _, l := range t.Links {
		fl := fileLink{
			A:        l.NodeA,
			B:        l.NodeB,
			IPA:      l.IPA,
			IPB:      l.IPB,
			Bw:       l.Options.Bandwidth,
			Loss:     l.Options.Loss,
			MaxQueue: l.Options.MaxQueueSize,
		}
		if l.Options.Delay > 0 {
			fl.Delay = l.Options.Delay.String()
		}
		ft.Links = append(ft.Links, fl)
	}
	return yaml.Marshal(&ft)
}

// Unmarshal decodes a YAML topology. Hosts are declared before switches and
// every link is checked as it would be by AddLink.
func Unmarshal(data []byte) (*Topology, error) {
	var ft fileTopology
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ft); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}

	t := NewTopology(ft.Name)
	for _, h := range ft.Hosts {
		if err := t.AddHost(h); err != nil {
			return nil, err
		}
	}
	for _, s := range ft.Switches {
		if err := t.AddSwitch(s); err != nil {
			return nil, err
		}
	}
	for _, fl := range ft.Links {
		delay, err := ParseDelay(fl.Delay)
		if err != nil {
			return nil, fmt.Errorf("link %s-%s: %w", fl.A, fl.B, err)
		}
		err = t.AddLinkWithIPs(fl.A, fl.B, fl.IPA, fl.IPB,
			WithBandwidth(fl.Bw),
			WithDelay(delay),
			WithLoss(fl.Loss),
			WithMaxQueueSize(fl.MaxQueue),
		)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func LoadFile(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	t, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t *Topology) WriteFile(path string) error {
	data, err := t.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
