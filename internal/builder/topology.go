// Package builder provides convenience constructors for appliance test
// configurations, network topologies and superflows.
package builder

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/minhdang/bpagent/internal/core/errs"
)

// Network is one network segment in a topology.
type Network struct {
	Name        string `json:"name"`
	CIDR        string `json:"cidr"`
	Type        string `json:"type"`
	ClientCount int    `json:"client_count,omitempty"`
	ServerCount int    `json:"server_count,omitempty"`
}

// NetworkTopology groups the network segments a test runs across.
type NetworkTopology struct {
	ClientNetworks   []Network `json:"clientNetworks"`
	ServerNetworks   []Network `json:"serverNetworks"`
	DMZNetworks      []Network `json:"dmzNetworks"`
	ExternalNetworks []Network `json:"externalNetworks"`
}

// NewTopology creates an empty topology.
func NewTopology() *NetworkTopology {
	return &NetworkTopology{}
}

// AddClientNetwork adds a client segment.
func (t *NetworkTopology) AddClientNetwork(name, cidr string, clientCount int) {
	t.ClientNetworks = append(t.ClientNetworks, Network{
		Name: name, CIDR: cidr, Type: "client", ClientCount: clientCount,
	})
}

// AddServerNetwork adds a server segment.
func (t *NetworkTopology) AddServerNetwork(name, cidr string, serverCount int) {
	t.ServerNetworks = append(t.ServerNetworks, Network{
		Name: name, CIDR: cidr, Type: "server", ServerCount: serverCount,
	})
}

// AddDMZNetwork adds a DMZ segment.
func (t *NetworkTopology) AddDMZNetwork(name, cidr string) {
	t.DMZNetworks = append(t.DMZNetworks, Network{Name: name, CIDR: cidr, Type: "dmz"})
}

// AddExternalNetwork adds an external segment.
func (t *NetworkTopology) AddExternalNetwork(name, cidr string) {
	t.ExternalNetworks = append(t.ExternalNetworks, Network{Name: name, CIDR: cidr, Type: "external"})
}

// Validate checks that at least one client network exists and every CIDR
// parses.
func (t *NetworkTopology) Validate() error {
	if len(t.ClientNetworks) == 0 {
		return errs.Validation("topology has no client networks",
			map[string]string{"clientNetworks": "at least one required"})
	}
	for _, nw := range t.all() {
		if _, _, err := net.ParseCIDR(nw.CIDR); err != nil {
			return errs.Validation(fmt.Sprintf("network %q has invalid CIDR %q", nw.Name, nw.CIDR),
				map[string]string{"cidr": nw.CIDR})
		}
	}
	return nil
}

// ToDoc converts the topology to the wire shape the appliance expects.
func (t *NetworkTopology) ToDoc() map[string]any {
	data, _ := json.Marshal(t)
	var doc map[string]any
	_ = json.Unmarshal(data, &doc)
	return doc
}

// SaveFile writes the topology as JSON.
func (t *NetworkTopology) SaveFile(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return errs.Config(fmt.Sprintf("encode topology: %v", err), "topology", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Config(fmt.Sprintf("write topology: %v", err), "topology", path)
	}
	return nil
}

// LoadTopology reads a topology from a JSON file.
func LoadTopology(path string) (*NetworkTopology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config(fmt.Sprintf("read topology: %v", err), "topology", path)
	}
	var t NetworkTopology
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errs.Config(fmt.Sprintf("decode topology: %v", err), "topology", path)
	}
	return &t, nil
}

func (t *NetworkTopology) all() []Network {
	out := make([]Network, 0, len(t.ClientNetworks)+len(t.ServerNetworks)+len(t.DMZNetworks)+len(t.ExternalNetworks))
	out = append(out, t.ClientNetworks...)
	out = append(out, t.ServerNetworks...)
	out = append(out, t.DMZNetworks...)
	out = append(out, t.ExternalNetworks...)
	return out
}
