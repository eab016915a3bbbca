package core

import (
	"fmt"

	"nwbview/pkg/pluginapi"
)

// Plugin is the contract third-party reader modules implement.
type Plugin = pluginapi.Plugin

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	readers []pluginapi.Reader
	names   map[string]struct{}
}

var _ pluginapi.Registry = (*PluginRegistry)(nil)

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{names: make(map[string]struct{})}
}

// RegisterReader stores a reader contribution; names must be unique.
func (r *PluginRegistry) RegisterReader(reader pluginapi.Reader) error {
	if err := reader.Validate(); err != nil {
		return err
	}
	if _, exists := r.names[reader.Name]; exists {
		return fmt.Errorf("reader %s already registered", reader.Name)
	}
	r.names[reader.Name] = struct{}{}
	reader.Extensions = append([]string(nil), reader.Extensions...)
	r.readers = append(r.readers, reader)
	return nil
}

// Readers returns registered readers in registration order.
func (r *PluginRegistry) Readers() []pluginapi.Reader {
	out := make([]pluginapi.Reader, len(r.readers))
	copy(out, r.readers)
	return out
}

// ReaderDescriptor is the serialisable view of a reader contribution.
type ReaderDescriptor struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name    string             `json:"name"`
	Version string             `json:"version"`
	Readers []ReaderDescriptor `json:"readers"`
}

func (m PluginMetadata) clone() PluginMetadata {
	out := m
	out.Readers = make([]ReaderDescriptor, len(m.Readers))
	for i, rd := range m.Readers {
		out.Readers[i] = ReaderDescriptor{Name: rd.Name, Extensions: append([]string(nil), rd.Extensions...)}
	}
	return out
}
