package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Channel is one tracked channel from channels.yaml.
type Channel struct {
	Key    string `yaml:"key" json:"key"`       // short key used for token files and CLI args
	Name   string `yaml:"name" json:"name"`     // display name
	ID     string `yaml:"id" json:"id"`         // expected UC... id; checked against the probe when set
	Handle string `yaml:"handle" json:"handle"` // @handle, informational
}

// Registry is the set of channels the reports cover.
type Registry struct {
	Channels []Channel `yaml:"channels"`
}

// LoadRegistry reads and validates channels.yaml.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading channel registry: %w", err)
	}
	reg := &Registry{}
	if err := yaml.Unmarshal(raw, reg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(reg.Channels) == 0 {
		return nil, fmt.Errorf("%s lists no channels", path)
	}

	seen := make(map[string]bool, len(reg.Channels))
	for _, ch := range reg.Channels {
		if ch.Key == "" {
			return nil, fmt.Errorf("%s: channel with empty key", path)
		}
		if seen[ch.Key] {
			return nil, fmt.Errorf("%s: duplicate channel key %q", path, ch.Key)
		}
		seen[ch.Key] = true
	}
	return reg, nil
}

// Get looks a channel up by key.
func (r *Registry) Get(key string) (Channel, bool) {
	for _, ch := range r.Channels {
		if ch.Key == key {
			return ch, true
		}
	}
	return Channel{}, false
}

// Keys returns the channel keys in registry order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.Channels))
	for i, ch := range r.Channels {
		keys[i] = ch.Key
	}
	return keys
}
