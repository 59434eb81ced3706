// Package registry stores per-device metadata keyed by transport identity:
// a human-readable alias and, for probes that require authentication, the
// registration code printed on the vendor's registration card. The protocol
// engine only reads through probe.RegistrationLookup; writes go through the
// Store interface used by the CLI.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Entry is the stored metadata for one device.
type Entry struct {
	Alias            string `yaml:"alias,omitempty"`
	RegistrationCode string `yaml:"registration_code,omitempty"`
}

// Store is the write side of the registry.
type Store interface {
	SetAlias(deviceID, alias string) error
	SetRegistrationCode(deviceID, code string) error
}

// Registry is a YAML-file-backed device registry. Safe for concurrent use.
type Registry struct {
	path string

	mu      sync.RWMutex
	entries map[string]Entry
}

// Load opens the registry at path. A missing file yields an empty registry;
// it is created on first write.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", path, err)
	}
	return r, nil
}

// Alias returns the stored alias for a device, if any.
func (r *Registry) Alias(deviceID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[deviceID]
	if !ok || e.Alias == "" {
		return "", false
	}
	return e.Alias, true
}

// RegistrationCode returns the stored registration code for a device, if
// any. Satisfies probe.RegistrationLookup.
func (r *Registry) RegistrationCode(deviceID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[deviceID]
	if !ok || e.RegistrationCode == "" {
		return "", false
	}
	return e.RegistrationCode, true
}

// Entries returns a snapshot of all stored entries.
func (r *Registry) Entries() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Entry, len(r.entries))
	for id, e := range r.entries {
		out[id] = e
	}
	return out
}

// SetAlias stores an alias and persists the registry.
func (r *Registry) SetAlias(deviceID, alias string) error {
	if deviceID == "" {
		return fmt.Errorf("registry: device id must not be empty")
	}
	r.mu.Lock()
	e := r.entries[deviceID]
	e.Alias = alias
	r.entries[deviceID] = e
	r.mu.Unlock()
	return r.save()
}

// SetRegistrationCode stores a registration code and persists the registry.
func (r *Registry) SetRegistrationCode(deviceID, code string) error {
	if deviceID == "" {
		return fmt.Errorf("registry: device id must not be empty")
	}
	r.mu.Lock()
	e := r.entries[deviceID]
	e.RegistrationCode = code
	r.entries[deviceID] = e
	r.mu.Unlock()
	return r.save()
}

func (r *Registry) save() error {
	r.mu.RLock()
	data, err := yaml.Marshal(r.entries)
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("registry: encoding: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("registry: creating directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("registry: writing %s: %w", r.path, err)
	}
	return nil
}

var _ Store = (*Registry)(nil)
