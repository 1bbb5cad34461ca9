package server

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"logrero/src/contracts"
	"logrero/src/store"
)

// PolicyFile seeds device policies at startup:
//
//	default: ["4"]
//	devices:
//	  web-01: ["3", "4"]
//	  db-01: ["err", "crit"]
type PolicyFile struct {
	Default []string            `yaml:"default"`
	Devices map[string][]string `yaml:"devices"`
}

// LoadPolicies reads a PolicyFile from path.
func LoadPolicies(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policies file: %w", err)
	}

	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policies file %s: %w", path, err)
	}
	for id, priorities := range pf.Devices {
		if id == "" {
			return nil, fmt.Errorf("policies file %s: empty device id", path)
		}
		if priorities == nil {
			pf.Devices[id] = []string{}
		}
	}
	return &pf, nil
}

// Apply stores every device policy of the file.
func (pf *PolicyFile) Apply(ctx context.Context, st store.Store) error {
	ids := make([]string, 0, len(pf.Devices))
	for id := range pf.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := st.SetPolicy(ctx, id, contracts.Policy{Priorities: pf.Devices[id]}); err != nil {
			return fmt.Errorf("failed to seed policy for %s: %w", id, err)
		}
	}
	return nil
}

// DefaultPolicy returns the file's default policy, if it names one.
func (pf *PolicyFile) DefaultPolicy() (contracts.Policy, bool) {
	if pf.Default == nil {
		return contracts.Policy{}, false
	}
	return contracts.Policy{Priorities: append([]string(nil), pf.Default...)}, true
}
