// Package benchmark drives a concurrent HTTP load generator against a
// running ledger service, reporting throughput and latency percentiles
// for transaction-creation requests spread over a configurable set of
// account pairs.
package benchmark

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile describes one benchmark run, loaded from a YAML file so
// different load shapes don't require recompiling the tool.
type Profile struct {
	Name             string   `yaml:"name"`
	BaseURL          string   `yaml:"baseUrl"`
	BearerToken      string   `yaml:"bearerToken"`
	OrganizationID   string   `yaml:"organizationId"`
	LedgerID         string   `yaml:"ledgerId"`
	AccountIDs       []string `yaml:"accountIds"`
	Concurrency      int      `yaml:"concurrency"`
	DurationSeconds  int      `yaml:"durationSeconds"`
	RequestsPerRun   int      `yaml:"requestsPerRun"`
}

// Duration returns the configured run length, defaulting to 30s.
func (p *Profile) Duration() time.Duration {
	if p.DurationSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.DurationSeconds) * time.Second
}

// LoadProfile reads and validates a Profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("benchmark: reading profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("benchmark: parsing profile: %w", err)
	}

	if p.BaseURL == "" {
		return nil, fmt.Errorf("benchmark: profile %q missing baseUrl", path)
	}
	if len(p.AccountIDs) < 2 {
		return nil, fmt.Errorf("benchmark: profile %q needs at least 2 accountIds", path)
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 10
	}

	return &p, nil
}
