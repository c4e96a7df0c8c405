package fees

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nftmarket/crypto"
)

type scheduleFile struct {
	Schedules map[string]scheduleEntry `yaml:"schedules"`
}

type scheduleEntry struct {
	CommissionBps uint32 `yaml:"commissionBps"`
	ListingFeeBps uint32 `yaml:"listingFeeBps"`
	Recipient     string `yaml:"recipient"`
}

// LoadFile reads a YAML schedule file and returns the named basis-point
// schedules keyed by their normalised identifier.
func LoadFile(path string) (map[string]Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fees: read schedule file: %w", err)
	}
	return parseFile(raw)
}

func parseFile(raw []byte) (map[string]Schedule, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("fees: decode schedule file: %w", err)
	}
	if len(file.Schedules) == 0 {
		return nil, fmt.Errorf("fees: schedule file defines no schedules")
	}
	out := make(map[string]Schedule, len(file.Schedules))
	for id, entry := range file.Schedules {
		normalized := NormalizeID(id)
		if normalized == "" {
			return nil, fmt.Errorf("fees: schedule id required")
		}
		addr, err := crypto.DecodeAddress(entry.Recipient)
		if err != nil {
			return nil, fmt.Errorf("fees: schedule %q recipient: %w", id, err)
		}
		schedule, err := NewBasisPoints(entry.CommissionBps, entry.ListingFeeBps, addr.Raw())
		if err != nil {
			return nil, fmt.Errorf("fees: schedule %q: %w", id, err)
		}
		out[normalized] = schedule
	}
	return out, nil
}
