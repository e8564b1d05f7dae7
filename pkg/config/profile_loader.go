package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// DistrictProfile declares the zones a district boots with. Profiles are
// operator-supplied YAML, so they are schema-validated before anything is
// seeded from them.
type DistrictProfile struct {
	District string     `yaml:"district" json:"district"`
	Operator string     `yaml:"operator" json:"operator"`
	Zones    []SeedZone `yaml:"zones" json:"zones"`
}

// SeedZone is one zone declaration in a district profile.
type SeedZone struct {
	Name        string `yaml:"name" json:"name"`
	MaxDecibel  uint64 `yaml:"max_decibel" json:"max_decibel"`
	IsQuietZone bool   `yaml:"is_quiet_zone,omitempty" json:"is_quiet_zone,omitempty"`
}

// profileSchema mirrors the decibel bounds the zone registry enforces, so a
// bad profile fails at load time instead of halfway through seeding.
const profileSchema = `{
	"type": "object",
	"required": ["district", "operator", "zones"],
	"properties": {
		"district": {"type": "string", "minLength": 1},
		"operator": {"type": "string", "minLength": 1},
		"zones": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "max_decibel"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"max_decibel": {"type": "integer", "minimum": 30, "maximum": 120},
					"is_quiet_zone": {"type": "boolean"}
				}
			}
		}
	}
}`

// LoadProfile loads and validates a district profile YAML file.
func LoadProfile(path string) (*DistrictProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(raw)
}

// ParseProfile parses and validates district profile YAML.
func ParseProfile(raw []byte) (*DistrictProfile, error) {
	var profile DistrictProfile
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	schema, err := jsonschema.CompileString("district_profile.json", profileSchema)
	if err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON-typed values.
	encoded, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return nil, err
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &profile, nil
}
