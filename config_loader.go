package twopc

import "gopkg.in/yaml.v3"

// LoadConfig parses a YAML (or JSON, since yaml.v3 accepts it) document
// into a Config and validates it, following flow/config_loader.go's
// ParseFlowSet: a single Unmarshal attempt followed by a Validate call,
// rather than sniffing the content type first.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MarshalConfig renders cfg as YAML, the mirror of LoadConfig, used by
// hosts that persist their tunables alongside the rest of a deployment's
// configuration (flow/config_loader.go's MarshalFlowSet counterpart).
func MarshalConfig(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
