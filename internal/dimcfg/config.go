// Package dimcfg holds the compile-time dimension configuration of
// spec §6: element count, per-model slice sizes, address/key table
// sizes, and the sequence-number NVM increment. A Node is always
// constructed from a validated Config so that out-of-range dimensions
// are rejected as InvalidConfig before any table is allocated, rather
// than discovered as an index panic at runtime.
package dimcfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
)

// Config is the set of dimensions a Node is sized from.
type Config struct {
	Elements              int `yaml:"elements" json:"elements"`
	SubscriptionSlots     int `yaml:"subscription_slots" json:"subscription_slots"`
	AppKeyBindSlots       int `yaml:"appkey_bind_slots" json:"appkey_bind_slots"`
	NonVirtualAddresses   int `yaml:"nonvirtual_addresses" json:"nonvirtual_addresses"`
	VirtualAddresses      int `yaml:"virtual_addresses" json:"virtual_addresses"`
	NetKeys               int `yaml:"netkeys" json:"netkeys"`
	AppKeys               int `yaml:"appkeys" json:"appkeys"`
	SeqNVMIncrement       uint32 `yaml:"seq_nvm_increment" json:"seq_nvm_increment"`
	SeqThresholdLow       uint32 `yaml:"seq_threshold_low" json:"seq_threshold_low"`
	SeqThresholdHigh      uint32 `yaml:"seq_threshold_high" json:"seq_threshold_high"`
	IVUpdateGuardSeconds  uint32 `yaml:"iv_update_guard_seconds" json:"iv_update_guard_seconds"`
	IVRecoverGuardSeconds uint32 `yaml:"iv_recover_guard_seconds" json:"iv_recover_guard_seconds"`
	GuardTimersDisabled   bool `yaml:"guard_timers_disabled" json:"guard_timers_disabled"`
}

// IVUpdateGuard is the IV update guard timer duration (spec §4.8: 96h).
func (c Config) IVUpdateGuard() time.Duration {
	return time.Duration(c.IVUpdateGuardSeconds) * time.Second
}

// IVRecoverGuard is the IV recovery guard timer duration (spec §4.8: 192h).
func (c Config) IVRecoverGuard() time.Duration {
	return time.Duration(c.IVRecoverGuardSeconds) * time.Second
}

// Default returns the production default dimensions (spec §4.4/§4.7/§4.8).
func Default() Config {
	return Config{
		Elements:            1,
		SubscriptionSlots:   16,
		AppKeyBindSlots:     4,
		NonVirtualAddresses: 32,
		VirtualAddresses:    4,
		NetKeys:             4,
		AppKeys:             16,
		SeqNVMIncrement:     1000,
		SeqThresholdLow:     0x700000,
		SeqThresholdHigh:    0xC00000,
		IVUpdateGuardSeconds:  uint32((96 * time.Hour).Seconds()),
		IVRecoverGuardSeconds: uint32((192 * time.Hour).Seconds()),
	}
}

// Load reads a YAML dimension config file, keeps the Default value
// for every field the file omits (a field set explicitly to zero stays
// zero), and validates the result against the embedded JSON Schema
// before returning it.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read dimension config %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse parses and validates YAML dimension config bytes.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode dimension config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a Config against the embedded schema and the
// cross-field invariants the schema cannot express (spec §3
// invariant (c): non-virtual and virtual address tables are sized
// independently, so both must merely be nonnegative; spec §4.7:
// low threshold must be strictly below high threshold).
func Validate(cfg Config) error {
	doc, err := toSchemaDoc(cfg)
	if err != nil {
		return cfgerr.InvalidConfig("encode dimension config for validation: %v", err)
	}

	var merr *multierror.Error
	if err := dimensionSchema().Validate(doc); err != nil {
		merr = multierror.Append(merr, err)
	}
	if cfg.SeqThresholdLow >= cfg.SeqThresholdHigh {
		merr = multierror.Append(merr, fmt.Errorf("seq_threshold_low (0x%x) must be below seq_threshold_high (0x%x)", cfg.SeqThresholdLow, cfg.SeqThresholdHigh))
	}
	if cfg.SeqNVMIncrement == 0 {
		merr = multierror.Append(merr, fmt.Errorf("seq_nvm_increment must be nonzero"))
	}
	if merr.ErrorOrNil() != nil {
		return cfgerr.InvalidConfig("invalid dimension config: %v", merr.ErrorOrNil())
	}
	return nil
}

// toSchemaDoc round-trips cfg through JSON so jsonschema sees the
// same generic document shape (float64/map[string]any) that
// encoding/json.Unmarshal would have produced.
func toSchemaDoc(cfg Config) (any, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

var compiledSchema *jsonschema.Schema

func dimensionSchema() *jsonschema.Schema {
	if compiledSchema != nil {
		return compiledSchema
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("meshnode://dimcfg.schema.json", mustUnmarshalSchema()); err != nil {
		panic(fmt.Sprintf("dimcfg: add embedded schema: %v", err))
	}
	sch, err := c.Compile("meshnode://dimcfg.schema.json")
	if err != nil {
		panic(fmt.Sprintf("dimcfg: compile embedded schema: %v", err))
	}
	compiledSchema = sch
	return sch
}

func mustUnmarshalSchema() any {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("dimcfg: parse embedded schema: %v", err))
	}
	return doc
}
