package dimcfg

import (
	"testing"

	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`elements: 2
subscription_slots: 8
appkey_bind_slots: 2
nonvirtual_addresses: 16
virtual_addresses: 2
netkeys: 2
appkeys: 4
seq_nvm_increment: 1000
seq_threshold_low: 7340032
seq_threshold_high: 12582912
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Elements != 2 {
		t.Errorf("Elements = %d, want 2", cfg.Elements)
	}
	if cfg.IVUpdateGuardSeconds == 0 {
		t.Errorf("IVUpdateGuardSeconds should default to nonzero")
	}
}

func TestValidateRejectsBadDimensions(t *testing.T) {
	t.Run("zero elements", func(t *testing.T) {
		cfg := Default()
		cfg.Elements = 0
		err := Validate(cfg)
		if err == nil {
			t.Fatal("expected error for zero elements")
		}
		if !cfgerr.IsInvalidConfig(err) {
			t.Errorf("expected InvalidConfig classification, got %v", err)
		}
	})

	t.Run("low threshold not below high", func(t *testing.T) {
		cfg := Default()
		cfg.SeqThresholdLow = cfg.SeqThresholdHigh
		err := Validate(cfg)
		if err == nil || !cfgerr.IsInvalidConfig(err) {
			t.Fatalf("expected InvalidConfig, got %v", err)
		}
	})

	t.Run("zero nvm increment", func(t *testing.T) {
		cfg := Default()
		cfg.SeqNVMIncrement = 0
		err := Validate(cfg)
		if err == nil || !cfgerr.IsInvalidConfig(err) {
			t.Fatalf("expected InvalidConfig, got %v", err)
		}
	})
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
}
