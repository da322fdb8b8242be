package config

import (
	"context"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]string{"Foo.class"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Hex != HexAuto || cfg.UseConstants != ConstantsAuto || !cfg.ShortArrayInit {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Inputs) != 1 || cfg.Inputs[0] != "Foo.class" {
		t.Fatalf("Inputs = %v", cfg.Inputs)
	}
}

func TestParse_HexAndConstantModes(t *testing.T) {
	cfg, err := Parse([]string{"--hex=always", "--use-constants=never", "Foo.class"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Hex != HexAlways {
		t.Fatalf("Hex = %v, want always", cfg.Hex)
	}
	if cfg.UseConstants != ConstantsNever {
		t.Fatalf("UseConstants = %v, want never", cfg.UseConstants)
	}
}

func TestParse_RejectsInvalidHexMode(t *testing.T) {
	if _, err := Parse([]string{"--hex=sometimes"}); err == nil {
		t.Fatalf("expected error for invalid --hex value")
	}
}

func TestParse_NoShortArrayInitAndIndentString(t *testing.T) {
	cfg, err := Parse([]string{"--no-short-array-init", "--indent=\t", "Foo.class"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ShortArrayInit {
		t.Fatalf("ShortArrayInit = true, want false")
	}
	if cfg.IndentStr != "\t" {
		t.Fatalf("IndentStr = %q, want tab", cfg.IndentStr)
	}
}

func TestContext_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Debug = true
	ctx := WithContext(context.Background(), cfg)
	got := FromContext(ctx)
	if got != cfg {
		t.Fatalf("FromContext did not return the installed Config")
	}
}

func TestContext_DefaultWhenAbsent(t *testing.T) {
	got := FromContext(context.Background())
	if got.Hex != HexAuto {
		t.Fatalf("FromContext without install = %+v, want defaults", got)
	}
}
