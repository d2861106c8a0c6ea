package config

import "testing"

func TestParseEnvDefaults(t *testing.T) {
	var cfg struct {
		Listen string `env:"TEST_LISTEN" envDefault:"127.0.0.1:7788"`
	}
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7788" {
		t.Fatalf("Listen = %q", cfg.Listen)
	}
}

func TestParseEnvOverride(t *testing.T) {
	t.Setenv("TEST_LISTEN", "0.0.0.0:9000")
	var cfg struct {
		Listen string `env:"TEST_LISTEN" envDefault:"127.0.0.1:7788"`
	}
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Fatalf("Listen = %q", cfg.Listen)
	}
}
