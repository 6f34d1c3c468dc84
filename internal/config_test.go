package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkwell/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if _, err := cfg.Content.Matcher(); err != nil {
		t.Fatalf("default matcher: %v", err)
	}
}

func TestContentConfig_Invalid(t *testing.T) {
	cases := map[string]func(*ContentConfig){
		"empty root":    func(c *ContentConfig) { c.Root = "" },
		"zero queue":    func(c *ContentConfig) { c.QueueSize = 0 },
		"zero timeout":  func(c *ContentConfig) { c.RequestTimeout = 0 },
		"tiny debounce": func(c *ContentConfig) { c.Debounce = config.Duration(time.Microsecond) },
	}
	for name, mutate := range cases {
		cfg := NewDefaultConfig()
		mutate(&cfg.Content)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(t.TempDir(), "config.yaml")
	src := "app:\n  log_level: debug\n  http:\n    port: 9000\n" +
		"content:\n  root: " + root + "\n  extensions: [md]\n  request_timeout: 2s\n" +
		"sqlite:\n  path: /tmp/x.db\n"
	if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := config.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9000 || cfg.Content.Root != root {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Content.RequestTimeout.D() != 2*time.Second {
		t.Errorf("request_timeout = %v", cfg.Content.RequestTimeout.D())
	}
	if cfg.Content.Debounce.D() != 200*time.Millisecond {
		t.Errorf("debounce default lost: %v", cfg.Content.Debounce.D())
	}
	if len(cfg.Content.Extensions) != 1 || cfg.Content.Extensions[0] != "md" {
		t.Errorf("extensions = %v", cfg.Content.Extensions)
	}
}
