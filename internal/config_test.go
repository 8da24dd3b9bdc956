package internal

import (
	"strings"
	"testing"
	"time"
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

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Telemetry.Enabled() {
		t.Error("telemetry should be disabled by default")
	}
}

func TestNotebookConfig_Path(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"a.ipynb", false},
		{"work/a.ipynb", false},
		{"", true},
		{"a.txt", true},
		{"../a.ipynb", true},
		{"/abs/a.ipynb", true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			cfg := NotebookConfig{Root: "nb", Path: tc.path}
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(%q) err = %v, wantErr %v", tc.path, err, tc.wantErr)
			}
		})
	}
}

func TestNotebookConfig_BaseURL(t *testing.T) {
	cfg := NotebookConfig{Root: "nb", Path: "a.ipynb"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "/" {
		t.Errorf("base url = %q, want /", cfg.BaseURL)
	}

	cfg.BaseURL = "lab"
	if err := cfg.Validate(); err == nil {
		t.Error("base url without leading slash should fail")
	}
}

func TestTelemetryConfig(t *testing.T) {
	cfg := TelemetryConfig{Endpoint: "http://localhost:8080"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid endpoint: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("endpoint set should enable telemetry")
	}

	cfg = TelemetryConfig{Endpoint: "not a url"}
	if err := cfg.Validate(); err == nil {
		t.Error("invalid endpoint should fail")
	}

	cfg = TelemetryConfig{Timeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("negative timeout should fail")
	}
}

func TestCORSConfig(t *testing.T) {
	for _, origin := range []string{"", "*", "http://localhost:8888"} {
		cfg := CORSConfig{AllowedOrigin: origin}
		if err := cfg.Validate(); err != nil {
			t.Errorf("origin %q: %v", origin, err)
		}
	}
	cfg := CORSConfig{AllowedOrigin: "not a url"}
	if err := cfg.Validate(); err == nil {
		t.Error("invalid origin should fail")
	}
}

func TestFullConfig_RequiresStorePaths(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.GitStore.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing gitstore path should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Journal.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing journal path should fail")
	}
}
