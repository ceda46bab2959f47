package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/folio/pkg/config"
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

func TestStorageConfig_DefaultsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestStorageConfig_EmptyVaultModeDefaultsDurable(t *testing.T) {
	cfg := NewDefaultConfig().Storage
	cfg.VaultMode = ""
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.VaultMode != VaultModeDurable {
		t.Errorf("mode = %q, want %q", cfg.VaultMode, VaultModeDurable)
	}
}

func TestStorageConfig_InvalidVaultMode(t *testing.T) {
	cfg := NewDefaultConfig().Storage
	cfg.VaultMode = "forever"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid vault mode should fail validation")
	}
}

func TestStorageConfig_Paths(t *testing.T) {
	cfg := StorageConfig{
		DataDir:      "/var/lib/folio",
		SettingsFile: "storage.yaml",
		TextDB:       "/tmp/text.db",
		BlobDB:       "blobs.db",
		VaultDB:      "handles.db",
	}
	if got := cfg.SettingsPath(); got != filepath.Join("/var/lib/folio", "storage.yaml") {
		t.Errorf("SettingsPath = %q", got)
	}
	if got := cfg.TextDBPath(); got != "/tmp/text.db" {
		t.Errorf("absolute TextDB should be kept, got %q", got)
	}
	if got := cfg.VaultDBPath(); got != filepath.Join("/var/lib/folio", "handles.db") {
		t.Errorf("VaultDBPath = %q", got)
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = ""
	if err := cfg.App.Validate(); err != nil || cfg.App.LogFormat != LogFormatJSON {
		t.Errorf("empty format = %q, %v", cfg.App.LogFormat, err)
	}
	cfg.App.LogFormat = "xml"
	if err := cfg.App.Validate(); err == nil {
		t.Error("unknown log format should fail validation")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("FOLIO_TEST_DATA", "/srv/folio")
	content := `
app:
  log_format: text
  http:
    port: 9090
storage:
  data_dir: ${FOLIO_TEST_DATA}
  vault_mode: session
  watch: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogFormat != LogFormatText {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Storage.DataDir != "/srv/folio" || cfg.Storage.VaultMode != VaultModeSession || cfg.Storage.Watch {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	// Unset keys keep their defaults.
	if cfg.Storage.TextDB != "records.db" {
		t.Errorf("TextDB = %q", cfg.Storage.TextDB)
	}
}
