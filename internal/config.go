package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Vault modes.
const (
	// VaultModeDurable keeps the last granted directory across restarts.
	VaultModeDurable = "durable"
	// VaultModeSession forgets it when the process exits, so every start
	// needs a fresh grant.
	VaultModeSession = "session"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig locates the application's own state: the storage settings
// file, the fallback databases and the capability vault. Relative file names
// are resolved against DataDir.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	SettingsFile string `yaml:"settings_file"`
	TextDB       string `yaml:"text_db"`
	BlobDB       string `yaml:"blob_db"`
	VaultDB      string `yaml:"vault_db"`
	VaultMode    string `yaml:"vault_mode"`
	Watch        bool   `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.VaultMode == "" {
		c.VaultMode = VaultModeDurable
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.SettingsFile, validation.Required),
		validation.Field(&c.TextDB, validation.Required),
		validation.Field(&c.BlobDB, validation.Required),
		validation.Field(&c.VaultDB, validation.Required),
		validation.Field(&c.VaultMode, validation.In(VaultModeDurable, VaultModeSession)),
	)
}

func (c *StorageConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// SettingsPath returns the path of the storage settings file.
func (c *StorageConfig) SettingsPath() string { return c.resolve(c.SettingsFile) }

// TextDBPath returns the path of the fallback text database.
func (c *StorageConfig) TextDBPath() string { return c.resolve(c.TextDB) }

// BlobDBPath returns the path of the fallback blob database.
func (c *StorageConfig) BlobDBPath() string { return c.resolve(c.BlobDB) }

// VaultDBPath returns the path of the durable capability vault.
func (c *StorageConfig) VaultDBPath() string { return c.resolve(c.VaultDB) }

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			DataDir:      "./data",
			SettingsFile: "storage.yaml",
			TextDB:       "records.db",
			BlobDB:       "blobs.db",
			VaultDB:      "handles.db",
			VaultMode:    VaultModeDurable,
			Watch:        true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
