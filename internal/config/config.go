package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultCredentialFile is the name of the per-vault file holding the
// snapshot server token. It lives in the vault root and is never synced.
const DefaultCredentialFile = ".vsync-credentials"

// Config represents the main configuration for vsync.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level" env:"VSYNC_LOG_LEVEL"` // debug, info, warn, error
	Sync       SyncConfig       `toml:"sync"`
	Store      StoreConfig      `toml:"store"`
	Staging    StagingConfig    `toml:"staging"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
}

// SyncConfig describes the local vault.
type SyncConfig struct {
	VaultName      string   `toml:"vault_name" env:"VSYNC_VAULT_NAME"` // defaults to the root's base name
	Root           string   `toml:"root" env:"VSYNC_ROOT"`
	Exclude        []string `toml:"exclude"`
	CredentialFile string   `toml:"credential_file"`
	Workers        int      `toml:"workers"` // concurrent file operations during extract and apply
}

// StoreConfig represents configuration for the snapshot store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "s3" or "http"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // S3-compatible stores
	S3PathStyle       bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty" env:"VSYNC_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty" env:"VSYNC_S3_SECRET_ACCESS_KEY"`

	// HTTP-specific fields (only used when Type == "http")
	HTTPURL            string `toml:"http_url,omitempty"`
	AuthToken          string `toml:"auth_token,omitempty" env:"VSYNC_AUTH_TOKEN"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds,omitempty"`
}

// StagingConfig represents configuration for staging areas.
type StagingConfig struct {
	Type       string `toml:"type"`                  // "filesystem"
	StagingDir string `toml:"staging_dir,omitempty"` // empty means the OS temp directory
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// DatabaseConfig represents configuration for the operation history.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ServerConfig configures `vsync serve`.
type ServerConfig struct {
	Addr              string `toml:"addr" env:"VSYNC_SERVER_ADDR"`
	AuthToken         string `toml:"auth_token" env:"VSYNC_AUTH_TOKEN"`
	PublicURL         string `toml:"public_url"` // base of signed /blob URLs
	SigningKey        string `toml:"signing_key" env:"VSYNC_SIGNING_KEY"`
	URLTTLSeconds     int    `toml:"url_ttl_seconds"`
	RateLimit         int    `toml:"rate_limit"` // requests per window per client
	RateWindowSeconds int    `toml:"rate_window_seconds"`
	MaxUploadBytes    int64  `toml:"max_upload_bytes"`
}

// NewConfig creates a new Config with the provided values and defaults.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:   hostID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Sync: SyncConfig{
			CredentialFile: DefaultCredentialFile,
			Workers:        8,
		},
		Store: StoreConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "store"),
		},
		Staging: StagingConfig{Type: "filesystem"},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "vsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "vsync.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Server: ServerConfig{
			Addr:              ":3000",
			URLTTLSeconds:     3600,
			RateLimit:         100,
			RateWindowSeconds: 15 * 60,
			MaxUploadBytes:    512 << 20,
		},
	}
}

// VaultIdentity returns the configured vault name, falling back to the base
// name of the vault root.
func (c *Config) VaultIdentity() string {
	if c.Sync.VaultName != "" {
		return c.Sync.VaultName
	}
	if c.Sync.Root == "" {
		return ""
	}
	abs, err := filepath.Abs(c.Sync.Root)
	if err != nil {
		return filepath.Base(c.Sync.Root)
	}
	return filepath.Base(abs)
}

// CredentialFile returns the credential file name, with the default applied.
func (c *Config) CredentialFile() string {
	if c.Sync.CredentialFile == "" {
		return DefaultCredentialFile
	}
	return c.Sync.CredentialFile
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
