package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for moodops.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	BackupDir  string           `toml:"backup_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Bot        BotConfig        `toml:"bot"`
	Deploy     DeployConfig     `toml:"deploy"`
}

// DatabaseConfig represents configuration for the bot database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "postgres", or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	URL     string `toml:"url,omitempty"`      // only used for type=postgres
}

// VaultConfig represents configuration for offsite snapshot archive storage.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "none", "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"` // static credentials; default AWS chain when empty
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt snapshot
// archives before vault upload.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "none", or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// BotConfig holds Telegram bot settings.
// AdminUserID is the only Telegram account allowed to run admin commands.
type BotConfig struct {
	Token       string `toml:"token,omitempty"`
	AdminUserID int64  `toml:"admin_user_id"`
}

// DeployConfig holds settings for the deploy orchestrator.
type DeployConfig struct {
	Remote      string `toml:"remote"`  // git remote, default "origin"
	Branch      string `toml:"branch"`  // git branch, default "main"
	WorkDir     string `toml:"work_dir,omitempty"`
	HealthURL   string `toml:"health_url,omitempty"` // readiness endpoint of the new deployment
	WaitSeconds int64  `toml:"wait_seconds"`         // deadline for readiness / fixed wait fallback
}

// Defaults applied to deploy settings when the config leaves them empty.
const (
	DefaultDeployRemote      = "origin"
	DefaultDeployBranch      = "main"
	DefaultDeployWaitSeconds = 120
)

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:    hostID,
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		BackupDir: filepath.Join(baseDir, "backups"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Vault: VaultConfig{Type: "none"},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "moodops.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "moodops.key"),
		},
		Deploy: DeployConfig{
			Remote:      DefaultDeployRemote,
			Branch:      DefaultDeployBranch,
			WaitSeconds: DefaultDeployWaitSeconds,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and applies environment
// overrides: DATABASE_URL switches the store to postgres and BOT_TOKEN
// overrides the Telegram token.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	applyEnv(&cfg)
	applyDeployDefaults(&cfg)
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables onto a decoded config.
func applyEnv(cfg *Config) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.Type = "postgres"
		cfg.Database.URL = url
	}
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
}

// applyDeployDefaults fills in deploy settings a config file omits.
func applyDeployDefaults(cfg *Config) {
	if cfg.Deploy.Remote == "" {
		cfg.Deploy.Remote = DefaultDeployRemote
	}
	if cfg.Deploy.Branch == "" {
		cfg.Deploy.Branch = DefaultDeployBranch
	}
	if cfg.Deploy.WaitSeconds <= 0 {
		cfg.Deploy.WaitSeconds = DefaultDeployWaitSeconds
	}
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

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
