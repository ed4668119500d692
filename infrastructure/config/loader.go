package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"audioprep/infrastructure/logging"
	"audioprep/infrastructure/objectstore"
	"audioprep/infrastructure/spectral"
)

// DefaultConfigPath is where the CLI looks for configuration
const DefaultConfigPath = "config/config.yaml"

// Environment variables that override file values
const (
	EnvDownloadDir = "AUDIOPREP_DOWNLOAD_DIR"
	EnvLogLevel    = "AUDIOPREP_LOG_LEVEL"
	EnvS3AccessKey = "AUDIOPREP_S3_ACCESS_KEY"
	EnvS3SecretKey = "AUDIOPREP_S3_SECRET_KEY"
	EnvFFmpegPath  = "AUDIOPREP_FFMPEG_PATH"
)

// Publish targets
const (
	PublishNone  = ""
	PublishDrive = "drive"
	PublishS3    = "s3"
)

// Config represents the complete application configuration
type Config struct {
	Paths    PathsConfig        `yaml:"paths"`
	Fetch    FetchConfig        `yaml:"fetch"`
	FFmpeg   FFmpegConfig       `yaml:"ffmpeg"`
	Denoise  spectral.Config    `yaml:"denoise"`
	Pipeline PipelineConfig     `yaml:"pipeline"`
	History  HistoryConfig      `yaml:"history"`
	Publish  PublishConfig      `yaml:"publish"`
	Google   GoogleConfig       `yaml:"google"`
	S3       objectstore.Config `yaml:"s3"`
	Email    EmailConfig        `yaml:"email"`
	Logging  logging.Config     `yaml:"logging"`
}

// PathsConfig contains filesystem locations
type PathsConfig struct {
	DownloadDirectory string `yaml:"download_directory"`
	LockFile          string `yaml:"lock_file"`
}

// FetchConfig contains yt-dlp settings
type FetchConfig struct {
	Format      string `yaml:"format"`
	Retries     int    `yaml:"retries"`
	AutoInstall bool   `yaml:"auto_install"`
}

// FFmpegConfig contains transcoder settings
type FFmpegConfig struct {
	Path string `yaml:"path"`
}

// PipelineConfig contains driver settings
type PipelineConfig struct {
	CleanupIntermediate bool `yaml:"cleanup_intermediate"`
}

// HistoryConfig contains run history settings
type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Database string `yaml:"database"`
}

// PublishConfig selects where cleaned audio is published
type PublishConfig struct {
	Target string `yaml:"target"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	GmailTokenFile  string `yaml:"gmail_token_file"`
	FolderID        string `yaml:"folder_id"`
}

// EmailConfig contains email notification settings
type EmailConfig struct {
	FromName    string                     `yaml:"from_name"`
	FromAddress string                     `yaml:"from_address"`
	SenderName  string                     `yaml:"sender_name"`
	DefaultCC   []RecipientConfig          `yaml:"default_cc"`
	Recipients  map[string]RecipientConfig `yaml:"recipients"`
}

// RecipientConfig represents an email recipient.
// Key is only stored for default_cc entries; recipients are keyed by the map.
type RecipientConfig struct {
	Key     string `yaml:"key,omitempty"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Default returns a configuration that runs the pipeline with no file present
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DownloadDirectory: "downloads",
		},
		Fetch: FetchConfig{
			Format:  "bestaudio",
			Retries: 1,
		},
		FFmpeg:  FFmpegConfig{Path: "ffmpeg"},
		Denoise: spectral.DefaultConfig(),
		History: HistoryConfig{
			Enabled:  true,
			Database: filepath.Join("state", "history.db"),
		},
		Google: GoogleConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			GmailTokenFile:  "gmail_token.json",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads and parses the configuration from the specified YAML file.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, but a missing file yields Default()
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file values with AUDIOPREP_* environment variables
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDownloadDir)); v != "" {
		c.Paths.DownloadDirectory = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvS3AccessKey); v != "" {
		c.S3.AccessKey = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		c.S3.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFFmpegPath)); v != "" {
		c.FFmpeg.Path = v
	}
}

// Validate checks values that would otherwise fail deep inside a stage
func (c *Config) Validate() error {
	if c.Paths.DownloadDirectory == "" {
		return fmt.Errorf("paths.download_directory is required")
	}
	switch c.Publish.Target {
	case PublishNone, PublishDrive, PublishS3:
	default:
		return fmt.Errorf("publish.target must be %q, %q or empty, got %q", PublishDrive, PublishS3, c.Publish.Target)
	}
	if err := c.Denoise.Validate(); err != nil {
		return fmt.Errorf("denoise: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
