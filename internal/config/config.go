// Package config provides configuration management for the FrameForge Agent.
// Configuration is layered: defaults, an optional config.yaml, a .env file,
// then FRAMEFORGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort          = 8797
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".frameforge"
	DefaultMaxConcurrent = 5
	DefaultStorage       = StorageLocal

	// EnvPrefix is prepended to every environment key, with dots mapped to
	// underscores: render.max_concurrent -> FRAMEFORGE_RENDER_MAX_CONCURRENT.
	EnvPrefix = "FRAMEFORGE"

	// Database filename
	DBFilename = "frameforge.db"

	StorageLocal = "local"
	StorageS3    = "s3"

	dotEnvSearchDepth = 5
)

// Artifact kinds that can have provider defaults.
var providerArtifacts = []string{"text", "image", "video"}

// secretKeys may be supplied as <KEY>_FILE pointing at a secret file.
var secretKeys = []string{
	"FRAMEFORGE_PROVIDERS_TEXT_API_KEY",
	"FRAMEFORGE_PROVIDERS_IMAGE_API_KEY",
	"FRAMEFORGE_PROVIDERS_VIDEO_API_KEY",
	"FRAMEFORGE_STORAGE_SECRET_ACCESS_KEY",
	"FRAMEFORGE_REDIS_PASSWORD",
}

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	AssetsDir() string
	Headless() bool
	MaxConcurrent() int
	Redis() RedisConfig
	Storage() StorageConfig
	ProviderDefaults(artifact string) ProviderDefaults
}

// ProviderDefaults seeds the provider for an artifact when no setting has
// been saved through the API.
type ProviderDefaults struct {
	Kind    string `mapstructure:"kind" validate:"omitempty,oneof=openai gemini relay dashscope"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// Enabled reports whether progress events should also go to Redis.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type StorageConfig struct {
	Backend         string `mapstructure:"backend" validate:"oneof=local s3"`
	Bucket          string `mapstructure:"bucket" validate:"required_if=Backend s3"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicURL       string `mapstructure:"public_url" validate:"omitempty,url"`
}

type renderConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=1,lte=32"`
}

type providersConfig struct {
	Text  ProviderDefaults `mapstructure:"text"`
	Image ProviderDefaults `mapstructure:"image"`
	Video ProviderDefaults `mapstructure:"video"`
}

type settings struct {
	Port      int             `mapstructure:"port" validate:"gte=1,lte=65535"`
	LogLevel  string          `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	DataDir   string          `mapstructure:"data_dir" validate:"required"`
	Headless  bool            `mapstructure:"headless"`
	Render    renderConfig    `mapstructure:"render"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Providers providersConfig `mapstructure:"providers"`
}

// ViperConfig is the Config implementation backed by viper.
type ViperConfig struct {
	s settings
}

var validate = validator.New()

// New loads configuration with defaults and environment variable overrides.
func New() (*ViperConfig, error) {
	loadDotEnv()
	for _, key := range secretKeys {
		readSecret(key)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(v.GetString("data_dir"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ViperConfig{s: s}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("headless", false)
	v.SetDefault("render.max_concurrent", DefaultMaxConcurrent)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.backend", DefaultStorage)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.public_url", "")

	// Keys must be known to viper for AutomaticEnv to reach them on Unmarshal.
	for _, artifact := range providerArtifacts {
		v.SetDefault("providers."+artifact+".kind", "")
		v.SetDefault("providers."+artifact+".base_url", "")
		v.SetDefault("providers."+artifact+".api_key", "")
		v.SetDefault("providers."+artifact+".model", "")
	}
}

// Port returns the HTTP server port
func (c *ViperConfig) Port() int {
	return c.s.Port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *ViperConfig) LogLevel() string {
	return c.s.LogLevel
}

// DataDir returns the data directory path
func (c *ViperConfig) DataDir() string {
	return c.s.DataDir
}

// DBPath returns the full path to the SQLite database file
func (c *ViperConfig) DBPath() string {
	return filepath.Join(c.s.DataDir, DBFilename)
}

// AssetsDir is the root for locally stored generated assets.
func (c *ViperConfig) AssetsDir() string {
	return filepath.Join(c.s.DataDir, "assets")
}

func (c *ViperConfig) Headless() bool {
	return c.s.Headless
}

// MaxConcurrent is the render queue ceiling.
func (c *ViperConfig) MaxConcurrent() int {
	return c.s.Render.MaxConcurrent
}

func (c *ViperConfig) Redis() RedisConfig {
	return c.s.Redis
}

func (c *ViperConfig) Storage() StorageConfig {
	return c.s.Storage
}

func (c *ViperConfig) ProviderDefaults(artifact string) ProviderDefaults {
	switch artifact {
	case "text":
		return c.s.Providers.Text
	case "image":
		return c.s.Providers.Image
	case "video":
		return c.s.Providers.Video
	default:
		return ProviderDefaults{}
	}
}

// SetHeadless overrides the headless flag, used by the --headless CLI flag.
func (c *ViperConfig) SetHeadless(headless bool) {
	c.s.Headless = headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// loadDotEnv loads the nearest .env walking up from the working directory.
// Variables already present in the environment win.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < dotEnvSearchDepth; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// readSecret fills envKey from the file named by envKey_FILE when envKey
// itself is unset.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
