package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ConfigPathEnv   = "READMEGEN_CONFIG"
	SessionStoreEnv = "READMEGEN_SESSION_STORE"
	StateKeyEnv     = "READMEGEN_STATE_KEY"

	defaultConfigFile = "config.json"
)

// ErrMissingCredential reports that no API key is available for the configured provider.
var ErrMissingCredential = errors.New("api key not found")

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Generator   GeneratorConfig           `json:"generator"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Session     SessionConfig             `json:"session"`
	Upload      UploadConfig              `json:"upload"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout"` // minutes
}

// GeneratorConfig selects which provider entry serves README generation.
type GeneratorConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type ProviderConfig struct {
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	APIKeyEnv string `json:"api_key_env"`
	MaxTokens int    `json:"max_tokens"`
}

type SessionConfig struct {
	Store         string `json:"store"`
	TTL           int    `json:"ttl"`            // minutes
	SweepInterval int    `json:"sweep_interval"` // minutes
	CookieName    string `json:"cookie_name"`
}

type UploadConfig struct {
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// DefaultUploadExtensions is the upload boundary allow-list.
var DefaultUploadExtensions = []string{
	"py", "txt", "md", "json", "yaml", "yml", "html", "css", "js",
	"xml", "csv", "toml", "ini", "sh", "bat", "ps1", "sql", "log",
	"gitignore", "dockerfile", "makefile", "requirements",
}

// Default returns a configuration that runs a single in-memory instance against Gemini.
func Default() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			ServerAddress:     ":8090",
			MinWorkers:        1,
			MaxWorkers:        4,
			QueueSize:         16,
			WorkerIdleTimeout: 5,
		},
		Generator: GeneratorConfig{Provider: "gemini"},
		Providers: map[string]ProviderConfig{
			"gemini": {Model: "gemini-2.0-flash", APIKeyEnv: "GOOGLE_API_KEY"},
			"openai": {Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
			"claude": {Model: "claude-3-5-haiku-latest", APIKeyEnv: "ANTHROPIC_API_KEY", MaxTokens: 8192},
		},
		Session: SessionConfig{
			Store:         "memory",
			TTL:           120,
			SweepInterval: 10,
			CookieName:    "readmegen_session",
		},
		Upload: UploadConfig{
			MaxUploadBytes:    10 << 20,
			AllowedExtensions: append([]string(nil), DefaultUploadExtensions...),
		},
		Databases: map[string]DatabaseConfig{
			"sqlite3": {DSN: "file:readmegen.db?_busy_timeout=5000"},
		},
	}
}

// Load reads configuration from the provided path. An empty path falls back to
// READMEGEN_CONFIG and then config.json; a missing default file yields Default().
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := true
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		path = defaultConfigFile
		explicit = false
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg := Default()
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	if store := strings.TrimSpace(os.Getenv(SessionStoreEnv)); store != "" {
		cfg.Session.Store = store
	}
	if err := cfg.normalize(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize(baseDir string) error {
	c.Generator.Provider = strings.ToLower(strings.TrimSpace(c.Generator.Provider))
	if c.Generator.Provider == "" {
		return errors.New("generator.provider must be configured")
	}
	if _, ok := c.Providers[c.Generator.Provider]; !ok {
		return fmt.Errorf("provider %s not configured", c.Generator.Provider)
	}
	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "readmegen_session"
	}
	if c.BasicConfig.MaxWorkers < c.BasicConfig.MinWorkers {
		c.BasicConfig.MaxWorkers = c.BasicConfig.MinWorkers
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = append([]string(nil), DefaultUploadExtensions...)
	}
	for name, db := range c.Databases {
		if name != "sqlite3" || db.DSN == "" || db.DSN == ":memory:" {
			continue
		}
		// relative sqlite files live next to the config file
		if !strings.HasPrefix(db.DSN, "file:") && !filepath.IsAbs(db.DSN) {
			db.DSN = filepath.Join(baseDir, db.DSN)
			c.Databases[name] = db
		}
	}
	return nil
}

// GeneratorModel returns the model name for the active provider.
func (c *Config) GeneratorModel() string {
	if m := strings.TrimSpace(c.Generator.Model); m != "" {
		return m
	}
	return c.Providers[c.Generator.Provider].Model
}

// Credential resolves the API key of the active provider from the environment.
func (c *Config) Credential() (string, error) {
	prov, ok := c.Providers[c.Generator.Provider]
	if !ok {
		return "", fmt.Errorf("provider %s not configured", c.Generator.Provider)
	}
	envName := prov.APIKeyEnv
	if envName == "" {
		envName = strings.ToUpper(c.Generator.Provider) + "_API_KEY"
	}
	key := strings.TrimSpace(os.Getenv(envName))
	if key == "" {
		return "", fmt.Errorf("%w: please set the %s environment variable", ErrMissingCredential, envName)
	}
	return key, nil
}
