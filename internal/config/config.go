package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "NEWS_AGGREGATOR_CONFIG"
	portEnv        = "PORT"
	dataDirEnv     = "DATA_DIR"
	logLevelEnv    = "LOG_LEVEL"
	logFormatEnv   = "LOG_FORMAT"
	geminiKeyEnv   = "GOOGLE_AI_API_KEY"
	openAIKeyEnv   = "OPENAI_API_KEY"
	aiProviderEnv  = "AI_PROVIDER"
	aiModelEnv     = "AI_MODEL"
	fetchEveryEnv  = "FETCH_INTERVAL"
	defaultDotEnv  = ".env"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server         ServerConfig   `yaml:"server"`
	Storage        StorageConfig  `yaml:"storage"`
	Fetch          FetchConfig    `yaml:"fetch"`
	AI             AIConfig       `yaml:"ai"`
	Logging        LoggingConfig  `yaml:"logging"`
	DefaultSources []SourceConfig `yaml:"defaultSources"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig locates the JSON data files.
type StorageConfig struct {
	DataDir       string        `yaml:"dataDir"`
	ArticlesFile  string        `yaml:"articlesFile"`
	SourcesFile   string        `yaml:"sourcesFile"`
	WriteDebounce time.Duration `yaml:"writeDebounce"`
}

// ArticlesPath joins the data directory with the articles file name.
func (s StorageConfig) ArticlesPath() string {
	return filepath.Join(s.DataDir, s.ArticlesFile)
}

// SourcesPath joins the data directory with the sources file name.
func (s StorageConfig) SourcesPath() string {
	return filepath.Join(s.DataDir, s.SourcesFile)
}

// FetchConfig controls the fetch pipeline. A zero Interval disables periodic runs.
type FetchConfig struct {
	Interval      time.Duration `yaml:"interval"`
	OnStartup     *bool         `yaml:"onStartup"`
	MaxCandidates int           `yaml:"maxCandidates"`
	FeedTimeout   time.Duration `yaml:"feedTimeout"`
	UserAgent     string        `yaml:"userAgent"`
}

// RunOnStartup reports whether a cycle runs before the server starts.
func (f FetchConfig) RunOnStartup() bool {
	return f.OnStartup == nil || *f.OnStartup
}

// AIConfig defines how to contact the generative model. An empty APIKey
// disables enrichment.
type AIConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	Endpoint          string        `yaml:"endpoint"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SourceConfig is a feed seeded when the sources file holds nothing usable.
type SourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present), the .env file and applies
// environment overrides. An empty path falls back to NEWS_AGGREGATOR_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	if err := godotenv.Load(defaultDotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", defaultDotEnv, err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Address = ":" + strings.TrimPrefix(v, ":")
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.DataDir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(aiProviderEnv); v != "" {
		c.AI.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(aiModelEnv); v != "" {
		c.AI.Model = v
	}
	switch c.AI.Provider {
	case ProviderOpenAI:
		if v := os.Getenv(openAIKeyEnv); v != "" {
			c.AI.APIKey = v
		}
	default:
		if v := os.Getenv(geminiKeyEnv); v != "" {
			c.AI.APIKey = v
		}
	}

	if v := os.Getenv(fetchEveryEnv); v != "" {
		if d, err := parseInterval(v); err != nil {
			log.Printf("config: invalid %s %q: %v", fetchEveryEnv, v, err)
		} else {
			c.Fetch.Interval = d
		}
	}
}

// parseInterval accepts a Go duration or a bare number of minutes.
func parseInterval(v string) (time.Duration, error) {
	if minutes, err := strconv.Atoi(v); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) normalize() {
	def := defaultConfig()

	if c.Fetch.MaxCandidates <= 0 {
		c.Fetch.MaxCandidates = def.Fetch.MaxCandidates
	}
	if c.Fetch.Interval < 0 {
		c.Fetch.Interval = 0
	}
	if c.AI.Provider != ProviderGemini && c.AI.Provider != ProviderOpenAI {
		log.Printf("config: unknown ai provider %q, reverting to %s", c.AI.Provider, ProviderGemini)
		c.AI.Provider = ProviderGemini
	}
	if c.AI.Model == "" || (c.AI.Provider == ProviderOpenAI && c.AI.Model == def.AI.Model) {
		c.AI.Model = defaultModel(c.AI.Provider)
	}
	if c.AI.Provider == ProviderOpenAI && c.AI.Endpoint == "" {
		c.AI.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.0-flash"
}

func mergeConfig(base, override Config) Config {
	if override.Server.Address != "" {
		base.Server.Address = override.Server.Address
	}

	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}
	if override.Storage.ArticlesFile != "" {
		base.Storage.ArticlesFile = override.Storage.ArticlesFile
	}
	if override.Storage.SourcesFile != "" {
		base.Storage.SourcesFile = override.Storage.SourcesFile
	}
	if override.Storage.WriteDebounce > 0 {
		base.Storage.WriteDebounce = override.Storage.WriteDebounce
	}

	if override.Fetch.Interval != 0 {
		base.Fetch.Interval = override.Fetch.Interval
	}
	if override.Fetch.OnStartup != nil {
		base.Fetch.OnStartup = override.Fetch.OnStartup
	}
	if override.Fetch.MaxCandidates > 0 {
		base.Fetch.MaxCandidates = override.Fetch.MaxCandidates
	}
	if override.Fetch.FeedTimeout > 0 {
		base.Fetch.FeedTimeout = override.Fetch.FeedTimeout
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}

	if override.AI.Provider != "" {
		base.AI.Provider = strings.ToLower(override.AI.Provider)
	}
	if override.AI.Model != "" {
		base.AI.Model = override.AI.Model
	}
	if override.AI.APIKey != "" {
		base.AI.APIKey = override.AI.APIKey
	}
	if override.AI.Endpoint != "" {
		base.AI.Endpoint = override.AI.Endpoint
	}
	if override.AI.Timeout > 0 {
		base.AI.Timeout = override.AI.Timeout
	}
	if override.AI.RequestsPerSecond > 0 {
		base.AI.RequestsPerSecond = override.AI.RequestsPerSecond
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.DefaultSources) > 0 {
		base.DefaultSources = override.DefaultSources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Address: ":3001"},
		Storage: StorageConfig{
			DataDir:       "data",
			ArticlesFile:  "articles.json",
			SourcesFile:   "sources.json",
			WriteDebounce: 500 * time.Millisecond,
		},
		Fetch: FetchConfig{
			Interval:      0,
			MaxCandidates: 10,
			FeedTimeout:   20 * time.Second,
			UserAgent:     "NewsAggregator/1.0",
		},
		AI: AIConfig{
			Provider: ProviderGemini,
			Model:    "gemini-2.0-flash",
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		DefaultSources: []SourceConfig{
			{Name: "G1 Tecnologia", URL: "https://g1.globo.com/rss/g1/tecnologia/"},
			{Name: "Tecnoblog", URL: "https://tecnoblog.net/feed/"},
		},
	}
}
