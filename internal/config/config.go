package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default models per completion provider.
var defaultModels = map[string]string{
	"groq":   "llama-3.1-8b-instant",
	"openai": "gpt-4o-mini",
}

// DefaultGenres is the allow-list used when config.yaml does not provide one.
var DefaultGenres = []string{
	"pop", "rock", "hip-hop", "electronic", "jazz", "classical",
	"country", "r&b", "reggae", "blues", "folk", "indie",
}

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	GroqKey   string
	OpenAIKey string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string

	StateSecret    string
	FrontendURL    string
	AllowedOrigins []string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port string

	Genres     []string
	Completion CompletionConfig
	Catalog    CatalogConfig
	Timeouts   TimeoutConfig
	Prompt     PromptConfig
}

type CompletionConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	FallbackEnabled  bool    `yaml:"fallback_enabled"`
	FallbackProvider string  `yaml:"fallback_provider"`
	FallbackModel    string  `yaml:"fallback_model"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
}

type CatalogConfig struct {
	SearchBatchSize   int `yaml:"search_batch_size"`
	ResultLimit       int `yaml:"result_limit"`
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type TimeoutConfig struct {
	Completion time.Duration `yaml:"completion"`
	Catalog    time.Duration `yaml:"catalog"`
}

type PromptConfig struct {
	MaxLength int `yaml:"max_length"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		GroqKey:                  os.Getenv("GROQ_API_KEY"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		SpotifyClientID:          os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret:      os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURI:       os.Getenv("SPOTIFY_REDIRECT_URI"),
		StateSecret:              os.Getenv("STATE_SECRET"),
		FrontendURL:              os.Getenv("FRONTEND_URL"),
		AllowedOrigins:           splitList(os.Getenv("ALLOWED_ORIGINS")),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if err := cfg.LoadFromYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// GROQ_MODEL only names a Groq model; it never overrides another provider's.
	if m := os.Getenv("GROQ_MODEL"); m != "" && (cfg.Completion.Provider == "" || cfg.Completion.Provider == "groq") {
		cfg.Completion.Model = m
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Genres     []string         `yaml:"genres"`
		Completion CompletionConfig `yaml:"completion"`
		Catalog    CatalogConfig    `yaml:"catalog"`
		Timeouts   TimeoutConfig    `yaml:"timeouts"`
		Prompt     PromptConfig     `yaml:"prompt"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(yamlConfig.Genres) > 0 {
		c.Genres = yamlConfig.Genres
	}

	yc := yamlConfig.Completion
	if yc.Provider != "" {
		c.Completion.Provider = yc.Provider
	}
	if yc.Model != "" {
		c.Completion.Model = yc.Model
	}
	if yc.FallbackEnabled {
		c.Completion.FallbackEnabled = true
	}
	if yc.FallbackProvider != "" {
		c.Completion.FallbackProvider = yc.FallbackProvider
	}
	if yc.FallbackModel != "" {
		c.Completion.FallbackModel = yc.FallbackModel
	}
	if yc.Temperature > 0 {
		c.Completion.Temperature = yc.Temperature
	}
	if yc.MaxTokens > 0 {
		c.Completion.MaxTokens = yc.MaxTokens
	}

	if yamlConfig.Catalog.SearchBatchSize > 0 {
		c.Catalog.SearchBatchSize = yamlConfig.Catalog.SearchBatchSize
	}
	if yamlConfig.Catalog.ResultLimit > 0 {
		c.Catalog.ResultLimit = yamlConfig.Catalog.ResultLimit
	}
	if yamlConfig.Catalog.RequestsPerMinute > 0 {
		c.Catalog.RequestsPerMinute = yamlConfig.Catalog.RequestsPerMinute
	}
	if yamlConfig.Timeouts.Completion > 0 {
		c.Timeouts.Completion = yamlConfig.Timeouts.Completion
	}
	if yamlConfig.Timeouts.Catalog > 0 {
		c.Timeouts.Catalog = yamlConfig.Timeouts.Catalog
	}
	if yamlConfig.Prompt.MaxLength > 0 {
		c.Prompt.MaxLength = yamlConfig.Prompt.MaxLength
	}

	return nil
}

func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.ServiceName == "" {
		c.ServiceName = "vibecheck-api"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.SpotifyRedirectURI == "" {
		c.SpotifyRedirectURI = "http://localhost:" + c.Port + "/api/auth/callback"
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "/"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.Genres) == 0 {
		c.Genres = append([]string(nil), DefaultGenres...)
	}

	if c.Completion.Provider == "" {
		c.Completion.Provider = "groq"
	}
	if c.Completion.Model == "" {
		c.Completion.Model = defaultModels[c.Completion.Provider]
	}
	if c.Completion.FallbackEnabled && c.Completion.FallbackProvider == "" {
		c.Completion.FallbackProvider = "openai"
	}
	if c.Completion.FallbackEnabled && c.Completion.FallbackModel == "" {
		c.Completion.FallbackModel = defaultModels[c.Completion.FallbackProvider]
	}
	if c.Completion.Temperature == 0 {
		c.Completion.Temperature = 0.2
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = 8
	}

	if c.Catalog.SearchBatchSize == 0 {
		c.Catalog.SearchBatchSize = 50
	}
	if c.Catalog.ResultLimit == 0 {
		c.Catalog.ResultLimit = 6
	}
	if c.Catalog.RequestsPerMinute == 0 {
		c.Catalog.RequestsPerMinute = 600
	}
	if c.Timeouts.Completion == 0 {
		c.Timeouts.Completion = 10 * time.Second
	}
	if c.Timeouts.Catalog == 0 {
		c.Timeouts.Catalog = 5 * time.Second
	}
	if c.Prompt.MaxLength == 0 {
		c.Prompt.MaxLength = 500
	}
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// OTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func (c *Config) OTLPHeaders() map[string]string {
	headers := map[string]string{}
	for _, pair := range splitList(c.OtelExporterOTLPHeaders) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

// ProviderKey returns the API key for a completion provider name.
func (c *Config) ProviderKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIKey
	default:
		return c.GroqKey
	}
}

func (c *Config) validate() error {
	if c.SpotifyClientID == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID is required")
	}
	if c.SpotifyClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_SECRET is required")
	}
	if c.ProviderKey(c.Completion.Provider) == "" {
		return fmt.Errorf("API key for completion provider %q is required", c.Completion.Provider)
	}
	if c.Completion.FallbackEnabled && c.ProviderKey(c.Completion.FallbackProvider) == "" {
		return fmt.Errorf("API key for fallback provider %q is required", c.Completion.FallbackProvider)
	}
	if c.IsProduction() && c.StateSecret == "" {
		return fmt.Errorf("STATE_SECRET is required in production")
	}
	if c.Catalog.SearchBatchSize < 1 || c.Catalog.SearchBatchSize > 50 {
		return fmt.Errorf("catalog.search_batch_size must be between 1 and 50")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
