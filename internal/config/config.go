package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported model providers.
const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	LLM       LLMConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Extract   ExtractConfig
}

type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	BodyLimit      int
	AllowedOrigins string
	// ProxyHeader names the header carrying the client address when the
	// server runs behind a reverse proxy, e.g. X-Forwarded-For. Empty means
	// the socket peer address is used.
	ProxyHeader string
	// TrustedProxies lists the proxy IPs or CIDR ranges allowed to set
	// ProxyHeader. Empty trusts every peer.
	TrustedProxies []string
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// LLMConfig holds everything the generation pipeline needs to talk to the
// model provider. Temperatures are keyed by difficulty level.
type LLMConfig struct {
	Provider           string
	ServerURL          string
	APIKey             string
	Model              string
	MaxTokens          int
	RequestTimeout     time.Duration
	MaxConcurrentCalls int64
	Temperatures       map[string]float64
	DefaultTemperature float64
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	// Successful generations allowed per client within GenerationWindow.
	GenerationMax    int64
	GenerationWindow time.Duration
	// Raw HTTP request throttle applied to the whole /api group.
	HTTPLimit  int64
	HTTPPeriod time.Duration
}

type ExtractConfig struct {
	MaxUploadBytes int64
	MaxChars       int
	// Upper bound on the decompressed XML read from a DOCX or PPTX upload.
	MaxXMLBytes int64
}

// TemperatureFor returns the sampling temperature configured for level.
func (c LLMConfig) TemperatureFor(level string) float64 {
	if t, ok := c.Temperatures[strings.ToLower(level)]; ok {
		return t
	}
	return c.DefaultTemperature
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 150)
	v.SetDefault("server.idle_timeout", 60)
	v.SetDefault("server.body_limit", 10*1024*1024)
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("server.proxy_header", "")
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "development")

	v.SetDefault("llm.provider", ProviderOllama)
	v.SetDefault("llm.server_url", "http://localhost:11434")
	v.SetDefault("llm.model", "qwen3:0.6b")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.request_timeout", 60)
	v.SetDefault("llm.max_concurrent_calls", 8)
	v.SetDefault("llm.default_temperature", 0.7)
	v.SetDefault("llm.temperatures.beginner", 0.7)
	v.SetDefault("llm.temperatures.intermediate", 0.7)
	v.SetDefault("llm.temperatures.advanced", 0.6)
	v.SetDefault("llm.temperatures.expert", 0.4)

	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.generation_max", 50)
	v.SetDefault("rate_limit.generation_window", 15*60)
	v.SetDefault("rate_limit.http_limit", 100)
	v.SetDefault("rate_limit.http_period", 15*60)

	v.SetDefault("extract.max_upload_bytes", 10*1024*1024)
	v.SetDefault("extract.max_chars", 50000)
	v.SetDefault("extract.max_xml_bytes", 32*1024*1024)
}

// LoadConfig reads .env, an optional config.yaml and the environment.
// Durations are whole seconds ("30") or Go duration strings ("30s", "1m30s").
func LoadConfig() (*Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", absPath)
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	var durErr error
	seconds := func(key string) time.Duration {
		d, err := parseSeconds(v.GetString(key))
		if err != nil && durErr == nil {
			durErr = fmt.Errorf("%s: %w", key, err)
		}
		return d
	}

	temps := make(map[string]float64)
	for _, level := range []string{"beginner", "intermediate", "advanced", "expert"} {
		temps[level] = v.GetFloat64("llm.temperatures." + level)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			ReadTimeout:    seconds("server.read_timeout"),
			WriteTimeout:   seconds("server.write_timeout"),
			IdleTimeout:    seconds("server.idle_timeout"),
			BodyLimit:      v.GetInt("server.body_limit"),
			AllowedOrigins: v.GetString("server.allowed_origins"),
			ProxyHeader:    v.GetString("server.proxy_header"),
			TrustedProxies: stringList(v, "server.trusted_proxies"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
		LLM: LLMConfig{
			Provider:           strings.ToLower(v.GetString("llm.provider")),
			ServerURL:          v.GetString("llm.server_url"),
			APIKey:             v.GetString("llm.api_key"),
			Model:              v.GetString("llm.model"),
			MaxTokens:          v.GetInt("llm.max_tokens"),
			RequestTimeout:     seconds("llm.request_timeout"),
			MaxConcurrentCalls: v.GetInt64("llm.max_concurrent_calls"),
			Temperatures:       temps,
			DefaultTemperature: v.GetFloat64("llm.default_temperature"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			GenerationMax:    v.GetInt64("rate_limit.generation_max"),
			GenerationWindow: seconds("rate_limit.generation_window"),
			HTTPLimit:        v.GetInt64("rate_limit.http_limit"),
			HTTPPeriod:       seconds("rate_limit.http_period"),
		},
		Extract: ExtractConfig{
			MaxUploadBytes: v.GetInt64("extract.max_upload_bytes"),
			MaxChars:       v.GetInt("extract.max_chars"),
			MaxXMLBytes:    v.GetInt64("extract.max_xml_bytes"),
		},
	}
	if durErr != nil {
		return nil, durErr
	}
	return cfg, nil
}

// parseSeconds accepts a bare integer as seconds, or a Go duration string.
func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}

// stringList reads a list from YAML or from a comma separated environment
// value.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOllama:
		if c.LLM.ServerURL == "" {
			return fmt.Errorf("llm.server_url is required for provider %q", c.LLM.Provider)
		}
	case ProviderOpenAI, ProviderGoogleAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("llm.request_timeout must be positive")
	}
	if c.LLM.MaxConcurrentCalls <= 0 {
		return fmt.Errorf("llm.max_concurrent_calls must be positive")
	}
	if c.RateLimit.GenerationMax <= 0 || c.RateLimit.GenerationWindow <= 0 {
		return fmt.Errorf("rate_limit.generation_max and rate_limit.generation_window must be positive")
	}
	if c.RateLimit.HTTPLimit <= 0 || c.RateLimit.HTTPPeriod <= 0 {
		return fmt.Errorf("rate_limit.http_limit and rate_limit.http_period must be positive")
	}
	if c.Extract.MaxUploadBytes <= 0 || c.Extract.MaxChars <= 0 || c.Extract.MaxXMLBytes <= 0 {
		return fmt.Errorf("extract limits must be positive")
	}
	return nil
}
