package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	Traces       string `yaml:"traces"` // none, stdout, otlp
}

// Level maps LogLevel onto slog, defaulting to info.
func (t TelemetryConfig) Level() slog.Level {
	switch strings.ToLower(t.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type HTTPConfig struct {
	Bind           string   `yaml:"bind"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      int      `yaml:"rate_limit_per_minute"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	Cache       CacheConfig       `yaml:"cache"`
	Capture     CaptureConfig     `yaml:"capture"`
	Translation TranslationConfig `yaml:"translation"`
	Generation  GenerationConfig  `yaml:"generation"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Client      ClientConfig      `yaml:"client"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// CacheConfig controls the synthesized audio cache.
type CacheConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"` // ephemeral, persistent
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type CaptureConfig struct {
	Mode    string `yaml:"mode"` // text, exec
	Command string `yaml:"command"`
	Locale  string `yaml:"locale"`
}

type TranslationConfig struct {
	Mode      string `yaml:"mode"` // mymemory, mock
	Endpoint  string `yaml:"endpoint"`
	Email     string `yaml:"email"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type GenerationConfig struct {
	Mode         string  `yaml:"mode"` // huggingface, ollama, openai, exec, mock
	Endpoint     string  `yaml:"endpoint"`
	Model        string  `yaml:"model"`
	Token        string  `yaml:"token"`
	Command      string  `yaml:"command"`
	MaxNewTokens int     `yaml:"max_new_tokens"`
	Temperature  float64 `yaml:"temperature"`
	TimeoutMS    int     `yaml:"timeout_ms"`
}

type SynthesisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Mode         string `yaml:"mode"` // google, mock
	LanguageCode string `yaml:"language_code"`
	Voice        string `yaml:"voice"`
	Encoding     string `yaml:"encoding"`
	ClientEmail  string `yaml:"client_email"`
	PrivateKey   string `yaml:"private_key"`
	ProjectID    string `yaml:"project_id"`
	TimeoutMS    int    `yaml:"timeout_ms"`
}

type PlaybackConfig struct {
	Mode    string `yaml:"mode"` // exec, discard
	Command string `yaml:"command"`
}

// ClientConfig configures the terminal front end.
type ClientConfig struct {
	ServerURL string `yaml:"server_url"`
	AutoPlay  bool   `yaml:"auto_play"`
}

func Default() Config {
	return Config{
		RuntimeName: "bolo",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
			RateLimit:      60,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
			Traces:       "none",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Host:           "127.0.0.1",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Cache: CacheConfig{
			Path:          "./data/bolo-audio.db",
			RetentionMode: "ephemeral",
			RetentionDays: 7,
			MaxEntries:    1000,
		},
		Capture: CaptureConfig{
			Mode:   "text",
			Locale: "bn-BD",
		},
		Translation: TranslationConfig{
			Mode:      "mymemory",
			Endpoint:  "https://api.mymemory.translated.net/get",
			TimeoutMS: 15000,
		},
		Generation: GenerationConfig{
			Mode:         "huggingface",
			Endpoint:     "https://api-inference.huggingface.co",
			Model:        "HuggingFaceH4/zephyr-7b-beta",
			MaxNewTokens: 100,
			Temperature:  0.7,
			TimeoutMS:    60000,
		},
		Synthesis: SynthesisConfig{
			Enabled:      true,
			Mode:         "google",
			LanguageCode: "bn-IN",
			Voice:        "bn-IN-Standard-B",
			Encoding:     "MP3",
			TimeoutMS:    30000,
		},
		Playback: PlaybackConfig{
			Mode:    "exec",
			Command: "mpg123 -q -",
		},
		Client: ClientConfig{
			ServerURL: "http://localhost:8080",
			AutoPlay:  true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "BOLO_RUNTIME_NAME")
	overrideString(&cfg.Environment, "BOLO_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "BOLO_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "BOLO_HTTP_PORT")
	overrideStringSlice(&cfg.HTTP.AllowedOrigins, "BOLO_HTTP_ALLOWED_ORIGINS")
	overrideInt(&cfg.HTTP.RateLimit, "BOLO_HTTP_RATE_LIMIT_PER_MINUTE")
	overrideString(&cfg.Telemetry.LogLevel, "BOLO_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "BOLO_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "BOLO_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.Traces, "BOLO_TELEMETRY_TRACES")
	overrideBool(&cfg.Bus.Enabled, "BOLO_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "BOLO_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "BOLO_BUS_PORT")
	overrideString(&cfg.Bus.Host, "BOLO_BUS_HOST")
	overrideStringSlice(&cfg.Bus.Servers, "BOLO_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "BOLO_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "BOLO_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "BOLO_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "BOLO_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "BOLO_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Cache.Path, "BOLO_CACHE_PATH")
	overrideString(&cfg.Cache.RetentionMode, "BOLO_CACHE_RETENTION_MODE")
	overrideInt(&cfg.Cache.RetentionDays, "BOLO_CACHE_RETENTION_DAYS")
	overrideInt(&cfg.Cache.MaxEntries, "BOLO_CACHE_MAX_ENTRIES")
	overrideBool(&cfg.Cache.VacuumOnStart, "BOLO_CACHE_VACUUM_ON_START")
	overrideString(&cfg.Capture.Mode, "BOLO_CAPTURE_MODE")
	overrideString(&cfg.Capture.Command, "BOLO_CAPTURE_COMMAND")
	overrideString(&cfg.Capture.Locale, "BOLO_CAPTURE_LOCALE")
	overrideString(&cfg.Translation.Mode, "BOLO_TRANSLATION_MODE")
	overrideString(&cfg.Translation.Endpoint, "BOLO_TRANSLATION_ENDPOINT")
	overrideString(&cfg.Translation.Email, "BOLO_TRANSLATION_EMAIL")
	overrideInt(&cfg.Translation.TimeoutMS, "BOLO_TRANSLATION_TIMEOUT_MS")
	overrideString(&cfg.Generation.Mode, "BOLO_GENERATION_MODE")
	overrideString(&cfg.Generation.Endpoint, "BOLO_GENERATION_ENDPOINT")
	overrideString(&cfg.Generation.Model, "BOLO_GENERATION_MODEL")
	overrideString(&cfg.Generation.Command, "BOLO_GENERATION_COMMAND")
	overrideInt(&cfg.Generation.MaxNewTokens, "BOLO_GENERATION_MAX_NEW_TOKENS")
	overrideFloat(&cfg.Generation.Temperature, "BOLO_GENERATION_TEMPERATURE")
	overrideInt(&cfg.Generation.TimeoutMS, "BOLO_GENERATION_TIMEOUT_MS")
	overrideBool(&cfg.Synthesis.Enabled, "BOLO_SYNTHESIS_ENABLED")
	overrideString(&cfg.Synthesis.Mode, "BOLO_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.LanguageCode, "BOLO_SYNTHESIS_LANGUAGE_CODE")
	overrideString(&cfg.Synthesis.Voice, "BOLO_SYNTHESIS_VOICE")
	overrideString(&cfg.Synthesis.Encoding, "BOLO_SYNTHESIS_ENCODING")
	overrideInt(&cfg.Synthesis.TimeoutMS, "BOLO_SYNTHESIS_TIMEOUT_MS")
	overrideString(&cfg.Playback.Mode, "BOLO_PLAYBACK_MODE")
	overrideString(&cfg.Playback.Command, "BOLO_PLAYBACK_COMMAND")
	overrideString(&cfg.Client.ServerURL, "BOLO_CLIENT_SERVER_URL")
	overrideBool(&cfg.Client.AutoPlay, "BOLO_CLIENT_AUTO_PLAY")

	// Credentials keep the variable names the hosted deployment already uses.
	overrideString(&cfg.Synthesis.ClientEmail, "GOOGLE_CLIENT_EMAIL")
	overrideString(&cfg.Synthesis.PrivateKey, "GOOGLE_PRIVATE_KEY")
	overrideString(&cfg.Synthesis.ProjectID, "GOOGLE_PROJECT_ID")
	overrideString(&cfg.Generation.Token, "NEXT_PUBLIC_HF_API_KEY")
	overrideString(&cfg.Generation.Token, "HF_API_KEY")
	if cfg.Generation.Mode == "openai" {
		overrideString(&cfg.Generation.Token, "OPENAI_API_KEY")
	}
	overrideString(&cfg.Generation.Token, "BOLO_GENERATION_TOKEN")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.New("http.rate_limit_per_minute must be >= 0")
	}
	switch cfg.Telemetry.Traces {
	case "none", "stdout":
	case "otlp":
		if strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) == "" {
			return errors.New("telemetry.otlp_endpoint must be set when traces=otlp")
		}
	default:
		return errors.New("telemetry.traces must be one of none|stdout|otlp")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.Cache.RetentionMode {
	case "ephemeral":
	case "persistent":
		if cfg.Cache.Path == "" {
			return errors.New("cache.path must not be empty when retention_mode=persistent")
		}
	default:
		return errors.New("cache.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.Cache.RetentionDays < 0 {
		return errors.New("cache.retention_days must be >= 0")
	}
	switch cfg.Capture.Mode {
	case "text":
	case "exec":
		if cfg.Capture.Command == "" {
			return errors.New("capture.command must be set when mode=exec")
		}
	default:
		return errors.New("capture.mode must be one of text|exec")
	}
	if cfg.Capture.Locale == "" {
		return errors.New("capture.locale must not be empty")
	}
	switch cfg.Translation.Mode {
	case "mock":
	case "mymemory":
		if _, err := url.ParseRequestURI(cfg.Translation.Endpoint); err != nil {
			return fmt.Errorf("translation.endpoint is not a valid URL: %w", err)
		}
	default:
		return errors.New("translation.mode must be one of mymemory|mock")
	}
	switch cfg.Generation.Mode {
	case "mock":
	case "huggingface", "ollama", "openai":
		if cfg.Generation.Endpoint == "" && cfg.Generation.Mode != "openai" {
			return fmt.Errorf("generation.endpoint must be set when mode=%s", cfg.Generation.Mode)
		}
		if cfg.Generation.Model == "" {
			return fmt.Errorf("generation.model must be set when mode=%s", cfg.Generation.Mode)
		}
	case "exec":
		if cfg.Generation.Command == "" {
			return errors.New("generation.command must be set when mode=exec")
		}
	default:
		return errors.New("generation.mode must be one of huggingface|ollama|openai|exec|mock")
	}
	if cfg.Generation.MaxNewTokens < 0 {
		return errors.New("generation.max_new_tokens must be >= 0")
	}
	if cfg.Synthesis.Enabled {
		switch cfg.Synthesis.Mode {
		case "google", "mock":
		default:
			return errors.New("synthesis.mode must be one of google|mock")
		}
		if cfg.Synthesis.LanguageCode == "" {
			return errors.New("synthesis.language_code must not be empty")
		}
		switch cfg.Synthesis.Encoding {
		case "MP3", "LINEAR16", "OGG_OPUS":
		default:
			return errors.New("synthesis.encoding must be one of MP3|LINEAR16|OGG_OPUS")
		}
	}
	switch cfg.Playback.Mode {
	case "discard":
	case "exec":
		if cfg.Playback.Command == "" {
			return errors.New("playback.command must be set when mode=exec")
		}
	default:
		return errors.New("playback.mode must be one of exec|discard")
	}
	if cfg.Client.ServerURL == "" {
		return errors.New("client.server_url must not be empty")
	}
	return nil
}
