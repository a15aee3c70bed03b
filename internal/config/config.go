package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the optional config file path.
const EnvConfigPath = "LOQA_IME_CONFIG"

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	TraceStdout  bool   `yaml:"trace_stdout"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Recognizer  RecognizerConfig `yaml:"recognizer"`
	History     HistoryConfig    `yaml:"history"`
	Bus         BusConfig        `yaml:"bus"`
}

type RecognizerConfig struct {
	Mode     string `yaml:"mode"` // deepspeech, whisper, exec, mock
	Command  string `yaml:"command"`
	Language string `yaml:"language"`
	// SampleRate only applies to exec and mock; model-backed engines report their own.
	SampleRate int `yaml:"sample_rate"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	Subject        string   `yaml:"subject"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-ime",
		Environment: "desktop",
		HTTP: HTTPConfig{
			Enabled: false,
			Bind:    "127.0.0.1",
			Port:    9464,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Recognizer: RecognizerConfig{
			Mode:       "deepspeech",
			Language:   "en",
			SampleRate: 16000,
		},
		History: HistoryConfig{
			Path:          "./data/loqa-ime-history.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxEntries:    1000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       false,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			Subject:        "ime.transcript.committed",
		},
	}
}

// Load reads the config file at path (if any) on top of the defaults and
// applies LOQA_IME_* environment overrides.
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

// LoadFromEnv loads the file named by LOQA_IME_CONFIG, or defaults when unset.
func LoadFromEnv() (Config, error) {
	return Load(strings.TrimSpace(os.Getenv(EnvConfigPath)))
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_IME_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_IME_ENVIRONMENT")
	overrideBool(&cfg.HTTP.Enabled, "LOQA_IME_HTTP_ENABLED")
	overrideString(&cfg.HTTP.Bind, "LOQA_IME_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_IME_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_IME_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_IME_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_IME_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "LOQA_IME_TELEMETRY_TRACE_STDOUT")
	overrideString(&cfg.Recognizer.Mode, "LOQA_IME_RECOGNIZER_MODE")
	overrideString(&cfg.Recognizer.Command, "LOQA_IME_RECOGNIZER_COMMAND")
	overrideString(&cfg.Recognizer.Language, "LOQA_IME_RECOGNIZER_LANGUAGE")
	overrideInt(&cfg.Recognizer.SampleRate, "LOQA_IME_RECOGNIZER_SAMPLE_RATE")
	overrideString(&cfg.History.Path, "LOQA_IME_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "LOQA_IME_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "LOQA_IME_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxEntries, "LOQA_IME_HISTORY_MAX_ENTRIES")
	overrideBool(&cfg.History.VacuumOnStart, "LOQA_IME_HISTORY_VACUUM_ON_START")
	overrideBool(&cfg.Bus.Enabled, "LOQA_IME_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOQA_IME_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_IME_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LOQA_IME_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_IME_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_IME_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_IME_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_IME_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_IME_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_IME_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.Subject, "LOQA_IME_BUS_SUBJECT")
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

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	if cfg.HTTP.Enabled && (cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535) {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch cfg.Recognizer.Mode {
	case "deepspeech", "whisper", "exec", "mock":
	default:
		return errors.New("recognizer.mode must be one of deepspeech|whisper|exec|mock")
	}
	if cfg.Recognizer.Mode == "exec" && cfg.Recognizer.Command == "" {
		return errors.New("recognizer.command must be set when mode=exec")
	}
	if (cfg.Recognizer.Mode == "exec" || cfg.Recognizer.Mode == "mock") && cfg.Recognizer.SampleRate <= 0 {
		return errors.New("recognizer.sample_rate must be positive")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionMode != "ephemeral" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Subject == "" {
			return errors.New("bus.subject must not be empty when the bus is enabled")
		}
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	return nil
}
