package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MaxDifferencesLimit верхняя граница analysis.max_differences.
const MaxDifferencesLimit = 8

// Config конфигурация приложения.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Gemini   GeminiConfig   `yaml:"gemini" mapstructure:"gemini"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// GeminiConfig модели ансамбля и защита квоты.
type GeminiConfig struct {
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	PrimaryModel   string        `yaml:"primary_model" mapstructure:"primary_model"`
	SecondaryModel string        `yaml:"secondary_model" mapstructure:"secondary_model"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit      float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// AnalysisConfig пороги конвейера.
type AnalysisConfig struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	MaxDifferences      int           `yaml:"max_differences" mapstructure:"max_differences"`
	FallbackTimeout     time.Duration `yaml:"fallback_timeout" mapstructure:"fallback_timeout"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load читает .env, затем config.yaml (если есть) и переменные окружения.
// Ключ gemini.api_key читается из GEMINI_API_KEY, иначе из GOOGLE_API_KEY.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind gemini api key")
	}

	v.SetDefault("telegram.token", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.primary_model", "gemini-2.5-flash")
	v.SetDefault("gemini.secondary_model", "gemini-2.5-pro")
	v.SetDefault("gemini.timeout", 20*time.Second)
	v.SetDefault("gemini.rate_limit", 2.0)
	v.SetDefault("gemini.max_attempts", 3)
	v.SetDefault("analysis.confidence_threshold", 0.6)
	v.SetDefault("analysis.max_differences", 8)
	v.SetDefault("analysis.fallback_timeout", 10*time.Second)
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.fetch_timeout", 20*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Файл конфигурации необязателен
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Gemini.APIKey = strings.Trim(strings.TrimSpace(cfg.Gemini.APIKey), `"'`)

	return &cfg, nil
}

// Validate проверяет значения, без которых конвейер не работает.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return eris.New("config: GEMINI_API_KEY or GOOGLE_API_KEY is required")
	}
	if c.Analysis.ConfidenceThreshold < 0 || c.Analysis.ConfidenceThreshold > 1 {
		return eris.Errorf("config: analysis.confidence_threshold must be in [0,1], got %v", c.Analysis.ConfidenceThreshold)
	}
	if c.Analysis.MaxDifferences <= 0 || c.Analysis.MaxDifferences > MaxDifferencesLimit {
		return eris.Errorf("config: analysis.max_differences must be in [1,%d], got %d", MaxDifferencesLimit, c.Analysis.MaxDifferences)
	}
	if c.Gemini.Timeout <= 0 {
		return eris.Errorf("config: gemini.timeout must be positive, got %s", c.Gemini.Timeout)
	}
	return nil
}

// InitLogger создаёт zap-логгер и делает его глобальным.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
