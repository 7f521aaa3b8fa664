package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/xela07ax/site-overview/internal/domain"
)

// Config — корневая структура конфигурации сервиса.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Overview OverviewConfig `mapstructure:"overview"`
	Sites    []domain.Site  `mapstructure:"sites"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL (реестр сайтов). Пустой URL — сайты из конфига.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (L2 состояний сайтов и Pub/Sub). Пустой Addr — один инстанс.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig — публичный ключ IdP для проверки JWT. Без ключа API открыт.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// EngineConfig — опрос сайтов: таймауты, fan-out и защита транспорта.
type EngineConfig struct {
	QueryTimeout  time.Duration `mapstructure:"query_timeout"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	FanoutLimit   int           `mapstructure:"fanout_limit"`
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`

	// Настройки Circuit Breaker для сайтов
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`
}

// OverviewConfig — поведение виджета.
type OverviewConfig struct {
	DecodeMode string `mapstructure:"decode_mode"` // strict, lenient
	Title      string `mapstructure:"title"`
	TitleURL   string `mapstructure:"title_url"`
	LinkBase   string `mapstructure:"link_base"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// path — явный путь к файлу (флаг --config), пустой — поиск по умолчанию.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")    // имя файла без расширения
		v.SetConfigType("yaml")      // формат
		v.AddConfigPath(".")         // ищем в корне
		v.AddConfigPath("./configs") // и в папке с конфигами
	}

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключ из ENV (Docker/K8s) или из файла
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет то, что viper проверить не может
func (c *Config) Validate() error {
	if c.Engine.FanoutLimit <= 0 {
		return fmt.Errorf("config: engine.fanout_limit must be positive")
	}
	switch c.Overview.DecodeMode {
	case "strict", "lenient":
	default:
		return fmt.Errorf("config: overview.decode_mode must be strict or lenient, got %q", c.Overview.DecodeMode)
	}
	for i, s := range c.Sites {
		switch s.Transport {
		case "", domain.TransportLivestatus, domain.TransportGRPC, domain.TransportMock:
		default:
			return fmt.Errorf("config: sites[%d]: unknown transport %q", i, s.Transport)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("engine.query_timeout", 10*time.Second)
	v.SetDefault("engine.probe_timeout", 3*time.Second)
	v.SetDefault("engine.dial_timeout", 2*time.Second)
	v.SetDefault("engine.fanout_limit", 8)
	v.SetDefault("engine.retry_attempts", 2)
	v.SetDefault("engine.rate_limit", 50)
	v.SetDefault("engine.rate_burst", 10)
	v.SetDefault("engine.cb_max_requests", 3)
	v.SetDefault("engine.cb_interval", 5*time.Second)
	v.SetDefault("engine.cb_timeout", 30*time.Second)
	v.SetDefault("engine.cb_failures", 5)
	v.SetDefault("overview.decode_mode", "strict")
}

// loadKeyResource — ключ напрямую из ENV или файл по пути из конфига
func loadKeyResource(path string, envDataKey string) []byte {
	// Если ключ прилетел напрямую в ENV (Base64 или PEM)
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	// Иначе читаем файл по пути из конфига
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
