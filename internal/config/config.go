// config - источник загрузки конфигурации для session-gateway.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// DefaultUpstreamURL — адрес админ-API, если END_POINT_API пуст или невалиден.
const DefaultUpstreamURL = "http://localhost:8080"

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig — общий дедлайн входящего запроса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// HTTPConfig — публичный REST-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50090"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig — basic-auth для /metrics. Пустые значения отключают защиту.
type MetricsConfig struct {
	Username string `yaml:"username" env:"METRICS_USERNAME"`
	Password string `yaml:"password" env:"METRICS_PASSWORD"`
}

// UpstreamConfig — админ-API, за которым стоит шлюз.
type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"END_POINT_API" env-default:"http://localhost:8080/"`
	Timeout   time.Duration `yaml:"timeout"    env:"UPSTREAM_TIMEOUT" env-default:"10s"`
	UserAgent string        `yaml:"user_agent" env:"UPSTREAM_USER_AGENT" env-default:"session-gateway"`
}

// CookieConfig — параметры ротируемой refresh-куки.
type CookieConfig struct {
	Name   string        `yaml:"name"    env:"COOKIE_NAME"    env-default:"refresh_token"`
	MaxAge time.Duration `yaml:"max_age" env:"COOKIE_MAX_AGE" env-default:"720h"`
	// Secure принудительно включает атрибут Secure; в prod он включён всегда.
	Secure bool `yaml:"secure" env:"COOKIE_SECURE" env-default:"false"`
}

// DefaultsConfig — подсказки для формы входа демо-клиента.
type DefaultsConfig struct {
	Username string `yaml:"username" env:"ROOT_AUTH_USER"`
	Email    string `yaml:"email"    env:"ROOT_AUTH_EMAIL"`
}

// SecureCookies сообщает, нужен ли атрибут Secure у куки.
func (c Config) SecureCookies() bool {
	return c.Cookie.Secure || c.Env == EnvProd
}

// UpstreamURL возвращает нормализованный базовый адрес апстрима.
func (c Config) UpstreamURL() string {
	return NormalizeBaseURL(c.Upstream.BaseURL)
}

// NormalizeBaseURL приводит END_POINT_API к виду scheme://host[/path] без завершающего '/'.
//
// Правила:
//   - пробелы по краям отбрасываются;
//   - одна пара совпадающих кавычек ('...' или "...") снимается;
//   - завершающий '/' удаляется;
//   - пустое значение или не абсолютный URL заменяются на DefaultUpstreamURL.
func NormalizeBaseURL(raw string) string {
	v := strings.TrimSpace(raw)
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			v = v[1 : len(v)-1]
		}
	}

	v = strings.TrimSuffix(v, "/")
	if v == "" {
		return DefaultUpstreamURL
	}

	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return DefaultUpstreamURL
	}

	return v
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
