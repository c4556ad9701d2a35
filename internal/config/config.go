// Package config carga la configuración del servicio: YAML + overrides por
// variables de entorno. Las env vars pisan al YAML; el YAML pisa defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration envuelve time.Duration para aceptar strings tipo "30m" en el YAML
// (yaml.v3 no parsea time.Duration por sí solo).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q", n.Value)
	}
	*d = Duration(v)
	return nil
}

// Std retorna el time.Duration subyacente.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		MigrationsDir string `yaml:"migrations_dir"`
	} `yaml:"storage"`

	Redis struct {
		Addr   string `yaml:"addr"` // vacío => rate limiting in-memory
		DB     int    `yaml:"db"`
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`

	JWT struct {
		Issuer    string   `yaml:"issuer"`
		Seed      string   `yaml:"seed"` // >= 32 bytes; deriva la clave ed25519
		AccessTTL Duration `yaml:"access_ttl"`
	} `yaml:"jwt"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int      `yaml:"limit"`
			Window Duration `yaml:"window"`
		} `yaml:"login"`
		Forgot struct {
			Limit  int      `yaml:"limit"`
			Window Duration `yaml:"window"`
		} `yaml:"forgot"`
		Invite struct {
			Limit  int      `yaml:"limit"`
			Window Duration `yaml:"window"`
		} `yaml:"invite"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"` // vacío => sender de dev (log-only)
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // solo dev
	} `yaml:"smtp"`

	Email struct {
		// BaseURL de la consola: los links de confirmación/reset/invitación
		// se arman contra esta URL.
		BaseURL string `yaml:"base_url"`
	} `yaml:"email"`

	Logging struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"logging"`
}

// Load lee el YAML (opcional: path vacío => solo defaults + env) y aplica
// defaults y overrides de entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MigrationsDir == "" {
		c.Storage.MigrationsDir = "migrations/postgres"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "uinbox"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = Duration(15 * time.Minute)
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == 0 {
		c.Rate.Login.Window = Duration(time.Minute)
	}
	if c.Rate.Forgot.Limit == 0 {
		c.Rate.Forgot.Limit = 5
	}
	if c.Rate.Forgot.Window == 0 {
		c.Rate.Forgot.Window = Duration(10 * time.Minute)
	}
	if c.Rate.Invite.Limit == 0 {
		c.Rate.Invite.Limit = 20
	}
	if c.Rate.Invite.Window == 0 {
		c.Rate.Invite.Window = Duration(time.Hour)
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Email.BaseURL == "" {
		c.Email.BaseURL = "http://localhost:3000"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	c.applyEnvOverrides()
	return &c, nil
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func getEnvInt(key string) (int, bool) {
	if v, ok := getEnvStr(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if v, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if v, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if v, ok := getEnvStr(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("UINBOX_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("UINBOX_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("UINBOX_CORS_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("UINBOX_STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("UINBOX_DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("UINBOX_REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvInt("UINBOX_REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("UINBOX_JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("UINBOX_JWT_SEED"); ok {
		c.JWT.Seed = v
	}
	if v, ok := getEnvDur("UINBOX_JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = Duration(v)
	}
	if v, ok := getEnvBool("UINBOX_RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("UINBOX_SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("UINBOX_SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("UINBOX_SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("UINBOX_SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("UINBOX_SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("UINBOX_BASE_URL"); ok {
		c.Email.BaseURL = v
	}
	if v, ok := getEnvStr("UINBOX_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
}

// Validate chequea la coherencia mínima para arrancar el server.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn required for postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWT.Seed == "" {
		return fmt.Errorf("config: jwt.seed required")
	}
	if len(c.JWT.Seed) < 32 {
		return fmt.Errorf("config: jwt.seed too short (need >= 32 bytes)")
	}
	return nil
}
