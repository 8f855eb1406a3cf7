package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Env        string     `yaml:"env"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	Storage    Storage    `yaml:"storage"`
	Shortener  Shortener  `yaml:"shortener"`
	Log        Log        `yaml:"log"`
}

type HTTPServer struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	CertFile        string        `yaml:"cert_file"`
	KeyFile         string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:            8080,
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    10 * time.Second,
	IdleTimeout:     time.Minute,
	ShutdownTimeout: 10 * time.Second,
	MaxHeaderBytes:  1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	Migrate         bool          `yaml:"migrate"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	ConnectAttempts: 5,
	Migrate:         true,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// Redis configures the optional short code lookup cache.
type Redis struct {
	Enabled   bool          `yaml:"enabled"`
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"pool_size"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

var defaultRedis = Redis{
	Host:      "localhost",
	Port:      6379,
	PoolSize:  10,
	TTL:       time.Hour,
	KeyPrefix: "url:",
}

func (r *Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type Storage struct {
	Driver string `yaml:"driver"`
}

type Shortener struct {
	CodeStrategy     string        `yaml:"code_strategy"`
	CodeLength       int           `yaml:"code_length"`
	MaxAttempts      int           `yaml:"max_attempts"`
	ExhaustionPolicy string        `yaml:"exhaustion_policy"`
	LengthenBy       int           `yaml:"lengthen_by"`
	ValidityPolicy   string        `yaml:"validity_policy"`
	AccessTimeout    time.Duration `yaml:"access_timeout"`
}

var defaultShortener = Shortener{
	CodeStrategy:     "base62",
	CodeLength:       6,
	MaxAttempts:      5,
	ExhaustionPolicy: "fail",
	LengthenBy:       2,
	ValidityPolicy:   "permissive",
	AccessTimeout:    5 * time.Second,
}

type Log struct {
	Level   string `yaml:"level"`
	JSON    bool   `yaml:"json"`
	Concise bool   `yaml:"concise"`
}

var defaultLog = Log{
	Level: "info",
}

// SlogLevel returns the configured level, falling back to info.
func (l *Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
	cfg.Storage = Storage{Driver: StorageDriverPostgres}
	cfg.Shortener = defaultShortener
	cfg.Log = defaultLog
}

// applyEnv lets secrets come from the environment (or a .env file) instead of the config file.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("POSTGRES_PASSWORD"); ok {
		cfg.Postgres.Password = v
	}
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Env {
	case EnvDev, EnvStage:
	case EnvProd:
		if cfg.HTTPServer.CertFile == "" || cfg.HTTPServer.KeyFile == "" {
			errs = append(errs, errors.New("http_server.cert_file and http_server.key_file are required in prod"))
		}
	default:
		errs = append(errs, fmt.Errorf("env: unknown value %q", cfg.Env))
	}

	switch cfg.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if cfg.Postgres.User == "" || cfg.Postgres.DB == "" {
			errs = append(errs, errors.New("postgres.user and postgres.db are required for the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown value %q", cfg.Storage.Driver))
	}

	s := cfg.Shortener
	if s.CodeStrategy != "base62" && s.CodeStrategy != "nanoid" {
		errs = append(errs, fmt.Errorf("shortener.code_strategy: unknown value %q", s.CodeStrategy))
	}
	if s.CodeLength < 1 || s.CodeLength > 32 {
		errs = append(errs, fmt.Errorf("shortener.code_length: must be between 1 and 32, got %d", s.CodeLength))
	}
	if s.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("shortener.max_attempts: must be positive, got %d", s.MaxAttempts))
	}
	switch s.ExhaustionPolicy {
	case "fail":
	case "lengthen":
		if s.LengthenBy <= 0 {
			errs = append(errs, fmt.Errorf("shortener.lengthen_by: must be positive with the lengthen policy, got %d", s.LengthenBy))
		}
	default:
		errs = append(errs, fmt.Errorf("shortener.exhaustion_policy: unknown value %q", s.ExhaustionPolicy))
	}
	if s.ValidityPolicy != "permissive" && s.ValidityPolicy != "strict" {
		errs = append(errs, fmt.Errorf("shortener.validity_policy: unknown value %q", s.ValidityPolicy))
	}
	if s.AccessTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shortener.access_timeout: must be positive, got %s", s.AccessTimeout))
	}

	return errors.Join(errs...)
}
