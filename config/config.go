// Package config loads the API configuration from .env, the environment and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "SELLER_CONSOLE_CONFIG"

type server struct {
	Addr            string        `mapstructure:"addr"`
	BaseURL         string        `mapstructure:"base_url"`
	Env             string        `mapstructure:"env"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
}

type mysql struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type mongo struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type redis struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type storage struct {
	// Backend is "local" or "gcs".
	Backend         string        `mapstructure:"backend"`
	LocalDir        string        `mapstructure:"local_dir"`
	Bucket          string        `mapstructure:"bucket"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

type auth struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
}

type gemini struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type Config struct {
	LogLevel string  `mapstructure:"log_level"`
	Server   server  `mapstructure:"server"`
	MySQL    mysql   `mapstructure:"mysql"`
	Mongo    mongo   `mapstructure:"mongo"`
	Redis    redis   `mapstructure:"redis"`
	Storage  storage `mapstructure:"storage"`
	Auth     auth    `mapstructure:"auth"`
	Gemini   gemini  `mapstructure:"gemini"`
}

// IsDevelopment reports whether the API runs with development defaults.
func (c Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origin", "http://localhost:5173")
	v.SetDefault("mysql.dsn", "root:root@tcp(127.0.0.1:3306)/seller_console?parseTime=true&clientFoundRows=true")
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.max_idle_conns", 25)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "seller_console")
	v.SetDefault("mongo.timeout", 10*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", 72*time.Hour)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "./uploads")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.url_expiry", 7*24*time.Hour)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 72*time.Hour)
	v.SetDefault("auth.reset_token_ttl", time.Hour)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
}

// Load reads .env, then SELLER_CONSOLE_* environment variables, then the
// config file named by --config or SELLER_CONSOLE_CONFIG if one is given.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SELLER_CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := configFilepath(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func configFilepath(args []string) string {
	cmdLine := pflag.NewFlagSet("seller-console", pflag.ContinueOnError)
	cmdLine.ParseErrorsWhitelist.UnknownFlags = true
	arg := cmdLine.String("config", "", "config file")
	_ = cmdLine.Parse(args)
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env
	}
	return *arg
}

func (c Config) validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret: required"))
	}
	switch c.Storage.Backend {
	case "local":
	case "gcs":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage.bucket: required for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}
