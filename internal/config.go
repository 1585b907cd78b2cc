package internal

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL        string        `mapstructure:"base_url"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" validate:"dive,required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=pgx sqlite"`
	Source          string        `mapstructure:"source" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SQLDriverName maps the configured driver to the name it is registered
// under in database/sql. The sqlite dialector registers mattn's driver as
// "sqlite3", not "sqlite".
func (c DatabaseConfig) SQLDriverName() string {
	switch c.Driver {
	case "sqlite":
		return "sqlite3"
	case "":
		return "pgx"
	default:
		return c.Driver
	}
}

type SecurityConfig struct {
	// Base64-encoded PEM. Only the public half is needed: tokens are
	// issued by the external identity service, this app only verifies.
	JWTPublicKey string `mapstructure:"jwt_public_key" validate:"required"`
	BCryptCost   int    `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	if _, err := c.Security.PublicKey(); err != nil {
		return fmt.Errorf("invalid JWT public key: %w", err)
	}
	return nil
}

func (c *SecurityConfig) PublicKey() (*rsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}

// LoadConfigFromEnv builds a Config purely from environment variables, used
// for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "pgx"),
			Source:          getEnv("DB_SOURCE", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 30 * time.Minute,
		},
		Security: SecurityConfig{
			JWTPublicKey: getEnv("JWT_PUBLIC_KEY", ""),
			BCryptCost:   getEnvAsInt("BCRYPT_COST", 12),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
