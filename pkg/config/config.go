package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Per-service configuration, loaded once in main and passed into components.
// Nothing below reads the environment after startup.

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"postgres"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"program"`
	Password string `envconfig:"DB_PASSWORD" default:"test"`
	Name     string `envconfig:"DB_NAME"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

type UserConfig struct {
	Port        string        `envconfig:"PORT" default:"8001"`
	DB          DBConfig
	JWTSecret   string        `envconfig:"JWT_SECRET" default:"bibliotech-dev-secret"`
	JWTTTL      time.Duration `envconfig:"JWT_TTL" default:"24h"`
	CORSOrigins []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:8501"`
}

type DocumentConfig struct {
	Port           string        `envconfig:"PORT" default:"8002"`
	DB             DBConfig
	StoragePath    string        `envconfig:"STORAGE_PATH" default:"instance/uploads/pdfs"`
	LoanServiceURL string        `envconfig:"LOAN_SERVICE_URL" default:"http://localhost:8003"`
	SyncInterval   time.Duration `envconfig:"SYNC_RETRY_INTERVAL" default:"10s"`
	SyncMaxRetries int           `envconfig:"SYNC_MAX_RETRIES" default:"5"`
	CORSOrigins    []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:8501"`
}

type LoanConfig struct {
	Port               string        `envconfig:"PORT" default:"8003"`
	DB                 DBConfig
	UserServiceURL     string        `envconfig:"USER_SERVICE_URL" default:"http://localhost:8001"`
	DocumentServiceURL string        `envconfig:"DOCUMENT_SERVICE_URL" default:"http://localhost:8002"`
	ClientTimeout      time.Duration `envconfig:"SERVICE_TIMEOUT" default:"5s"`
	StoragePath        string        `envconfig:"STORAGE_PATH" default:"instance/uploads/pdfs"`
	CORSOrigins        []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:8501"`
}

func LoadUser() (UserConfig, error) {
	var cfg UserConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return UserConfig{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "users"
	}
	return cfg, nil
}

func LoadDocument() (DocumentConfig, error) {
	var cfg DocumentConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return DocumentConfig{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "documents"
	}
	return cfg, nil
}

func LoadLoan() (LoanConfig, error) {
	var cfg LoanConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return LoanConfig{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "loans"
	}
	return cfg, nil
}
