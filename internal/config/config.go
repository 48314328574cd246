package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"KiwiPeso"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Storage struct {
		// Driver is one of "file", "postgres" or "memory".
		Driver     string `envconfig:"STORAGE_DRIVER" default:"file"`
		Dir        string `envconfig:"STORAGE_DIR" default:"./data"`
		QuotaBytes int64  `envconfig:"STORAGE_QUOTA_BYTES" default:"52428800"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"kiwipeso"`
	}

	Rate struct {
		BaseURL     string `envconfig:"RATE_BASE_URL" default:"https://api.exchangerate-api.com/v4/latest"`
		RefreshSpec string `envconfig:"RATE_REFRESH_SPEC" default:"@hourly"`
	}

	Recognize struct {
		APIKey string `envconfig:"GEMINI_API_KEY"`
		Model  string `envconfig:"RECOGNIZE_MODEL" default:"gemini-2.5-flash"`
		Lang   string `envconfig:"RECOGNIZE_LANG" default:"eng"`
	}

	Camera struct {
		SnapshotURL string `envconfig:"CAMERA_SNAPSHOT_URL"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
