package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Match    MatchConfig    `yaml:"match"`
	Upload   UploadConfig   `yaml:"upload"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	// ModelsDir is the primary model location. FallbackModelsDir is tried
	// next, then ModelBaseURL is used to download into ModelsDir.
	ModelsDir          string        `yaml:"models_dir"`
	FallbackModelsDir  string        `yaml:"fallback_models_dir"`
	ModelBaseURL       string        `yaml:"model_base_url"`
	ModelFetchTimeout  time.Duration `yaml:"model_fetch_timeout"`
	DetectionThreshold float64       `yaml:"detection_threshold"`
	WorkerCount        int           `yaml:"worker_count"`
}

type MatchConfig struct {
	// Engine selects the matching backend: "euclidean" (default) or
	// "legacy" (provider annotation heuristic).
	Engine    string  `yaml:"engine"`
	Threshold float64 `yaml:"threshold"`
	// HistoryConcurrency bounds parallel history inserts per request.
	HistoryConcurrency int `yaml:"history_concurrency"`
}

type UploadConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.WorkerCount == 0 {
		cfg.Vision.WorkerCount = 4
	}
	if cfg.Vision.ModelFetchTimeout == 0 {
		cfg.Vision.ModelFetchTimeout = 2 * time.Minute
	}
	if cfg.Match.Engine == "" {
		cfg.Match.Engine = "euclidean"
	}
	if cfg.Match.Threshold == 0 {
		cfg.Match.Threshold = 0.6
	}
	if cfg.Match.HistoryConcurrency == 0 {
		cfg.Match.HistoryConcurrency = 8
	}
	if cfg.Upload.MaxSizeBytes == 0 {
		cfg.Upload.MaxSizeBytes = 5 * 1024 * 1024
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("EP_ADMIN_API_KEY"); v != "" {
		cfg.Server.AdminAPIKey = v
	}
	if v := os.Getenv("EP_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("EP_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("EP_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("EP_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("EP_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("EP_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("EP_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("EP_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("EP_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("EP_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("EP_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("EP_MODEL_BASE_URL"); v != "" {
		cfg.Vision.ModelBaseURL = v
	}
	if v := os.Getenv("EP_MATCH_ENGINE"); v != "" {
		cfg.Match.Engine = v
	}
	if v := os.Getenv("EP_MATCH_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Match.Threshold = t
		}
	}
	if v := os.Getenv("EP_VISION_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.WorkerCount = n
		}
	}
}
