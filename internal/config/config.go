package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Backup    BackupConfig    `yaml:"backup"`
	App       AppConfig       `yaml:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TransportConfig selects how MCP clients connect: "stdio" or "http".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// BackupConfig selects where exported documents are written: "file",
// "s3" or "none".
type BackupConfig struct {
	Target string   `yaml:"target"`
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type AppConfig struct {
	Version  string `yaml:"version"`
	Platform string `yaml:"platform"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "techtrace.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Backup: BackupConfig{
			Target: "file",
			Dir:    "backups",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		App: AppConfig{
			Version:  "dev",
			Platform: "server",
		},
	}

	if path := os.Getenv("TECHTRACE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	setString("TECHTRACE_SERVER_HOST", &cfg.Server.Host)
	if portStr := os.Getenv("TECHTRACE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid TECHTRACE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	setString("TECHTRACE_DB_PATH", &cfg.DB.Path)
	setString("TECHTRACE_LOG_LEVEL", &cfg.Log.Level)
	setString("TECHTRACE_TRANSPORT", &cfg.Transport.Mode)
	if err := setBool("TECHTRACE_AUTH_ENABLED", &cfg.Auth.Enabled); err != nil {
		return err
	}

	setString("TECHTRACE_BACKUP_TARGET", &cfg.Backup.Target)
	setString("TECHTRACE_BACKUP_DIR", &cfg.Backup.Dir)
	setString("TECHTRACE_S3_ENDPOINT", &cfg.Backup.S3.Endpoint)
	setString("TECHTRACE_S3_REGION", &cfg.Backup.S3.Region)
	setString("TECHTRACE_S3_BUCKET", &cfg.Backup.S3.Bucket)
	setString("TECHTRACE_S3_PREFIX", &cfg.Backup.S3.Prefix)
	setString("TECHTRACE_S3_ACCESS_KEY", &cfg.Backup.S3.AccessKey)
	setString("TECHTRACE_S3_SECRET_KEY", &cfg.Backup.S3.SecretKey)
	if err := setBool("TECHTRACE_S3_PATH_STYLE", &cfg.Backup.S3.UsePathStyle); err != nil {
		return err
	}

	setString("TECHTRACE_APP_VERSION", &cfg.App.Version)
	setString("TECHTRACE_APP_PLATFORM", &cfg.App.Platform)
	return nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Backup.Target {
	case "none":
	case "file":
		if c.Backup.Dir == "" {
			return fmt.Errorf("backup dir is required for file target")
		}
	case "s3":
		if c.Backup.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required for s3 target")
		}
	default:
		return fmt.Errorf("invalid backup target %q", c.Backup.Target)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
