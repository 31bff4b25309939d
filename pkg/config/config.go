package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// BackendFile - CSV scan log
	BackendFile = "file"
	// BackendMySQL - scan_history table
	BackendMySQL = "mysql"
)

// Config - scanner configuration, read from an optional YAML file and QRSCAN_* variables
type Config struct {
	Log struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
		File   string `yaml:"file"`
	} `yaml:"log"`

	Storage struct {
		Backend  string `yaml:"backend"`
		Path     string `yaml:"path"`
		MySQLDSN string `yaml:"mysqlDSN"`
	} `yaml:"storage"`

	Camera struct {
		FramesDir       string        `yaml:"framesDir"`
		Device          int           `yaml:"device"`
		PollInterval    time.Duration `yaml:"pollInterval"`
		MaxReadFailures int           `yaml:"maxReadFailures"`
		TryHarder       bool          `yaml:"tryHarder"`
	} `yaml:"camera"`

	Torch struct {
		Path string `yaml:"path"`
	} `yaml:"torch"`

	PubSub struct {
		Project string `yaml:"project"`
		Topic   string `yaml:"topic"`
	} `yaml:"pubsub"`

	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
}

// Default - configuration used when nothing is set
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Format = "text"
	cfg.Log.Level = "info"
	cfg.Log.File = "qrscan.log"
	cfg.Storage.Backend = BackendFile
	cfg.Storage.Path = "qr_data.csv"
	cfg.Camera.FramesDir = "frames"
	cfg.Camera.PollInterval = time.Second / 30
	cfg.Camera.MaxReadFailures = 30
	return cfg
}

// Load - defaults, then the YAML file at path when given, then .env and the environment
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("QRSCAN_LOG_FORMAT", &c.Log.Format)
	setString("QRSCAN_LOG_LEVEL", &c.Log.Level)
	setString("QRSCAN_LOG_FILE", &c.Log.File)
	setString("QRSCAN_STORAGE_BACKEND", &c.Storage.Backend)
	setString("QRSCAN_STORAGE_PATH", &c.Storage.Path)
	setString("QRSCAN_MYSQL_DSN", &c.Storage.MySQLDSN)
	setString("QRSCAN_FRAMES_DIR", &c.Camera.FramesDir)
	setString("QRSCAN_TORCH_PATH", &c.Torch.Path)
	setString("QRSCAN_PUBSUB_PROJECT", &c.PubSub.Project)
	setString("QRSCAN_PUBSUB_TOPIC", &c.PubSub.Topic)
	setString("QRSCAN_API_ADDR", &c.API.Addr)

	var err error
	if c.Camera.Device, err = getEnvAsInt("QRSCAN_CAMERA_DEVICE", c.Camera.Device); err != nil {
		return err
	}
	if c.Camera.MaxReadFailures, err = getEnvAsInt("QRSCAN_MAX_READ_FAILURES", c.Camera.MaxReadFailures); err != nil {
		return err
	}
	if v := os.Getenv("QRSCAN_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid value for QRSCAN_POLL_INTERVAL: expected a duration, got '%s'", v)
		}
		c.Camera.PollInterval = d
	}
	if v := os.Getenv("QRSCAN_TRY_HARDER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for QRSCAN_TRY_HARDER: expected a boolean, got '%s'", v)
		}
		c.Camera.TryHarder = b
	}
	return nil
}

// Validate - rejects inconsistent settings
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	case BackendMySQL:
		if c.Storage.MySQLDSN == "" {
			return fmt.Errorf("mysql DSN is required for the mysql backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Camera.Device < 0 {
		return fmt.Errorf("camera device index must not be negative")
	}
	if c.Camera.PollInterval <= 0 {
		return fmt.Errorf("camera poll interval must be positive")
	}
	if c.Camera.MaxReadFailures < 0 {
		return fmt.Errorf("max read failures must not be negative")
	}
	if c.PubSub.Topic != "" && c.PubSub.Project == "" {
		return fmt.Errorf("pubsub project is required when a topic is set")
	}
	return nil
}

// LogLevel - parsed log level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}
