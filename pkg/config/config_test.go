package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, &ConfigSuite{})
}

func (s *ConfigSuite) writeYAML(content string) string {
	path := filepath.Join(s.T().TempDir(), "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(BackendFile, cfg.Storage.Backend)
	s.Equal("qr_data.csv", cfg.Storage.Path)
	s.Equal(time.Second/30, cfg.Camera.PollInterval)
	s.Equal(30, cfg.Camera.MaxReadFailures)
	level, err := cfg.LogLevel()
	s.NoError(err)
	s.Equal(slog.LevelInfo, level)
}

func (s *ConfigSuite) TestYAML() {
	path := s.writeYAML(`
log:
  format: json
  level: debug
storage:
  backend: mysql
  mysqlDSN: "scanner:secret@tcp(db:3306)/scanner"
camera:
  framesDir: /var/lib/qrscan/frames
  device: 2
  pollInterval: 50ms
  tryHarder: true
torch:
  path: /sys/class/leds/flash/brightness
pubsub:
  project: test-project
  topic: scans
api:
  addr: ":8080"
`)
	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("json", cfg.Log.Format)
	s.Equal(BackendMySQL, cfg.Storage.Backend)
	s.Equal("scanner:secret@tcp(db:3306)/scanner", cfg.Storage.MySQLDSN)
	s.Equal(2, cfg.Camera.Device)
	s.Equal(50*time.Millisecond, cfg.Camera.PollInterval)
	s.True(cfg.Camera.TryHarder)
	s.Equal("/sys/class/leds/flash/brightness", cfg.Torch.Path)
	s.Equal("scans", cfg.PubSub.Topic)
	s.Equal(":8080", cfg.API.Addr)
	s.Equal("qr_data.csv", cfg.Storage.Path, "unset keys keep their default")
}

func (s *ConfigSuite) TestEnvOverrides() {
	path := s.writeYAML("camera:\n  device: 1\n")
	s.T().Setenv("QRSCAN_CAMERA_DEVICE", "3")
	s.T().Setenv("QRSCAN_POLL_INTERVAL", "100ms")
	s.T().Setenv("QRSCAN_STORAGE_PATH", "/data/history.csv")
	s.T().Setenv("QRSCAN_TRY_HARDER", "true")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(3, cfg.Camera.Device)
	s.Equal(100*time.Millisecond, cfg.Camera.PollInterval)
	s.Equal("/data/history.csv", cfg.Storage.Path)
	s.True(cfg.Camera.TryHarder)
}

func (s *ConfigSuite) TestErrors() {
	testCases := []struct {
		title string
		yaml  string
		env   map[string]string
	}{
		{title: "Bad device env", env: map[string]string{"QRSCAN_CAMERA_DEVICE": "front"}},
		{title: "Bad interval env", env: map[string]string{"QRSCAN_POLL_INTERVAL": "fast"}},
		{title: "Bad bool env", env: map[string]string{"QRSCAN_TRY_HARDER": "maybe"}},
		{title: "Unknown backend", yaml: "storage:\n  backend: redis\n"},
		{title: "MySQL without DSN", yaml: "storage:\n  backend: mysql\n"},
		{title: "Empty file path", yaml: "storage:\n  path: \"\"\n"},
		{title: "Negative device", yaml: "camera:\n  device: -1\n"},
		{title: "Zero interval", yaml: "camera:\n  pollInterval: 0s\n"},
		{title: "Topic without project", yaml: "pubsub:\n  topic: scans\n"},
		{title: "Unknown log format", yaml: "log:\n  format: xml\n"},
		{title: "Unknown log level", yaml: "log:\n  level: loud\n"},
		{title: "Broken YAML", yaml: "camera: [\n"},
	}

	for _, tc := range testCases {
		s.Run(tc.title, func() {
			for k, v := range tc.env {
				s.T().Setenv(k, v)
			}
			path := ""
			if tc.yaml != "" {
				path = s.writeYAML(tc.yaml)
			}
			cfg, err := Load(path)
			s.Error(err)
			s.Nil(cfg)
		})
	}
}

func (s *ConfigSuite) TestMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "absent.yaml"))
	s.Error(err)
}
