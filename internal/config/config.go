// Package config loads the optional fgframes configuration file (YAML or JSON).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pable/fgframes/internal/framedata"
	"github.com/pable/fgframes/internal/storage"
)

type Config struct {
	LogLevel string           `json:"log_level" yaml:"log_level"`
	Engine   framedata.Config `json:"engine" yaml:"engine"`
	Storage  StorageConfig    `json:"storage" yaml:"storage"`
	Kafka    KafkaConfig      `json:"kafka" yaml:"kafka"`
	Server   ServerConfig     `json:"server" yaml:"server"`
	Report   ReportConfig     `json:"report" yaml:"report"`
	AI       AIConfig         `json:"ai" yaml:"ai"`
}

// StorageConfig selects the database. An empty DSN with the sqlite driver
// means the --db path.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type KafkaConfig struct {
	Brokers   []string      `json:"brokers" yaml:"brokers"`
	Topic     string        `json:"topic" yaml:"topic"`
	GroupID   string        `json:"group_id" yaml:"group_id"`
	MaxFrames int           `json:"max_frames" yaml:"max_frames"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

type ReportConfig struct {
	FPS            float64 `json:"fps" yaml:"fps"`
	SegmentSeconds int     `json:"segment_seconds" yaml:"segment_seconds"`
	DebugFrames    int     `json:"debug_frames" yaml:"debug_frames"`
}

type AIConfig struct {
	Model string `json:"model" yaml:"model"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Engine:   framedata.DefaultConfig(),
		Storage:  StorageConfig{Driver: storage.DriverSQLite},
		Kafka: KafkaConfig{
			Topic:     "fgframes.timeline",
			GroupID:   "fgframes",
			MaxFrames: 100000,
			Timeout:   30 * time.Second,
		},
		Server: ServerConfig{Addr: ":8080", AllowedOrigins: []string{"*"}},
		Report: ReportConfig{FPS: 60, SegmentSeconds: 60, DebugFrames: 200},
		AI:     AIConfig{Model: "claude-sonnet-4-5"},
	}
}

// Load reads path, layering its values over DefaultConfig.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode config: %w", decodeErr)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set and returns the defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = def.Storage.Driver
	}
	if cfg.Kafka.MaxFrames <= 0 {
		cfg.Kafka.MaxFrames = def.Kafka.MaxFrames
	}
	if cfg.Kafka.Timeout <= 0 {
		cfg.Kafka.Timeout = def.Kafka.Timeout
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Report.FPS <= 0 {
		cfg.Report.FPS = def.Report.FPS
	}
	if cfg.Report.SegmentSeconds <= 0 {
		cfg.Report.SegmentSeconds = def.Report.SegmentSeconds
	}
	if cfg.Report.DebugFrames <= 0 {
		cfg.Report.DebugFrames = def.Report.DebugFrames
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = def.AI.Model
	}
}

func Validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case storage.DriverSQLite:
	case storage.DriverPostgres:
		if cfg.Storage.DSN == "" {
			return errors.New("storage.dsn required when storage.driver is postgres")
		}
	default:
		return fmt.Errorf("storage.driver must be sqlite or postgres, got %q", cfg.Storage.Driver)
	}
	if cfg.Engine.WhiffTimeout < 0 || cfg.Engine.EventLookahead < 0 ||
		cfg.Engine.WhiffPunishWindow < 0 || cfg.Engine.JumpPunishWindow < 0 {
		return errors.New("engine frame counts must not be negative")
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return errors.New("kafka.topic required when kafka.brokers is set")
	}
	return nil
}
