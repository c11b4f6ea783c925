package ctk

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/queelius/ctk/pkg/embedding"
)

// Logging configures the structured logger, mirroring
// dimajix-llm-monitor/internal/config.Logging's shape (a single
// text/json format switch).
type Logging struct {
	Format string `yaml:"format,omitempty"`
}

// Config is the library's optional top-level configuration. Loading it
// from a file is a convenience for callers; this module never loads one
// itself.
type Config struct {
	StorePath string           `yaml:"store_path"`
	Logging   Logging          `yaml:"logging,omitempty"`
	Embedding embedding.Config `yaml:"embedding,omitempty"`
}

// LoadConfig reads and parses a YAML config file, expanding ${VAR} and
// ${VAR:-default} environment references the way
// dimajix-llm-monitor/internal/config.LoadConfig does.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return &cfg, nil
}

func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		if strings.Contains(key, ":-") {
			parts := strings.SplitN(key, ":-", 2)
			if val, ok := os.LookupEnv(parts[0]); ok {
				return val
			}
			return parts[1]
		}
		return os.Getenv(key)
	})
}

// InitLogging configures logrus's global level and formatter, following
// internal/logging.go's format-switch pattern.
func InitLogging(cfg Logging) {
	logrus.SetLevel(logrus.InfoLevel)
	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{})
	}
}
