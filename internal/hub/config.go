package hub

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Socket struct {
		Path    string `yaml:"path"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"socket"`
	HTTP struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"http"`
	Router struct {
		Agents []string `yaml:"agents"`
	} `yaml:"router"`
	Conversation struct {
		MaxTurns    int `yaml:"maxTurns"`
		MaxFailures int `yaml:"maxFailures"`
	} `yaml:"conversation"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	DataDir string `yaml:"dataDir"`
}

func DefaultConfig() Config {
	cfg := Config{}
	cfg.Socket.Path = "/tmp/ai-agents-hub.sock"
	cfg.Socket.Enabled = true
	cfg.HTTP.Enabled = true
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 8080
	cfg.Router.Agents = []string{"bugreport", "standup", "news", "filesearch", "devtools"}
	cfg.Conversation.MaxTurns = 20
	cfg.Conversation.MaxFailures = 3
	cfg.Logging.Level = "info"
	cfg.DataDir = ""
	return cfg
}

// LoadConfig reads a YAML config file over the defaults. A missing file
// is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
