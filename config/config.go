package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Scenario struct {
		// Remote documents are fetched from BaseURL + "/" + name + ".json".
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"scenario"`

	Biometric struct {
		BaseURL    string `yaml:"baseUrl"`
		SocketPath string `yaml:"socketPath"`
	} `yaml:"biometric"`

	Scoring struct {
		BaselineHR        float64 `yaml:"baselineHr"`
		RecoveryThreshold float64 `yaml:"recoveryThreshold"`
		StabilityMode     string  `yaml:"stabilityMode"` // "stddev" or "recoveryTime"
		DemoTimeoutSec    int     `yaml:"demoTimeoutSec"`
	} `yaml:"scoring"`

	JWT struct {
		Secret      string `yaml:"secret"`
		ExpiryHours int    `yaml:"expiryHours"`
	} `yaml:"jwt"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
	} `yaml:"gemini"`

	Logging struct {
		Dir string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Biometric.SocketPath == "" {
		cfg.Biometric.SocketPath = "/ws"
	}
	if cfg.Scoring.BaselineHR == 0 {
		cfg.Scoring.BaselineHR = 70
	}
	if cfg.Scoring.RecoveryThreshold == 0 {
		cfg.Scoring.RecoveryThreshold = 5
	}
	if cfg.Scoring.StabilityMode == "" {
		cfg.Scoring.StabilityMode = "recoveryTime"
	}
	if cfg.Scoring.DemoTimeoutSec == 0 {
		cfg.Scoring.DemoTimeoutSec = 30
	}
	if cfg.JWT.ExpiryHours == 0 {
		cfg.JWT.ExpiryHours = 12
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
}
