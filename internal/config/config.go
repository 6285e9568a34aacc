package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		Welcome        string `yaml:"welcome"`
		ConnectTimeout string `yaml:"connect_timeout"`
		ReadTimeout    string `yaml:"read_timeout"`
		ProblemCount   int    `yaml:"problem_count"`
		FlagSecret     string `yaml:"flag_secret"`
		LogLevel       string `yaml:"log_level"`
	} `yaml:"server"`
	Monitor struct {
		Addr string `yaml:"addr"`
	} `yaml:"monitor"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Problems struct {
		Set string `yaml:"set"`
		TTL string `yaml:"ttl"`
	} `yaml:"problems"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
