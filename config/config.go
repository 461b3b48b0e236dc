// Package config loads the minesai YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tomasstrnad1997/minesai/mines"
)

const DefaultPath = ".minesai.yaml"

type Server struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Config struct {
	Board    mines.GameParams `yaml:"board"`
	Seed     int64            `yaml:"seed"`
	Server   Server           `yaml:"server"`
	Database Database         `yaml:"database"`
	LogLevel string           `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Board:    mines.GameParams{Height: 8, Width: 8, Mines: 8},
		Server:   Server{Host: "0.0.0.0", Port: 42071},
		LogLevel: "info",
	}
}

// Load reads the file at path on top of the defaults. A missing file yields
// the defaults. DB_PATH overrides the database path.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, cfg.Validate()
}

func Write(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath
	}
	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}

func (cfg Config) Validate() error {
	if err := cfg.Board.Validate(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}
