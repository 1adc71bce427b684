package config

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"restaurant-sync/internal/domain"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type MQ struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	User  string `yaml:"user"`
	Pass  string `yaml:"password"`
	VHost string `yaml:"vhost"`
}

// Dashboard configures one viewing session.
type Dashboard struct {
	Role    domain.Role `yaml:"role"`
	APIBase string      `yaml:"api_base"`

	// Poll cadence in seconds; the interval itself throttles request rate,
	// no backoff.
	PollIntervalSec        int `yaml:"poll_interval"`
	ProductPollIntervalSec int `yaml:"product_poll_interval"`

	Sounds bool    `yaml:"sounds"`
	Volume float64 `yaml:"volume"`
}

func (d Dashboard) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalSec) * time.Second
}

func (d Dashboard) ProductPollInterval() time.Duration {
	return time.Duration(d.ProductPollIntervalSec) * time.Second
}

type App struct {
	HTTP      HTTP      `yaml:"http"`
	Database  DB        `yaml:"database"`
	Rabbit    MQ        `yaml:"rabbitmq"`
	Dashboard Dashboard `yaml:"dashboard"`
}

// Load reads and validates a YAML config file, filling defaults for
// anything optional.
func Load(path string) (App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, err
	}
	var a App
	if err := yaml.Unmarshal(b, &a); err != nil {
		return App{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	a.applyDefaults()
	if err := a.validate(); err != nil {
		return App{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return a, nil
}

func (a *App) applyDefaults() {
	if a.HTTP.Addr == "" {
		a.HTTP.Addr = ":3000"
	}
	if a.Database.Port == 0 {
		a.Database.Port = 5432
	}
	if a.Database.SSLMode == "" {
		a.Database.SSLMode = "disable"
	}
	if a.Database.MaxConns == 0 {
		a.Database.MaxConns = 10
	}
	if a.Rabbit.Port == 0 {
		a.Rabbit.Port = 5672
	}
	if a.Rabbit.VHost == "" {
		a.Rabbit.VHost = "/"
	}
	if a.Dashboard.APIBase == "" {
		a.Dashboard.APIBase = "http://localhost:3000"
	}
	if a.Dashboard.PollIntervalSec == 0 {
		a.Dashboard.PollIntervalSec = 10
	}
	if a.Dashboard.ProductPollIntervalSec == 0 {
		a.Dashboard.ProductPollIntervalSec = 30
	}
	if a.Dashboard.Volume == 0 {
		a.Dashboard.Volume = 1.0
	}
}

func (a *App) validate() error {
	if a.Database.Host == "" || a.Database.User == "" || a.Database.Name == "" {
		return fmt.Errorf("database config incomplete")
	}
	if a.Rabbit.Host == "" || a.Rabbit.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	if a.Dashboard.Role != "" && !a.Dashboard.Role.Known() {
		return fmt.Errorf("unknown dashboard role %q", a.Dashboard.Role)
	}
	if a.Dashboard.Volume < 0 || a.Dashboard.Volume > 1 {
		return fmt.Errorf("dashboard volume must be within [0,1]")
	}
	return nil
}

// Find returns the first config file present among the usual locations.
func Find() (string, error) {
	candidates := []string{"config.yaml", "config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
