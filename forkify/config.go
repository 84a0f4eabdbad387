package forkify

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/forkify/forkifyapi"
	"github.com/hazyhaar/forkify/state"
)

// Config holds all forkify configuration.
type Config struct {
	DBPath         string        `yaml:"db_path"`
	ResultsPerPage int           `yaml:"results_per_page"`
	BookmarksPoll  time.Duration `yaml:"bookmarks_poll"` // negative: never reload
	API            APIConfig     `yaml:"api"`
	Web            WebConfig     `yaml:"web"`
	Offline        OfflineConfig `yaml:"offline"`
}

// APIConfig points at the recipe API.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Key      string        `yaml:"key"` // ${ENV_VAR} expanded once, by New
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// WebConfig controls the HTML front end.
type WebConfig struct {
	Addr             string `yaml:"addr"`
	MaxFormBytes     int64  `yaml:"max_form_bytes"`
	UploadsPerMinute int    `yaml:"uploads_per_minute"`
}

// OfflineConfig runs the bundled recipe API instead of the network one.
type OfflineConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DBPath   string `yaml:"db_path"`
	SeedFile string `yaml:"seed_file"` // empty: built-in fixture
	Addr     string `yaml:"addr"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "forkify.db"
	}
	if c.ResultsPerPage <= 0 {
		c.ResultsPerPage = state.DefaultResultsPerPage
	}
	if c.BookmarksPoll == 0 {
		c.BookmarksPoll = 2 * time.Second
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = forkifyapi.DefaultBaseURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.API.MaxBytes <= 0 {
		c.API.MaxBytes = 10 * 1024 * 1024
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8086"
	}
	if c.Web.MaxFormBytes <= 0 {
		c.Web.MaxFormBytes = 64 * 1024
	}
	if c.Web.UploadsPerMinute == 0 {
		c.Web.UploadsPerMinute = 5
	}
	if c.Offline.DBPath == "" {
		c.Offline.DBPath = "recipeapi.db"
	}
	if c.Offline.Addr == "" {
		c.Offline.Addr = "127.0.0.1:0"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
