package config

import (
	_ "embed"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultYAML []byte

type BusinessHours struct {
	Start        int  `yaml:"start" json:"start"`
	End          int  `yaml:"end" json:"end"`
	WeekdaysOnly bool `yaml:"weekdays_only" json:"weekdays_only"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
		Debug   bool   `yaml:"debug" json:"debug"`
	} `yaml:"app" json:"app"`

	Polling struct {
		Enabled              bool          `yaml:"enabled" json:"enabled"`
		IntervalMinutes      int           `yaml:"interval_minutes" json:"interval_minutes"`
		BusinessHours        BusinessHours `yaml:"business_hours" json:"business_hours"`
		Concurrency          int           `yaml:"concurrency" json:"concurrency"`
		BoardTimeoutSeconds  int           `yaml:"board_timeout_seconds" json:"board_timeout_seconds"`
		StaleApplicationDays int           `yaml:"stale_application_days" json:"stale_application_days"`
	} `yaml:"polling" json:"polling"`

	Fetch struct {
		TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds"`
		RatePerSecond  float64  `yaml:"rate_per_second" json:"rate_per_second"`
		Burst          int      `yaml:"burst" json:"burst"`
		UserAgents     []string `yaml:"user_agents" json:"user_agents"`
	} `yaml:"fetch" json:"fetch"`

	Crawler struct {
		MaxDepth           int      `yaml:"max_depth" json:"max_depth"`
		MaxDurationSeconds int      `yaml:"max_duration_seconds" json:"max_duration_seconds"`
		MaxHits            int      `yaml:"max_hits" json:"max_hits"`
		Workers            int      `yaml:"workers" json:"workers"`
		CareerStubs        []string `yaml:"career_stubs" json:"career_stubs"`
		RespectRobots      bool     `yaml:"respect_robots" json:"respect_robots"`
	} `yaml:"crawler" json:"crawler"`

	Classifier struct {
		Concurrency int `yaml:"concurrency" json:"concurrency"`
	} `yaml:"classifier" json:"classifier"`

	Peruse struct {
		PositionFilters []string `yaml:"position_filters" json:"position_filters"`
		LocationFilters []string `yaml:"location_filters" json:"location_filters"`
		URLFilters      []string `yaml:"url_filters" json:"url_filters"`
	} `yaml:"peruse" json:"peruse"`

	// VendorsPath overrides the built-in vendor table when set.
	VendorsPath string `yaml:"vendors_path" json:"vendors_path"`
}

// Default is the embedded default.yml.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic("config: bad embedded default.yml: " + err.Error())
	}
	return cfg
}

// Load reads path over the defaults, so a partial file is fine.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMinutes) * time.Minute
}

func (c Config) BoardTimeout() time.Duration {
	return time.Duration(c.Polling.BoardTimeoutSeconds) * time.Second
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func (c Config) CrawlDuration() time.Duration {
	return time.Duration(c.Crawler.MaxDurationSeconds) * time.Second
}

// StaleAfter is how old an unanswered application gets before auto-rejection.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.Polling.StaleApplicationDays) * 24 * time.Hour
}
