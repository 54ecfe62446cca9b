package config

import (
	"os"
	"time"

	"internflow-engine/internal/followup"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"dataDir"`
	} `yaml:"app" json:"app"`

	Database struct {
		// Driver is "sqlite" (default) or "postgres".
		Driver string `yaml:"driver" json:"driver"`
		// DSN is a file path for sqlite (relative paths live in the data dir)
		// or a connection URL for postgres.
		DSN string `yaml:"dsn" json:"dsn"`
	} `yaml:"database" json:"database"`

	Email struct {
		Enabled            bool   `yaml:"enabled" json:"enabled"`
		IMAPHost           string `yaml:"imap_host" json:"imapHost"`
		IMAPPort           int    `yaml:"imap_port" json:"imapPort"`
		Username           string `yaml:"username" json:"username"`
		Mailbox            string `yaml:"mailbox" json:"mailbox"`
		MaxMessages        int    `yaml:"max_messages" json:"maxMessages"`
		PollTimeoutSeconds int    `yaml:"poll_timeout_seconds" json:"pollTimeoutSeconds"`
		LookbackDays       int    `yaml:"lookback_days" json:"lookbackDays"`
	} `yaml:"email" json:"email"`

	Polling struct {
		CycleSeconds  int `yaml:"cycle_seconds" json:"cycleSeconds"`
		ScrapeMinutes int `yaml:"scrape_minutes" json:"scrapeMinutes"`
	} `yaml:"polling" json:"polling"`

	FollowUp struct {
		IntervalDays int `yaml:"interval_days" json:"intervalDays"`
		MaxFollowUps int `yaml:"max_followups" json:"maxFollowUps"`
	} `yaml:"followup" json:"followup"`

	Sentiment struct {
		Positive []string `yaml:"positive" json:"positive"`
		Negative []string `yaml:"negative" json:"negative"`
		// Endpoint, when set, sends replies to an external classifier.
		Endpoint       string `yaml:"endpoint" json:"endpoint"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeoutSeconds"`
	} `yaml:"sentiment" json:"sentiment"`

	Scrape struct {
		Enabled           bool     `yaml:"enabled" json:"enabled"`
		SearchURLs        []string `yaml:"search_urls" json:"searchUrls"`
		MaxPerSource      int      `yaml:"max_per_source" json:"maxPerSource"`
		RequestsPerSecond float64  `yaml:"requests_per_second" json:"requestsPerSecond"`
	} `yaml:"scrape" json:"scrape"`

	Logging struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"logging" json:"logging"`
}

// Default is the configuration used for anything a file leaves out.
func Default() Config {
	var c Config
	c.App.Port = 38471
	c.Database.Driver = "sqlite"
	c.Database.DSN = "internflow.db"
	c.Email.IMAPHost = "imap.gmail.com"
	c.Email.IMAPPort = 993
	c.Email.Mailbox = "INBOX"
	c.Email.MaxMessages = 50
	c.Email.PollTimeoutSeconds = 60
	c.Email.LookbackDays = 90
	c.Polling.CycleSeconds = 300
	c.Polling.ScrapeMinutes = 360
	c.FollowUp.IntervalDays = 7
	c.FollowUp.MaxFollowUps = 3
	c.Sentiment.TimeoutSeconds = 10
	c.Scrape.MaxPerSource = 10
	c.Scrape.RequestsPerSecond = 0.5
	c.Logging.Level = "info"
	c.Logging.Format = "text"
	return c
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) FollowUpPolicy() followup.Policy {
	return followup.Policy{
		Interval:     time.Duration(c.FollowUp.IntervalDays) * 24 * time.Hour,
		MaxFollowUps: c.FollowUp.MaxFollowUps,
	}.Normalize()
}

func (c Config) CycleInterval() time.Duration {
	return time.Duration(c.Polling.CycleSeconds) * time.Second
}

func (c Config) ScrapeInterval() time.Duration {
	return time.Duration(c.Polling.ScrapeMinutes) * time.Minute
}

func (c Config) PollTimeout() time.Duration {
	return time.Duration(c.Email.PollTimeoutSeconds) * time.Second
}
