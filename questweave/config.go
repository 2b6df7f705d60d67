package questweave

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Engine.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	DB      DBConfig      `toml:"db"`
	Engine  EngineConfig  `toml:"engine"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	Twitter TwitterConfig `toml:"twitter"`
	Spaces  SpacesConfig  `toml:"spaces"`
	Mongo   MongoConfig   `toml:"mongo"`
	API     APIConfig     `toml:"api"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

// EngineConfig carries every tunable of the progression engine. Nothing in
// the state machine hard-codes these.
type EngineConfig struct {
	VotingWindow     time.Duration `toml:"voting_window"`
	MaxChapters      int           `toml:"max_chapters"`
	DefaultOption    int           `toml:"default_option"`
	IdleChapterLimit int           `toml:"idle_chapter_limit"`
	AbandonThreshold float64       `toml:"abandon_threshold"`
	AbandonMinVotes  int           `toml:"abandon_min_votes"`
	LeaseTTL         time.Duration `toml:"lease_ttl"`
	ScanInterval     time.Duration `toml:"scan_interval"`
	IngestInterval   time.Duration `toml:"ingest_interval"`
	MaxAttempts      int           `toml:"max_attempts"`
	BackoffBase      time.Duration `toml:"backoff_base"`
	CallTimeout      time.Duration `toml:"call_timeout"`
}

func (c *EngineConfig) applyDefaults() {
	if c.VotingWindow <= 0 {
		c.VotingWindow = 24 * time.Hour
	}
	if c.MaxChapters <= 0 {
		c.MaxChapters = 20
	}
	if c.IdleChapterLimit <= 0 {
		c.IdleChapterLimit = 3
	}
	if c.AbandonThreshold <= 0 {
		c.AbandonThreshold = 0.66
	}
	if c.AbandonMinVotes <= 0 {
		c.AbandonMinVotes = 5
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 2 * time.Minute
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = 30 * time.Second
	}
	if c.IngestInterval <= 0 {
		c.IngestInterval = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 60 * time.Second
	}
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type TwitterConfig struct {
	ConsumerKey    string `toml:"consumer_key"`
	ConsumerSecret string `toml:"consumer_secret"`
	AccessToken    string `toml:"access_token"`
	AccessSecret   string `toml:"access_secret"`
}

type SpacesConfig struct {
	Key       string `toml:"key"`
	Secret    string `toml:"secret"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	MediaRoot string `toml:"mediaroot"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type APIConfig struct {
	Addr string `toml:"addr"`
}
