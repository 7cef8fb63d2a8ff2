// Package config loads riichiscore settings from an HCL file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/scoring"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "riichiscore.hcl"

// Config is the complete riichiscore configuration. Every block is optional.
type Config struct {
	LogLevel string         `hcl:"log_level,optional"`
	Storage  *StorageConfig `hcl:"storage,block"`
	Scoring  *ScoringConfig `hcl:"scoring,block"`
	Rules    *RulesConfig   `hcl:"rules,block"`
	Server   *ServerConfig  `hcl:"server,block"`
	Archive  *ArchiveConfig `hcl:"archive,block"`
	Feed     *FeedConfig    `hcl:"feed,block"`
}

// StorageConfig selects where the match snapshot is persisted.
type StorageConfig struct {
	Backend       string `hcl:"backend,optional"` // file, redis or memory
	Path          string `hcl:"path,optional"`
	RedisAddr     string `hcl:"redis_addr,optional"`
	RedisPassword string `hcl:"redis_password,optional"`
	RedisDB       int    `hcl:"redis_db,optional"`
	RedisKey      string `hcl:"redis_key,optional"`
}

// ScoringConfig points at the external scoring engine. An empty EngineURL
// keeps everything local.
type ScoringConfig struct {
	EngineURL   string `hcl:"engine_url,optional"`
	Timeout     string `hcl:"timeout,optional"`
	RemoteApply bool   `hcl:"remote_apply,optional"`
}

// RulesConfig holds table rules.
type RulesConfig struct {
	GameMode        string `hcl:"game_mode,optional"`
	Enable30000Rule bool   `hcl:"enable_30000_rule,optional"`
	DealerRon       string `hcl:"dealer_ron,optional"`
	UndoPolicy      string `hcl:"undo_policy,optional"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `hcl:"address,optional"`
	Port    int    `hcl:"port,optional"`
}

// ArchiveConfig configures the MongoDB archive of finished matches.
type ArchiveConfig struct {
	Enabled    bool   `hcl:"enabled,optional"`
	URI        string `hcl:"uri,optional"`
	Database   string `hcl:"database,optional"`
	Collection string `hcl:"collection,optional"`
}

// FeedConfig configures the NATS event feed.
type FeedConfig struct {
	Enabled       bool   `hcl:"enabled,optional"`
	URL           string `hcl:"url,optional"`
	SubjectPrefix string `hcl:"subject_prefix,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads filename. A missing file yields Default().
func Load(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and fills in defaults.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "riichiscore.json"
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = "localhost:6379"
	}
	if c.Storage.RedisKey == "" {
		c.Storage.RedisKey = "mahjong-game-storage"
	}

	if c.Scoring == nil {
		c.Scoring = &ScoringConfig{}
	}
	if c.Scoring.Timeout == "" {
		c.Scoring.Timeout = "10s"
	}

	if c.Rules == nil {
		c.Rules = &RulesConfig{}
	}
	if c.Rules.GameMode == "" {
		c.Rules.GameMode = string(match.Hanchan)
	}
	if c.Rules.DealerRon == "" {
		c.Rules.DealerRon = scoring.DealerRonDerived.String()
	}
	if c.Rules.UndoPolicy == "" {
		c.Rules.UndoPolicy = "popped"
	}

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Archive == nil {
		c.Archive = &ArchiveConfig{}
	}
	if c.Archive.URI == "" {
		c.Archive.URI = "mongodb://localhost:27017"
	}
	if c.Archive.Database == "" {
		c.Archive.Database = "riichiscore"
	}
	if c.Archive.Collection == "" {
		c.Archive.Collection = "match_records"
	}

	if c.Feed == nil {
		c.Feed = &FeedConfig{}
	}
	if c.Feed.URL == "" {
		c.Feed.URL = "nats://127.0.0.1:4222"
	}
	if c.Feed.SubjectPrefix == "" {
		c.Feed.SubjectPrefix = "riichiscore"
	}
}

// Validate checks values that Parse cannot.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if _, err := c.EngineTimeout(); err != nil {
		return err
	}
	if c.Scoring.RemoteApply && c.Scoring.EngineURL == "" {
		return fmt.Errorf("remote_apply requires engine_url")
	}

	if _, err := match.ParseGameMode(c.Rules.GameMode); err != nil {
		return err
	}
	if _, ok := scoring.ParseDealerRonRule(c.Rules.DealerRon); !ok {
		return fmt.Errorf("invalid dealer_ron rule: %s", c.Rules.DealerRon)
	}
	if _, err := match.ParseUndoPolicy(c.Rules.UndoPolicy); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	return nil
}

// ServerAddress returns host:port for the HTTP API.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// EngineTimeout parses the scoring engine request timeout.
func (c *Config) EngineTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scoring.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid scoring timeout %q: %w", c.Scoring.Timeout, err)
	}
	return d, nil
}

// Calculator returns the score table configured by the rules block.
func (c *Config) Calculator() scoring.Calculator {
	rule, _ := scoring.ParseDealerRonRule(c.Rules.DealerRon)
	return scoring.Calculator{DealerRon: rule}
}

// StartOptions returns the match options configured by the rules block.
func (c *Config) StartOptions() match.StartOptions {
	mode, _ := match.ParseGameMode(c.Rules.GameMode)
	return match.StartOptions{Mode: mode, Enable30000Rule: c.Rules.Enable30000Rule}
}

// UndoPolicy returns the configured undo policy.
func (c *Config) UndoPolicy() match.UndoPolicy {
	p, _ := match.ParseUndoPolicy(c.Rules.UndoPolicy)
	return p
}
