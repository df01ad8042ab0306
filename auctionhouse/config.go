package auctionhouse

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/config"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/database"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log        LogConfig         `toml:"log"`
	DB         database.DBConfig `toml:"db"`
	Redis      RedisConfig       `toml:"redis"`
	Discord    DiscordConfig     `toml:"discord"`
	HTTP       HTTPConfig        `toml:"http"`
	Engine     EngineConfig      `toml:"engine"`
	Settlement SettlementConfig  `toml:"settlement"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
	Color bool       `toml:"color"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type DiscordConfig struct {
	Token     string       `toml:"token"`
	ChannelID snowflake.ID `toml:"channel_id"`
}

func (c DiscordConfig) Enabled() bool {
	return c.Token != "" && c.ChannelID != 0
}

type HTTPConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type EngineConfig struct {
	AntiSnipeWindow    Duration `toml:"anti_snipe_window"`
	AntiSnipeExtension Duration `toml:"anti_snipe_extension"`
	MaxExtensions      int      `toml:"max_extensions"`
	Retention          Duration `toml:"retention"`
	SweepInterval      Duration `toml:"sweep_interval"`
	IncrementPercent   int64    `toml:"increment_percent"`
	IncrementFlat      int64    `toml:"increment_flat"`
	MinDuration        Duration `toml:"min_duration"`
	MaxDuration        Duration `toml:"max_duration"`
	HistorySize        int      `toml:"history_size"`
	RecentCacheSize    int      `toml:"recent_cache_size"`
	AdminIDs           []string `toml:"admin_ids"`
}

type SettlementConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseBackoff Duration `toml:"base_backoff"`
	MaxBackoff  Duration `toml:"max_backoff"`
	CallTimeout Duration `toml:"call_timeout"`
	Workers     int64    `toml:"workers"`
}

// Duration reads TOML strings such as "10s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (c *Config) applyDefaults() {
	defaults := auction.DefaultConfig()

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ShutdownTimeout.Duration <= 0 {
		c.HTTP.ShutdownTimeout.Duration = 10 * time.Second
	}

	e := &c.Engine
	setDuration(&e.AntiSnipeWindow, defaults.AntiSnipeWindow)
	setDuration(&e.AntiSnipeExtension, defaults.AntiSnipeExtension)
	setDuration(&e.Retention, defaults.Retention)
	setDuration(&e.SweepInterval, defaults.SweepInterval)
	setDuration(&e.MinDuration, defaults.MinDuration)
	setDuration(&e.MaxDuration, defaults.MaxDuration)
	if e.MaxExtensions <= 0 {
		e.MaxExtensions = defaults.MaxExtensions
	}
	if e.IncrementPercent <= 0 && e.IncrementFlat <= 0 {
		e.IncrementFlat = config.MinBidIncrement
	}
	if e.HistorySize <= 0 {
		e.HistorySize = defaults.HistorySize
	}
	if e.RecentCacheSize <= 0 {
		e.RecentCacheSize = defaults.RecentCacheSize
	}

	s := &c.Settlement
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaults.Settlement.MaxAttempts
	}
	setDuration(&s.BaseBackoff, defaults.Settlement.BaseBackoff)
	setDuration(&s.MaxBackoff, defaults.Settlement.MaxBackoff)
	setDuration(&s.CallTimeout, defaults.Settlement.CallTimeout)
	if s.Workers <= 0 {
		s.Workers = defaults.Settlement.Workers
	}
}

func setDuration(d *Duration, fallback time.Duration) {
	if d.Duration <= 0 {
		d.Duration = fallback
	}
}

// AuctionConfig maps the [engine] and [settlement] sections onto the
// registry configuration.
func (c *Config) AuctionConfig() auction.Config {
	e := c.Engine
	return auction.Config{
		AntiSnipeWindow:    e.AntiSnipeWindow.Duration,
		AntiSnipeExtension: e.AntiSnipeExtension.Duration,
		MaxExtensions:      e.MaxExtensions,
		Retention:          e.Retention.Duration,
		SweepInterval:      e.SweepInterval.Duration,
		DefaultIncrement: auction.IncrementRule{
			Percent: decimal.NewFromInt(e.IncrementPercent),
			Flat:    e.IncrementFlat,
		},
		MinDuration:     e.MinDuration.Duration,
		MaxDuration:     e.MaxDuration.Duration,
		HistorySize:     e.HistorySize,
		RecentCacheSize: e.RecentCacheSize,
		AdminIDs:        e.AdminIDs,
		Settlement: auction.SettlerConfig{
			MaxAttempts: c.Settlement.MaxAttempts,
			BaseBackoff: c.Settlement.BaseBackoff.Duration,
			MaxBackoff:  c.Settlement.MaxBackoff.Duration,
			CallTimeout: c.Settlement.CallTimeout.Duration,
			Workers:     c.Settlement.Workers,
		},
	}
}
