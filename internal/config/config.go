// Package config loads quizwatch settings from an optional YAML file and
// QUIZWATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // schedule.timezone must resolve on hosts without zoneinfo

	"github.com/spf13/viper"

	"github.com/quizwatch/quizwatch/internal/crypto"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// MaxHistoryLimit is the largest trailing history window that may be configured.
const MaxHistoryLimit = 1000

type Config struct {
	Source    SourceConfig   `mapstructure:"source"`
	Series    SeriesConfig   `mapstructure:"series"`
	Storage   StorageConfig  `mapstructure:"storage"`
	Schedule  ScheduleConfig `mapstructure:"schedule"`
	Filter    FilterConfig   `mapstructure:"filter"`
	Notify    NotifyConfig   `mapstructure:"notify"`
	Log       LogConfig      `mapstructure:"log"`
	Server    ServerConfig   `mapstructure:"server"`
	SecretKey string         `mapstructure:"secret_key"`
}

type SourceConfig struct {
	URL        string        `mapstructure:"url"`
	Origin     string        `mapstructure:"origin"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"`
	SavePage   bool          `mapstructure:"save_page"`
}

type SeriesConfig struct {
	Title    string   `mapstructure:"title"`
	Keywords []string `mapstructure:"keywords"`
}

type StorageConfig struct {
	DataDir        string `mapstructure:"data_dir"`
	HistoryLimit   int    `mapstructure:"history_limit"`
	HistoryBackend string `mapstructure:"history_backend"`
}

type ScheduleConfig struct {
	Spec       string `mapstructure:"spec"`
	RunOnStart bool   `mapstructure:"run_on_start"`
	Timezone   string `mapstructure:"timezone"`
}

type FilterConfig struct {
	OnlyAvailable  bool     `mapstructure:"only_available"`
	ExcludeReserve bool     `mapstructure:"exclude_reserve"`
	FutureDays     int      `mapstructure:"future_days"`
	MaxPrice       string   `mapstructure:"max_price"`
	Places         []string `mapstructure:"places"`
	DateRange      string   `mapstructure:"date_range"`
	WeekendsOnly   bool     `mapstructure:"weekends_only"`
}

type NotifyConfig struct {
	Channels    []string       `mapstructure:"channels"`
	OnlyNew     bool           `mapstructure:"only_new"`
	SendSummary bool           `mapstructure:"send_summary"`
	MaxMessages int            `mapstructure:"max_messages"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Slack       SlackConfig    `mapstructure:"slack"`
	Twitter     TwitterConfig  `mapstructure:"twitter"`
}

type TelegramConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	ChatID    string `mapstructure:"chat_id"`
	APIServer string `mapstructure:"api_server"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type TwitterConfig struct {
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	AccessToken    string `mapstructure:"access_token"`
	AccessSecret   string `mapstructure:"access_secret"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	HTTPAddr string `mapstructure:"http_addr"`
}

// Known notification channels
const (
	ChannelStdout   = "stdout"
	ChannelTelegram = "telegram"
	ChannelSlack    = "slack"
	ChannelTwitter  = "twitter"
)

// Load reads the configuration. An empty path uses defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUIZWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.revealSecrets(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", "https://klg.quizplease.ru/schedule")
	v.SetDefault("source.origin", "https://klg.quizplease.ru")
	v.SetDefault("source.user_agent", "quizwatch/1.0 (+https://github.com/quizwatch/quizwatch)")
	v.SetDefault("source.timeout", "30s")
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.save_page", false)

	v.SetDefault("series.title", "Квиз, плиз! KLG")
	v.SetDefault("series.keywords", []string{"классическ", "classic"})

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.history_limit", MaxHistoryLimit)
	v.SetDefault("storage.history_backend", "json")

	v.SetDefault("schedule.spec", "@every 30m")
	v.SetDefault("schedule.run_on_start", true)
	v.SetDefault("schedule.timezone", "Europe/Kaliningrad")

	v.SetDefault("filter.only_available", false)
	v.SetDefault("filter.exclude_reserve", false)
	v.SetDefault("filter.future_days", 90)
	v.SetDefault("filter.max_price", "")
	v.SetDefault("filter.places", []string{})
	v.SetDefault("filter.date_range", "")
	v.SetDefault("filter.weekends_only", false)

	v.SetDefault("notify.channels", []string{ChannelStdout})
	v.SetDefault("notify.only_new", true)
	v.SetDefault("notify.send_summary", false)
	v.SetDefault("notify.max_messages", 20)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.telegram.api_server", "")
	v.SetDefault("notify.slack.webhook_url", "")
	v.SetDefault("notify.slack.channel", "")
	v.SetDefault("notify.twitter.consumer_key", "")
	v.SetDefault("notify.twitter.consumer_secret", "")
	v.SetDefault("notify.twitter.access_token", "")
	v.SetDefault("notify.twitter.access_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.http_addr", ":8080")

	v.SetDefault("secret_key", "")
}

// revealSecrets decrypts every "enc:" value in place
func (c *Config) revealSecrets() error {
	enc := crypto.NewEncryptor(c.SecretKey)
	secrets := map[string]*string{
		"notify.telegram.bot_token":      &c.Notify.Telegram.BotToken,
		"notify.telegram.chat_id":        &c.Notify.Telegram.ChatID,
		"notify.slack.webhook_url":       &c.Notify.Slack.WebhookURL,
		"notify.twitter.consumer_key":    &c.Notify.Twitter.ConsumerKey,
		"notify.twitter.consumer_secret": &c.Notify.Twitter.ConsumerSecret,
		"notify.twitter.access_token":    &c.Notify.Twitter.AccessToken,
		"notify.twitter.access_secret":   &c.Notify.Twitter.AccessSecret,
	}
	for key, p := range secrets {
		plain, err := enc.Reveal(*p)
		if err != nil {
			return fmt.Errorf("decrypting %s: %w", key, err)
		}
		*p = plain
	}
	return nil
}

// Validate checks value ranges and cross-field requirements
func (c *Config) Validate() error {
	if c.Storage.HistoryLimit < 1 || c.Storage.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("%w: storage.history_limit must be between 1 and %d, got %d",
			ErrInvalid, MaxHistoryLimit, c.Storage.HistoryLimit)
	}
	switch c.Storage.HistoryBackend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("%w: unknown storage.history_backend %q", ErrInvalid, c.Storage.HistoryBackend)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("%w: storage.data_dir is required", ErrInvalid)
	}

	if c.Source.Timeout <= 0 {
		return fmt.Errorf("%w: source.timeout must be positive", ErrInvalid)
	}
	for name, raw := range map[string]string{"source.url": c.Source.URL, "source.origin": c.Source.Origin} {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalid, name, raw)
		}
	}

	if strings.TrimSpace(c.Series.Title) == "" && len(c.Series.Keywords) == 0 {
		return fmt.Errorf("%w: series.title or series.keywords is required", ErrInvalid)
	}

	if c.Filter.FutureDays < 0 {
		return fmt.Errorf("%w: filter.future_days must not be negative", ErrInvalid)
	}
	if c.Notify.MaxMessages < 0 {
		return fmt.Errorf("%w: notify.max_messages must not be negative", ErrInvalid)
	}

	for _, ch := range c.Notify.Channels {
		switch ch {
		case ChannelStdout:
		case ChannelTelegram:
			if c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "" {
				return fmt.Errorf("%w: telegram channel needs bot_token and chat_id", ErrInvalid)
			}
		case ChannelSlack:
			if c.Notify.Slack.WebhookURL == "" {
				return fmt.Errorf("%w: slack channel needs webhook_url", ErrInvalid)
			}
		case ChannelTwitter:
			t := c.Notify.Twitter
			if t.ConsumerKey == "" || t.ConsumerSecret == "" || t.AccessToken == "" || t.AccessSecret == "" {
				return fmt.Errorf("%w: twitter channel needs all four credentials", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: unknown notify channel %q", ErrInvalid, ch)
		}
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("%w: schedule.timezone: %v", ErrInvalid, err)
	}
	return nil
}

// Location returns the configured schedule time zone, UTC when unset
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
