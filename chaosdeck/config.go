package chaosdeck

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
	return &cfg, nil
}

type Config struct {
	Log        LogConfig        `toml:"log"`
	Bot        BotConfig        `toml:"bot"`
	DB         DBConfig         `toml:"db"`
	Generation GenerationConfig `toml:"generation"`
	Game       GameConfig       `toml:"game"`
	Spaces     struct {
		Key      string `toml:"key"`
		Secret   string `toml:"secret"`
		Region   string `toml:"region"`
		Bucket   string `toml:"bucket"`
		CardRoot string `toml:"cardroot"`
	} `toml:"spaces"`
}

type BotConfig struct {
	Token     string `toml:"token"`
	ChannelID string `toml:"channel_id"`
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

type GenerationConfig struct {
	TextAPIKey   string `toml:"text_api_key"`
	ImageAPIKey  string `toml:"image_api_key"`
	TextBaseURL  string `toml:"text_base_url"`
	ImageBaseURL string `toml:"image_base_url"`
	PollAttempts int    `toml:"poll_attempts"`
	PollInterval int    `toml:"poll_interval_seconds"`
}

type GameConfig struct {
	PityThreshold  int `toml:"pity_threshold"`
	MaxTurns       int `toml:"max_turns"`
	ChoiceTimeout  int `toml:"choice_timeout_seconds"`
	LevelDivisor   int `toml:"level_divisor"`
	DailyBase      int `toml:"daily_base_points"`
	DailyStreakCap int `toml:"daily_streak_cap"`
}

// Defaults mirror the tuning the game shipped with.
func (c *GameConfig) ApplyDefaults() {
	if c.PityThreshold == 0 {
		c.PityThreshold = 50
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 10
	}
	if c.ChoiceTimeout == 0 {
		c.ChoiceTimeout = 120
	}
	if c.LevelDivisor == 0 {
		c.LevelDivisor = 500
	}
	if c.DailyBase == 0 {
		c.DailyBase = 100
	}
	if c.DailyStreakCap == 0 {
		c.DailyStreakCap = 500
	}
}

func (c *GameConfig) ChoiceTimeoutDuration() time.Duration {
	return time.Duration(c.ChoiceTimeout) * time.Second
}
