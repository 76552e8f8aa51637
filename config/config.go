// Package config は、環境変数からアプリケーション設定を読み込みます。
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config は、実行時設定の全体です。.env ファイルがあれば先に読み込まれます。
type Config struct {
	// LLMバックエンド: "openai" または "gemini"
	Backend string `envconfig:"LLM_BACKEND" default:"openai"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	GeminiProject  string `envconfig:"PROJECT_ID"`
	GeminiLocation string `envconfig:"LOCATION"`
	GeminiModel    string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	TurnInterval      time.Duration `envconfig:"TURN_INTERVAL" default:"3s"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`

	// 自動ターンで定型応答を使う確率。製品判断待ちのため既定は 0。
	QuickReplyProb float64 `envconfig:"QUICK_REPLY_PROB" default:"0"`

	MemoryEnabled bool   `envconfig:"MEMORY_ENABLED" default:"false"`
	DataDir       string `envconfig:"DATA_DIR" default:"./data"`
	OutputDir     string `envconfig:"OUTPUT_DIR" default:"./logs"`

	TopicFeedURL string `envconfig:"TOPIC_FEED_URL"`

	// フィードから拾う話題をビジネス系に絞るキーワード（カンマ区切り）。
	// 空なら絞り込みなし。
	TopicKeywords []string `envconfig:"TOPIC_KEYWORDS"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Level は、LogLevel を slog.Level に変換します。
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Load は、.env と環境変数から Config を構築して検証します。
func Load() (*Config, error) {
	// .env は存在しなくてもよい
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_BACKEND=openai")
		}
	case "gemini":
		if c.GeminiProject == "" || c.GeminiLocation == "" {
			return fmt.Errorf("PROJECT_ID and LOCATION are required when LLM_BACKEND=gemini")
		}
	default:
		return fmt.Errorf("unknown LLM_BACKEND: %q", c.Backend)
	}
	if c.QuickReplyProb < 0 || c.QuickReplyProb > 1 {
		return fmt.Errorf("QUICK_REPLY_PROB must be between 0 and 1")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}
