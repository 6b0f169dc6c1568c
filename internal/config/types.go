// Package config manages application configuration from defaults,
// config.yaml, and BOT_* environment variables.
package config

import "time"

// Config defines the application configuration parameters for all
// components of the bot: logging, Telegram transport, storage, the
// token ledger, AI providers, and dispatch behavior.
type Config struct {
	Log       LogConfig        `mapstructure:"log"`
	Telegram  TelegramConfig   `mapstructure:"telegram"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Ledger    LedgerConfig     `mapstructure:"ledger"`
	AI        AIConfig         `mapstructure:"ai"`
	Dispatch  DispatchConfig   `mapstructure:"dispatch"`
	Admission AdmissionConfig  `mapstructure:"admission"`
	Providers []ProviderConfig `mapstructure:"providers" validate:"required,min=1,dive"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler"`
	Messages  MessagesConfig   `mapstructure:"messages"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Telegram transport settings.
type TelegramConfig struct {
	Token   string `mapstructure:"token"    validate:"required"`
	AdminID int64  `mapstructure:"admin_id" validate:"required,gt=0"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LedgerConfig controls the token ledger.
type LedgerConfig struct {
	// DefaultTokens is the starting balance created lazily on a user's
	// first balance read.
	DefaultTokens int64 `mapstructure:"default_tokens" validate:"min=0"`
}

// AIConfig holds prompt assembly settings shared by all providers.
type AIConfig struct {
	Instruction       string  `mapstructure:"instruction" validate:"required"`
	MaxResponseTokens int     `mapstructure:"max_response_tokens" validate:"min=1"`
	Temperature       float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	// HistoryPairs is how many user/assistant message pairs are kept in
	// the prompt window; the system instruction is always retained.
	HistoryPairs int `mapstructure:"history_pairs" validate:"min=1"`
}

// DispatchConfig controls retry and fallback behavior of the router.
type DispatchConfig struct {
	AttemptsPerProvider int           `mapstructure:"attempts_per_provider" validate:"min=1"`
	RetryDelay          time.Duration `mapstructure:"retry_delay" validate:"min=0"`
}

// AdmissionConfig controls the per-user busy lock.
type AdmissionConfig struct {
	// MaxAge is the lease after which a stale busy marker is swept, so a
	// crashed in-flight request cannot wedge a user permanently.
	MaxAge time.Duration `mapstructure:"max_age" validate:"min=1s"`
}

// ProviderConfig describes one AI backend.
type ProviderConfig struct {
	Name      string        `mapstructure:"name"     validate:"required"`
	Kind      string        `mapstructure:"kind"     validate:"oneof=openai gemini"`
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey    string        `mapstructure:"api_key"  validate:"required"`
	Model     string        `mapstructure:"model"    validate:"required"`
	Priority  int           `mapstructure:"priority"`
	Enabled   bool          `mapstructure:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout"  validate:"min=1s,max=10m"`
	Reasoning bool          `mapstructure:"reasoning"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds user-facing notice texts. Both economic and
// infrastructural failures are delivered through the same plain message
// channel.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"`
	BalanceExhausted string `mapstructure:"balance_exhausted"`
	AllUnavailable   string `mapstructure:"all_unavailable"`
	NoProviders      string `mapstructure:"no_providers"`
	GeneralError     string `mapstructure:"general_error"`
	ChatStopped      string `mapstructure:"chat_stopped"`
	NoActiveChat     string `mapstructure:"no_active_chat"`
	NotAuthorized    string `mapstructure:"not_authorized"`
	EmptyPrompt      string `mapstructure:"empty_prompt"`
}
