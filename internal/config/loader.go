package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration in order of precedence:
// 1. Default values
// 2. The config file at path (optional)
// 3. BOT_* environment variables
//
// The result is validated before being returned.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults plus env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = DefaultProviderTimeout
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("ledger.default_tokens", DefaultLedgerTokens)

	v.SetDefault("ai.instruction", DefaultAIInstruction)
	v.SetDefault("ai.max_response_tokens", DefaultAIMaxResponseTokens)
	v.SetDefault("ai.temperature", DefaultAITemperature)
	v.SetDefault("ai.history_pairs", DefaultAIHistoryPairs)

	v.SetDefault("dispatch.attempts_per_provider", DefaultDispatchAttempts)
	v.SetDefault("dispatch.retry_delay", DefaultDispatchRetryDelay)

	v.SetDefault("admission.max_age", DefaultAdmissionMaxAge)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.balance_exhausted", DefaultMessages.BalanceExhausted)
	v.SetDefault("messages.all_unavailable", DefaultMessages.AllUnavailable)
	v.SetDefault("messages.no_providers", DefaultMessages.NoProviders)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.chat_stopped", DefaultMessages.ChatStopped)
	v.SetDefault("messages.no_active_chat", DefaultMessages.NoActiveChat)
	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("messages.empty_prompt", DefaultMessages.EmptyPrompt)

	v.SetDefault("scheduler.tasks.admission_sweep.enabled", true)
	v.SetDefault("scheduler.tasks.admission_sweep.schedule", "0 * * * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")
}
