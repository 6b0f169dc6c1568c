package config

import "time"

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"

	DefaultDBPath = "storage.db"

	DefaultLedgerTokens = 20

	DefaultAITemperature       = 0.7
	DefaultAIMaxResponseTokens = 1000
	DefaultAIHistoryPairs      = 5
	DefaultAIInstruction       = "You are a helpful conversational assistant. Stay in character and keep responses concise."

	DefaultDispatchAttempts   = 3
	DefaultDispatchRetryDelay = 10 * time.Second

	DefaultAdmissionMaxAge = 10 * time.Minute

	DefaultProviderTimeout = time.Minute
)

// DefaultMessages are the stock notice texts.
var DefaultMessages = MessagesConfig{
	Welcome:          "👋 Hi! Send me a message to start chatting.",
	BalanceExhausted: "❗️ Not enough tokens. Top up your balance to continue.",
	AllUnavailable:   "❌ All AI models are temporarily unavailable. Please try again later.",
	NoProviders:      "❌ No AI models are available. Please contact the administrator.",
	GeneralError:     "An error occurred while processing your message. Please try again.",
	ChatStopped:      "Chat stopped.",
	NoActiveChat:     "There is no active chat right now.",
	NotAuthorized:    "🚫 You are not authorized to use this command.",
	EmptyPrompt:      "Write a message to continue the chat.",
}
