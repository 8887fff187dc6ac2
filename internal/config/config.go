package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Discord configuration
	DiscordToken  string
	GuildID       string
	WebhookURL    string
	LogWebhookURL string

	// Gemini configuration
	GeminiAPIKey    string
	ModelCandidates []string

	// Member roster: inline JSON takes precedence over the file path
	MemberRosterJSON string
	MemberRosterFile string

	// Collection capabilities
	IncludeArchivedThreads bool
	UseMemberRoster        bool

	// Optional in-process schedule (cron expression with seconds field).
	// Empty means runs are triggered externally only.
	DigestSchedule string

	// Optional email copy of the digest
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DiscordToken:  getEnv("DISCORD_TOKEN", ""),
		GuildID:       getEnv("GUILD_ID", ""),
		WebhookURL:    getEnv("DISCORD_WEBHOOK_URL", ""),
		LogWebhookURL: getEnv("DISCORD_LOG_WEBHOOK_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ModelCandidates: getSliceEnv("MODEL_CANDIDATES", []string{
			"gemini-2.5-pro",
			"gemini-1.5-flash",
		}),

		MemberRosterJSON: getEnv("MEMBER_ROSTER", ""),
		MemberRosterFile: getEnv("MEMBER_ROSTER_FILE", ""),

		IncludeArchivedThreads: getBoolEnv("INCLUDE_ARCHIVED_THREADS", true),
		UseMemberRoster:        getBoolEnv("USE_MEMBER_ROSTER", true),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", ""),

		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}

	if c.GuildID == "" {
		return fmt.Errorf("GUILD_ID is required")
	}

	if c.WebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required")
	}

	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	if len(c.ModelCandidates) == 0 {
		return fmt.Errorf("MODEL_CANDIDATES must name at least one model")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
