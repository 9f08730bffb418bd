package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"financas/internal/core"
)

// NoFloor disables the data-availability floor when used as
// DATA_AVAILABLE_FROM.
const NoFloor = "none"

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Memory backend
	MemorySeedFile string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Dashboard engine
	DataAvailableFrom   string
	SalaryCategory      string
	SalaryWindowDays    int
	CollaboratorTimeout time.Duration
	RecentEntriesLimit  int

	// Dashboard result cache, disabled when the TTL is zero
	DashboardCacheTTL  time.Duration
	DashboardCacheSize int

	// Requests per minute per client on write endpoints, 0 disables
	WriteRateLimit int

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/financas.db"),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", "./data/seed.json"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "fixed_expense_payments"),

		DataAvailableFrom:   getEnv("DATA_AVAILABLE_FROM", "2025-11-01"),
		SalaryCategory:      getEnv("SALARY_CATEGORY", "SALÁRIO"),
		SalaryWindowDays:    getEnvInt("SALARY_WINDOW_DAYS", 5),
		CollaboratorTimeout: getEnvDuration("COLLABORATOR_TIMEOUT", 7*time.Second),
		RecentEntriesLimit:  getEnvInt("RECENT_ENTRIES_LIMIT", 20),

		DashboardCacheTTL:  getEnvDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
		DashboardCacheSize: getEnvInt("DASHBOARD_CACHE_SIZE", 64),

		WriteRateLimit: getEnvInt("WRITE_RATE_LIMIT", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Floor returns the parsed data-availability floor, zero when disabled.
func (c *Config) Floor() (core.Date, error) {
	v := strings.TrimSpace(c.DataAvailableFrom)
	if v == "" || strings.EqualFold(v, NoFloor) {
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := c.Floor(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid data availability floor '%s': must be YYYY-MM-DD or '%s'", c.DataAvailableFrom, NoFloor))
	}

	if strings.TrimSpace(c.SalaryCategory) == "" {
		errors = append(errors, "salary category cannot be empty")
	}
	if c.SalaryWindowDays < 0 || c.SalaryWindowDays > 15 {
		errors = append(errors, fmt.Sprintf("invalid salary window %d: must be between 0 and 15 days", c.SalaryWindowDays))
	}

	if c.CollaboratorTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid collaborator timeout %v: must be at least 100ms", c.CollaboratorTimeout))
	} else if c.CollaboratorTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid collaborator timeout %v: must be at most 5 minutes", c.CollaboratorTimeout))
	}

	if c.RecentEntriesLimit < 1 || c.RecentEntriesLimit > 500 {
		errors = append(errors, fmt.Sprintf("invalid recent entries limit %d: must be between 1 and 500", c.RecentEntriesLimit))
	}

	if c.DashboardCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache TTL %v: must not be negative", c.DashboardCacheTTL))
	}
	if c.DashboardCacheTTL > 0 && c.DashboardCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache size %d: must be at least 1", c.DashboardCacheSize))
	}

	if c.WriteRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid write rate limit %d: must not be negative", c.WriteRateLimit))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
