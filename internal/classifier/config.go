// internal/classifier/config.go
package classifier

import "time"

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "gpt-4o-mini",
		Timeout:    15 * time.Second,
		MaxRetries: 2,
	}
}
