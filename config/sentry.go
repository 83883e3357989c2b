package config

import "fmt"

// SentryConfig defines settings for Sentry error monitoring. An empty DSN
// keeps errors in the log only.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	// Tags are attached to every reported event.
	Tags map[string]string `json:"tags"`
}

func (c *SentryConfig) SetDefaults() {
	if c.DSN != "" && c.Environment == "" {
		c.Environment = "production"
	}
}

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate %v outside [0, 1]", c.TracesSampleRate)
	}
	return nil
}
