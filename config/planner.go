package config

import (
	"fmt"

	"github.com/kilianp07/vaxcal/core/bounds"
	"github.com/kilianp07/vaxcal/core/calendar"
)

// PlannerConfig sets the session defaults.
type PlannerConfig struct {
	// Scheme is the scheme new sessions start with. Empty selects the
	// catalog default.
	Scheme string `json:"scheme"`
	// Floor and Ceiling bound every accepted date (YYYY-MM-DD).
	Floor   string `json:"floor"`
	Ceiling string `json:"ceiling"`
}

func (c *PlannerConfig) SetDefaults() {
	if c.Floor == "" {
		c.Floor = bounds.DefaultFloor.String()
	}
	if c.Ceiling == "" {
		c.Ceiling = bounds.DefaultCeiling.String()
	}
}

func (c PlannerConfig) Validate() error {
	floor, ceiling, err := c.Limits()
	if err != nil {
		return err
	}
	if !floor.Before(ceiling) {
		return fmt.Errorf("floor %s must precede ceiling %s", floor, ceiling)
	}
	return nil
}

// Limits parses Floor and Ceiling.
func (c PlannerConfig) Limits() (floor, ceiling calendar.Date, err error) {
	if floor, err = calendar.Parse(c.Floor); err != nil {
		return floor, ceiling, fmt.Errorf("floor: %w", err)
	}
	if ceiling, err = calendar.Parse(c.Ceiling); err != nil {
		return floor, ceiling, fmt.Errorf("ceiling: %w", err)
	}
	return floor, ceiling, nil
}

// CatalogConfig points at an optional catalog file registered next to the
// built-in schemes.
type CatalogConfig struct {
	File string `json:"file"`
}

// HTTPConfig configures the schedule API.
type HTTPConfig struct {
	Address string `json:"address"`
	// Mode is the gin mode: debug, release or test.
	Mode string `json:"mode"`
	// HistoryToken guards /api/history when set.
	HistoryToken string `json:"history_token"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
}
