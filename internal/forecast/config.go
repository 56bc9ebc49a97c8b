package forecast

import (
	"fmt"
	"strings"
)

type Component string

const (
	Additive Component = "additive"
	None     Component = "none"
)

const DefaultSeasonalPeriod = 12

// Config selects the smoothing components fitted by the engine.
type Config struct {
	Trend          Component
	Seasonal       Component
	SeasonalPeriod int
}

func DefaultConfig() Config {
	return Config{
		Trend:          Additive,
		Seasonal:       Additive,
		SeasonalPeriod: DefaultSeasonalPeriod,
	}
}

// ParseComponent accepts "additive", "add", "none" and the empty string (none).
func ParseComponent(s string) (Component, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "additive", "add":
		return Additive, nil
	case "none", "":
		return None, nil
	default:
		return "", fmt.Errorf("unknown component %q, must be one of: additive, none", s)
	}
}

func (c Config) Validate() error {
	if c.Trend != Additive && c.Trend != None {
		return fmt.Errorf("invalid trend component %q", c.Trend)
	}
	if c.Seasonal != Additive && c.Seasonal != None {
		return fmt.Errorf("invalid seasonal component %q", c.Seasonal)
	}
	if c.Seasonal == Additive && c.SeasonalPeriod < 2 {
		return fmt.Errorf("seasonal period must be at least 2, got %d", c.SeasonalPeriod)
	}
	return nil
}

// MinHistory is the number of distinct months needed before a fit is attempted.
func (c Config) MinHistory() int {
	switch {
	case c.Seasonal == Additive:
		return 2 * c.SeasonalPeriod
	case c.Trend == Additive:
		return 2
	default:
		return 1
	}
}
