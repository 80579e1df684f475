package chronique

import "time"

// Config configures the chronique service.
type Config struct {
	// CheckInterval is how often the scheduler polls for due monitors.
	// Default: 1 minute.
	CheckInterval time.Duration

	// MaxFailCount is the number of consecutive search failures after
	// which a monitor is no longer scheduled. Default: 10.
	MaxFailCount int

	// MaxMonitors caps the number of monitors. Default: 500.
	MaxMonitors int
}

func (c *Config) defaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Minute
	}
	if c.MaxFailCount <= 0 {
		c.MaxFailCount = 10
	}
	if c.MaxMonitors <= 0 {
		c.MaxMonitors = 500
	}
}

func defaultConfig() *Config {
	return &Config{
		CheckInterval: time.Minute,
		MaxFailCount:  10,
		MaxMonitors:   500,
	}
}
