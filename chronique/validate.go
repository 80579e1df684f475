package chronique

import "fmt"

const (
	maxNameLen  = 512
	maxIDLen    = 256
	minSearchMs = 60_000      // 1 minute
	maxSearchMs = 604_800_000 // 7 days

	// MaxMonitorsDefault is the default cap on monitors.
	MaxMonitorsDefault = 500
)

// validateMonitorInput validates a monitor's mutable fields before insert
// or update.
func validateMonitorInput(m *Monitor) error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(m.Name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLen)
	}

	if m.PublicFigureID == "" {
		return fmt.Errorf("%w: public_figure_id is required", ErrInvalidInput)
	}
	if len(m.PublicFigureID) > maxIDLen {
		return fmt.Errorf("%w: public_figure_id exceeds %d characters", ErrInvalidInput, maxIDLen)
	}

	if m.TopicID == "" {
		return fmt.Errorf("%w: topic_id is required", ErrInvalidInput)
	}
	if len(m.TopicID) > maxIDLen {
		return fmt.Errorf("%w: topic_id exceeds %d characters", ErrInvalidInput, maxIDLen)
	}

	if m.SearchInterval < minSearchMs || m.SearchInterval > maxSearchMs {
		return fmt.Errorf("%w: search_interval must be between %d and %d ms", ErrInvalidInput, minSearchMs, maxSearchMs)
	}

	return nil
}
