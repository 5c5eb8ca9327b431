package coordinator

import (
	"github.com/coursesync/sisu-moodle-sync/internal/config"
)

// scheduleFor returns the configured schedule of a run type. Run types that
// are not scheduled get a schedule without interval, which only runs on demand.
func scheduleFor(cfg *config.Config, runType string) config.ScheduleConfig {
	for _, s := range cfg.Sync.Schedules {
		if s.Type == runType {
			return s
		}
	}
	return config.ScheduleConfig{Type: runType}
}
