package monitoring

import (
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/vaxcal/infra/logger"
)

// LogMonitor reports errors through a logger.
type LogMonitor struct {
	log logger.Logger
}

// NewLogMonitor returns a monitor writing to log.
func NewLogMonitor(log logger.Logger) *LogMonitor {
	return &LogMonitor{log: log}
}

func (m *LogMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		m.log.Errorf("%v", err)
		return
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	m.log.Errorf("%v [%s]", err, strings.Join(parts, " "))
}

func (m *LogMonitor) CapturePanic(v any) { m.log.Errorf("panic: %v", v) }

func (m *LogMonitor) Flush(time.Duration) {}
