package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/vaxcal/core/metrics"
	"github.com/kilianp07/vaxcal/infra/logger"
)

// InfluxSink writes planner events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.PlannerSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordScheduleBuilt writes one schedule_built point.
func (s *InfluxSink) RecordScheduleBuilt(ev coremetrics.ScheduleBuilt) error {
	p := withSession(write.NewPointWithMeasurement("schedule_built").
		AddTag("scheme", ev.Scheme), ev.SessionID).
		AddField("visits", ev.Visits).
		AddField("doses", ev.Doses).
		AddField("span_days", ev.SpanDays).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond))).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordCalendarEdit writes one calendar_edit point.
func (s *InfluxSink) RecordCalendarEdit(ev coremetrics.CalendarEdit) error {
	p := withSession(write.NewPointWithMeasurement("calendar_edit").
		AddTag("kind", ev.Kind).
		AddTag("scheme", ev.Scheme), ev.SessionID).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordValidationFailure(ev coremetrics.ValidationFailure) error {
	p := withSession(write.NewPointWithMeasurement("validation_failure").
		AddTag("reason", ev.Reason), ev.SessionID).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordExport(ev coremetrics.ExportEvent) error {
	p := write.NewPointWithMeasurement("calendar_export").
		AddTag("format", ev.Format).
		AddField("entries", ev.Entries).
		SetTime(ev.Time)
	return s.write(p)
}

// withSession tags p with the session id when there is one. Influx rejects
// empty tag values.
func withSession(p *write.Point, id string) *write.Point {
	if id == "" {
		return p
	}
	return p.AddTag("session_id", id)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
