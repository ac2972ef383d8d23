package metadata

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/metrics"
)

/*
Metadata collected
- Interception outcomes: class, source (cache, network, fallback), status, latency
- Errors mapped to ErrorCause
- Eviction counts per partition
- Lifecycle transitions per version

Metadata is write-only. No component may read metadata to decide how a
request is served.
*/
type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		class string,
		source string,
		httpStatus int,
		duration time.Duration,
	)

	RecordEviction(partition string, removed int, remaining int)

	RecordLifecycle(version string, state string, attrs []Attribute)
}

/*
Recorder writes events to a slog.Logger and feeds interception latency into
a LatencyTracker under "<class>/<source>".
Events from one goroutine are recorded in order; there is no global ordering
across concurrent requests.
*/
type Recorder struct {
	logger  *slog.Logger
	tracker *metrics.LatencyTracker
}

// NewRecorder builds a Recorder. A nil logger discards log output and a nil
// tracker skips latency tracking.
func NewRecorder(logger *slog.Logger, tracker *metrics.LatencyTracker) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		logger:  logger,
		tracker: tracker,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	args := []slog.Attr{
		slog.Time("observed_at", observedAt),
		slog.String("package", packageName),
		slog.String("action", action),
		slog.String("cause", cause.String()),
		slog.String("details", details),
	}
	r.logger.LogAttrs(context.Background(), slog.LevelWarn, "cache error", append(args, toSlog(attrs)...)...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	class string,
	source string,
	httpStatus int,
	duration time.Duration,
) {
	if r.tracker != nil {
		r.tracker.Record(class+"/"+source, duration)
	}
	r.logger.LogAttrs(context.Background(), slog.LevelDebug, "fetch",
		slog.String(string(AttrURL), fetchUrl),
		slog.String(string(AttrClass), class),
		slog.String("source", source),
		slog.Int(string(AttrHTTPStatus), httpStatus),
		slog.Duration("duration", duration),
	)
}

func (r *Recorder) RecordEviction(partition string, removed int, remaining int) {
	level := slog.LevelDebug
	if removed > 0 {
		level = slog.LevelInfo
	}
	r.logger.LogAttrs(context.Background(), level, "eviction",
		slog.String(string(AttrPartition), partition),
		slog.Int("removed", removed),
		slog.Int("remaining", remaining),
	)
}

func (r *Recorder) RecordLifecycle(version string, state string, attrs []Attribute) {
	args := []slog.Attr{
		slog.String(string(AttrVersion), version),
		slog.String(string(AttrState), state),
	}
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "lifecycle", append(args, toSlog(attrs)...)...)
}

func toSlog(attrs []Attribute) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, slog.String(string(a.Key), a.Value))
	}
	return out
}

// NoopSink implements MetadataSink and drops everything.
// Tests inject it where observability is irrelevant.
type NoopSink struct{}

func (n *NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {}

func (n *NoopSink) RecordFetch(string, string, string, int, time.Duration) {}

func (n *NoopSink) RecordEviction(string, int, int) {}

func (n *NoopSink) RecordLifecycle(string, string, []Attribute) {}
