// Package metadatatest provides a recording MetadataSink for tests.
package metadatatest

import (
	"sync"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
)

type FetchEvent struct {
	URL      string
	Class    string
	Source   string
	Status   int
	Duration time.Duration
}

type ErrorEvent struct {
	PackageName string
	Action      string
	Cause       metadata.ErrorCause
	Details     string
	Attrs       []metadata.Attribute
}

type EvictionEvent struct {
	Partition string
	Removed   int
	Remaining int
}

type LifecycleEvent struct {
	Version string
	State   string
}

// RecordingSink keeps every event in memory. Safe for concurrent use.
type RecordingSink struct {
	mu         sync.Mutex
	fetches    []FetchEvent
	errors     []ErrorEvent
	evictions  []EvictionEvent
	lifecycles []LifecycleEvent
}

func (s *RecordingSink) RecordError(
	_ time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorEvent{
		PackageName: packageName,
		Action:      action,
		Cause:       cause,
		Details:     details,
		Attrs:       attrs,
	})
}

func (s *RecordingSink) RecordFetch(fetchUrl, class, source string, httpStatus int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, FetchEvent{
		URL:      fetchUrl,
		Class:    class,
		Source:   source,
		Status:   httpStatus,
		Duration: duration,
	})
}

func (s *RecordingSink) RecordEviction(partition string, removed int, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictions = append(s.evictions, EvictionEvent{Partition: partition, Removed: removed, Remaining: remaining})
}

func (s *RecordingSink) RecordLifecycle(version string, state string, _ []metadata.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifecycles = append(s.lifecycles, LifecycleEvent{Version: version, State: state})
}

func (s *RecordingSink) Fetches() []FetchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FetchEvent(nil), s.fetches...)
}

func (s *RecordingSink) Errors() []ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ErrorEvent(nil), s.errors...)
}

func (s *RecordingSink) Evictions() []EvictionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EvictionEvent(nil), s.evictions...)
}

func (s *RecordingSink) Lifecycles() []LifecycleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LifecycleEvent(nil), s.lifecycles...)
}

var _ metadata.MetadataSink = (*RecordingSink)(nil)
