package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/locking"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
	"github.com/Dhairya-911/vedang-portfolio/pkg/retry"
	"github.com/Dhairya-911/vedang-portfolio/pkg/urlutil"
	"golang.org/x/sync/errgroup"
)

// Fetcher is the subset of the network boundary install needs.
type Fetcher interface {
	FetchOK(ctx context.Context, target url.URL) (partition.Response, failure.ClassifiedError)
}

/*
Manager drives one version through install, activate and supersede.

	new -> installing -> installed -> activating -> active -> superseded
	            |
	            +-> redundant

Install is all-or-nothing: every manifest URL is fetched before anything is
written, and a failed write drops the partitions this install created. A
successful install seals the version's partitions; Resume picks a sealed
version back up after a restart without touching the network.
Activate removes every partition not owned by this version.
*/
type Manager struct {
	registry     *partition.Registry
	fetcher      Fetcher
	lock         locking.Group
	params       Params
	metadataSink metadata.MetadataSink

	mu          sync.RWMutex
	state       State
	controlling bool
	skipWaiting bool
}

func NewManager(
	registry *partition.Registry,
	fetcher Fetcher,
	lock locking.Group,
	params Params,
	metadataSink metadata.MetadataSink,
) *Manager {
	if lock == nil {
		lock = locking.NoOpGroup{}
	}
	if params.Retry.MaxAttempts < 1 {
		params.Retry.MaxAttempts = 1
	}
	return &Manager{
		registry:     registry,
		fetcher:      fetcher,
		lock:         lock,
		params:       params,
		metadataSink: metadataSink,
		state:        StateNew,
	}
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Controlling reports whether this version serves intercepted requests.
func (m *Manager) Controlling() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlling
}

// SkipWaitingRequested reports whether a successful install asked to
// activate immediately instead of waiting for the previous version.
func (m *Manager) SkipWaitingRequested() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.skipWaiting
}

func (m *Manager) Names() partition.Set {
	return m.params.Names
}

func (m *Manager) Version() string {
	return m.params.Version
}

// Install precaches the manifest. On any failure the manager becomes
// redundant and storage is left as it was found.
func (m *Manager) Install(ctx context.Context) error {
	return m.lock.DoWithLock(m.params.LockKey, func() error {
		if err := m.transition("install", StateNew, StateInstalling); err != nil {
			return err
		}

		err := m.install(ctx)
		if err != nil {
			m.setState(StateRedundant)
			var installErr *InstallError
			if errors.As(err, &installErr) {
				m.recordError("Manager.Install", mapInstallErrorToMetadataCause(installErr), err.Error(), installErr.URL)
			} else {
				m.recordError("Manager.Install", metadata.CauseUnknown, err.Error(), "")
			}
			return err
		}

		m.mu.Lock()
		m.state = StateInstalled
		m.skipWaiting = true
		m.mu.Unlock()
		m.recordLifecycle(StateInstalled, metadata.NewAttr(metadata.AttrMessage, strconv.Itoa(m.params.Manifest.Len())+" entries precached"))
		return nil
	})
}

func (m *Manager) install(ctx context.Context) error {
	items, err := m.resolveManifest()
	if err != nil {
		return err
	}

	responses, err := m.fetchAll(ctx, items)
	if err != nil {
		return err
	}

	existing, err := m.registry.Names(ctx)
	if err != nil {
		return &InstallError{Message: err.Error(), Cause: ErrCauseStorageWrite, Err: err}
	}
	created := make([]string, 0, len(m.params.Names.Names()))
	for _, name := range m.params.Names.Names() {
		if !contains(existing, name) {
			created = append(created, name)
		}
	}

	if err := m.writeAll(ctx, items, responses); err != nil {
		m.rollback(created)
		return err
	}
	if err := m.sealAll(ctx); err != nil {
		m.rollback(created)
		return err
	}
	return nil
}

func (m *Manager) sealAll(ctx context.Context) error {
	for _, name := range m.params.Names.Names() {
		if err := m.registry.Partition(name).Seal(ctx); err != nil {
			return &InstallError{Message: err.Error(), Cause: ErrCauseStorageWrite, Err: err}
		}
	}
	return nil
}

// Resume moves a new manager straight to installed when a previous install
// of the same version sealed every partition. It reports false, leaving the
// state unchanged, when the version still needs installing.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	resumed := false
	err := m.lock.DoWithLock(m.params.LockKey, func() error {
		if state := m.State(); state != StateNew {
			return &StateError{Op: "resume", Current: state}
		}
		for _, name := range m.params.Names.Names() {
			sealed, err := m.registry.Partition(name).Sealed(ctx)
			if err != nil {
				m.recordError("Manager.Resume", metadata.CauseStorageFailure, err.Error(), "")
				return err
			}
			if !sealed {
				return nil
			}
		}

		m.mu.Lock()
		m.state = StateInstalled
		m.skipWaiting = true
		m.mu.Unlock()
		m.recordLifecycle(StateInstalled, metadata.NewAttr(metadata.AttrMessage, "resumed from storage"))
		resumed = true
		return nil
	})
	return resumed, err
}

func (m *Manager) resolveManifest() ([]precacheItem, error) {
	groups := []struct {
		name string
		urls []string
	}{
		{m.params.Names.Critical, m.params.Manifest.Critical},
		{m.params.Names.Static, m.params.Manifest.Static},
		{m.params.Names.Images, m.params.Manifest.Images},
	}

	items := make([]precacheItem, 0, m.params.Manifest.Len())
	for _, group := range groups {
		for _, raw := range group.urls {
			target, err := urlutil.Resolve(m.params.Origin, raw)
			if err != nil || !urlutil.IsHTTP(target) {
				return nil, &InstallError{Message: "not an http(s) url", Cause: ErrCauseInvalidManifest, URL: raw, Err: err}
			}
			items = append(items, precacheItem{partition: group.name, target: target})
		}
	}
	return items, nil
}

// fetchAll fetches every item concurrently. The first failure cancels the
// rest.
func (m *Manager) fetchAll(ctx context.Context, items []precacheItem) ([]partition.Response, error) {
	responses := make([]partition.Response, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if m.params.Concurrency > 0 {
		g.SetLimit(m.params.Concurrency)
	}
	for i, item := range items {
		g.Go(func() error {
			result := retry.Retry(gctx, m.params.Retry, func(ctx context.Context) (partition.Response, failure.ClassifiedError) {
				return m.fetcher.FetchOK(ctx, item.target)
			})
			if result.IsFailure() {
				return &InstallError{
					Message: result.Err().Error(),
					Cause:   ErrCauseManifestFetch,
					URL:     item.target.String(),
					Err:     result.Err(),
				}
			}
			responses[i] = result.Value()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func (m *Manager) writeAll(ctx context.Context, items []precacheItem, responses []partition.Response) error {
	handles := make(map[string]*partition.Partition, 4)
	for _, name := range m.params.Names.Names() {
		p, err := m.registry.Open(ctx, name)
		if err != nil {
			return &InstallError{Message: err.Error(), Cause: ErrCauseStorageWrite, Err: err}
		}
		handles[name] = p
	}

	for i, item := range items {
		if err := handles[item.partition].PutKey(ctx, partition.KeyForURL(item.target), responses[i]); err != nil {
			return &InstallError{Message: err.Error(), Cause: ErrCauseStorageWrite, URL: item.target.String(), Err: err}
		}
	}
	return nil
}

// rollback ignores the install context so a cancelled install still
// cleans up.
func (m *Manager) rollback(created []string) {
	ctx := context.Background()
	for _, name := range created {
		if _, err := m.registry.Drop(ctx, name); err != nil {
			m.recordError("Manager.rollback", metadata.CauseStorageFailure, fmt.Sprintf("drop %s: %v", name, err), "")
		}
	}
}

// Activate deletes every partition that does not belong to this version and
// takes control. It returns the names it removed.
func (m *Manager) Activate(ctx context.Context) ([]string, error) {
	var dropped []string
	err := m.lock.DoWithLock(m.params.LockKey, func() error {
		if err := m.transition("activate", StateInstalled, StateActivating); err != nil {
			return err
		}

		names, err := m.registry.Names(ctx)
		if err != nil {
			// stay installed so a retry runs the cleanup
			m.setState(StateInstalled)
			m.recordError("Manager.Activate", metadata.CauseStorageFailure, err.Error(), "")
			return fmt.Errorf("activate %s: list partitions: %w", m.params.Version, err)
		}
		for _, name := range names {
			if m.params.Names.Contains(name) {
				continue
			}
			if _, err := m.registry.Drop(ctx, name); err != nil {
				m.recordError("Manager.Activate", metadata.CauseStorageFailure, fmt.Sprintf("drop %s: %v", name, err), "")
				continue
			}
			dropped = append(dropped, name)
		}

		m.mu.Lock()
		m.state = StateActive
		m.controlling = true
		m.mu.Unlock()
		m.recordLifecycle(StateActive, metadata.NewAttr(metadata.AttrMessage, strconv.Itoa(len(dropped))+" stale partitions removed"))
		return nil
	})
	return dropped, err
}

// Supersede hands control to a newer version. The newer version's Activate
// removes this version's partitions.
func (m *Manager) Supersede() {
	m.mu.Lock()
	if m.state != StateActive && m.state != StateInstalled {
		m.mu.Unlock()
		return
	}
	m.state = StateSuperseded
	m.controlling = false
	m.mu.Unlock()
	m.recordLifecycle(StateSuperseded)
}

func (m *Manager) transition(op string, from State, to State) error {
	m.mu.Lock()
	if m.state != from {
		current := m.state
		m.mu.Unlock()
		err := &StateError{Op: op, Current: current}
		m.recordError("Manager."+op, metadata.CauseInvariantViolation, err.Error(), "")
		return err
	}
	m.state = to
	m.mu.Unlock()
	m.recordLifecycle(to)
	return nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.recordLifecycle(s)
}

func (m *Manager) recordLifecycle(s State, attrs ...metadata.Attribute) {
	m.metadataSink.RecordLifecycle(m.params.Version, s.String(), attrs)
}

func (m *Manager) recordError(action string, cause metadata.ErrorCause, details string, target string) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrVersion, m.params.Version),
	}
	if target != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrURL, target))
	}
	m.metadataSink.RecordError(time.Now(), "lifecycle", action, cause, details, attrs)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
