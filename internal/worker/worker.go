package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/config"
	"github.com/Dhairya-911/vedang-portfolio/internal/eviction"
	"github.com/Dhairya-911/vedang-portfolio/internal/lifecycle"
	"github.com/Dhairya-911/vedang-portfolio/internal/locking"
	"github.com/Dhairya-911/vedang-portfolio/internal/message"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
	"github.com/Dhairya-911/vedang-portfolio/internal/strategy"
)

// Network is everything a worker needs from the outbound side.
type Network interface {
	strategy.Network
	lifecycle.Fetcher
}

// Deps are shared by every worker a Host deploys.
type Deps struct {
	Registry     *partition.Registry
	Network      Network
	Lock         locking.Group
	MetadataSink metadata.MetadataSink
}

// Worker is the cache manager for one version. It is inert until Install
// and Activate succeed; until then Fetch reports every request as bypassed.
type Worker struct {
	origin       url.URL
	registry     *partition.Registry
	classifier   resource.Classifier
	manager      *lifecycle.Manager
	dispatcher   *strategy.Dispatcher
	eviction     *eviction.Policy
	metadataSink metadata.MetadataSink
}

func New(cfg config.Config, deps Deps) *Worker {
	names := cfg.Partitions()
	origin := cfg.Origin()

	manager := lifecycle.NewManager(
		deps.Registry,
		deps.Network,
		deps.Lock,
		lifecycle.Params{
			Origin:      origin,
			Version:     cfg.Version(),
			Names:       names,
			Manifest:    cfg.Manifest(),
			Retry:       cfg.RetryParam(),
			LockKey:     cfg.Namespace(),
			Concurrency: cfg.InstallConcurrency(),
		},
		deps.MetadataSink,
	)

	dispatcher := strategy.NewDispatcher(
		deps.Registry,
		deps.Network,
		names,
		strategy.Options{
			RevalidateImages: cfg.RevalidateImages(),
			RevalidateStatic: cfg.RevalidateStatic(),
			RootDocuments:    cfg.RootDocuments(),
		},
		deps.MetadataSink,
	)

	return &Worker{
		origin:       origin,
		registry:     deps.Registry,
		classifier:   resource.NewClassifier(origin, cfg.CDNHosts(), cfg.APIPrefix(), cfg.ImageExtensions()),
		manager:      manager,
		dispatcher:   dispatcher,
		eviction:     eviction.NewPolicy(deps.Registry, names.Images, cfg.ImageMaxEntries(), deps.MetadataSink),
		metadataSink: deps.MetadataSink,
	}
}

func (w *Worker) Install(ctx context.Context) error {
	return w.manager.Install(ctx)
}

// Resume reuses a completed install of this version from storage.
func (w *Worker) Resume(ctx context.Context) (bool, error) {
	return w.manager.Resume(ctx)
}

// Activate removes every partition of other versions and takes control.
func (w *Worker) Activate(ctx context.Context) ([]string, error) {
	return w.manager.Activate(ctx)
}

// Fetch resolves req through the cache. The boolean is false when the
// request is not handled here and must go to the network untouched: the
// worker is not controlling, the method is not GET, or the scheme is not
// http(s).
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (strategy.Result, bool) {
	if !w.manager.Controlling() {
		return strategy.Result{}, false
	}
	class, ok := w.classifier.Classify(req)
	if !ok {
		return strategy.Result{}, false
	}
	return w.dispatcher.Handle(ctx, class, req), true
}

// Message decodes and executes a control message.
func (w *Worker) Message(ctx context.Context, payload []byte) (message.Reply, error) {
	cmd, err := message.Decode(payload)
	if err != nil {
		w.recordMessageError(err)
		return message.Reply{Error: err.Error()}, err
	}
	reply, err := message.Dispatch(ctx, cmd, w.eviction)
	var msgErr *message.MessageError
	if errors.As(err, &msgErr) {
		w.recordMessageError(err)
	}
	return reply, err
}

// Clean enforces the image partition limit once.
func (w *Worker) Clean(ctx context.Context) (int, error) {
	return w.eviction.Clean(ctx)
}

// Cleaner exposes the eviction policy for a janitor.
func (w *Worker) Cleaner() eviction.Cleaner {
	return w.eviction
}

func (w *Worker) Supersede() {
	w.manager.Supersede()
}

func (w *Worker) State() lifecycle.State {
	return w.manager.State()
}

func (w *Worker) Controlling() bool {
	return w.manager.Controlling()
}

func (w *Worker) Version() string {
	return w.manager.Version()
}

func (w *Worker) Names() partition.Set {
	return w.manager.Names()
}

func (w *Worker) Origin() url.URL {
	return w.origin
}

// Wait blocks until background revalidations settle.
func (w *Worker) Wait() {
	w.dispatcher.Wait()
}

type PartitionInfo struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Current bool   `json:"current"`
}

// Partitions lists every partition in storage, current version or not.
func (w *Worker) Partitions(ctx context.Context) ([]PartitionInfo, error) {
	names, err := w.registry.Names(ctx)
	if err != nil {
		return nil, err
	}
	current := w.Names()
	infos := make([]PartitionInfo, 0, len(names))
	for _, name := range names {
		count, err := w.registry.Partition(name).Count(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, PartitionInfo{Name: name, Entries: count, Current: current.Contains(name)})
	}
	return infos, nil
}

// Drop deletes a partition that does not belong to this worker's version.
func (w *Worker) Drop(ctx context.Context, name string) (bool, error) {
	if w.Names().Contains(name) {
		return false, fmt.Errorf("drop %s: partition belongs to version %s", name, w.Version())
	}
	return w.registry.Drop(ctx, name)
}

// Eviction failures are recorded by the policy itself.
func (w *Worker) recordMessageError(err error) {
	w.metadataSink.RecordError(
		time.Now(),
		"worker",
		"Worker.Message",
		metadata.CauseContentInvalid,
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrVersion, w.Version())},
	)
}
