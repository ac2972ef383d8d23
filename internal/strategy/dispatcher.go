package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
	"golang.org/x/sync/singleflight"
)

// Network is the outbound port. Any error means the network could not
// produce a response; non-2xx responses are not errors.
type Network interface {
	Fetch(ctx context.Context, req *http.Request) (partition.Response, failure.ClassifiedError)
}

/*
Dispatcher routes a classified request to its strategy:

	image   cache-first on images, background revalidate, placeholder GIF
	cdn     cache-first on static, 404
	api     network-first into dynamic, cached copy, 503
	static  cache-first on critical, static, dynamic with background
	        revalidate; misses land in dynamic; navigations fall back to
	        the cached root document, everything else to 404

Only 2xx responses are written. Storage failures are recorded and never
change the response returned to the caller.
*/
type Dispatcher struct {
	registry     *partition.Registry
	network      Network
	names        partition.Set
	options      Options
	metadataSink metadata.MetadataSink

	revalidations singleflight.Group
	background    sync.WaitGroup
}

func NewDispatcher(
	registry *partition.Registry,
	network Network,
	names partition.Set,
	options Options,
	metadataSink metadata.MetadataSink,
) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		network:      network,
		names:        names,
		options:      options,
		metadataSink: metadataSink,
	}
}

// Handle resolves req under class. It never returns an error.
func (d *Dispatcher) Handle(ctx context.Context, class resource.Class, req *http.Request) Result {
	start := time.Now()

	var result Result
	switch class {
	case resource.ClassImage:
		result = d.cacheFirst(ctx, req, []string{d.names.Images}, d.names.Images, d.options.RevalidateImages, imageFallback)
	case resource.ClassCDN:
		result = d.cacheFirst(ctx, req, []string{d.names.Static}, d.names.Static, false, notFoundFallback)
	case resource.ClassAPI:
		result = d.networkFirst(ctx, req, d.names.Dynamic)
	case resource.ClassStatic:
		result = d.cacheFirst(ctx, req, []string{d.names.Critical, d.names.Static, d.names.Dynamic}, d.names.Dynamic, d.options.RevalidateStatic, d.staticFallback)
	default:
		result = Result{Response: NotAvailable(), Source: SourceFallback}
	}
	result.Class = class

	d.metadataSink.RecordFetch(req.URL.String(), class.String(), string(result.Source), result.Response.Status, time.Since(start))
	return result
}

// Wait blocks until every background revalidation started so far settles.
func (d *Dispatcher) Wait() {
	d.background.Wait()
}

type fallbackFunc func(ctx context.Context, req *http.Request) partition.Response

// cacheFirst serves the first hit across reads. On a hit it optionally
// refreshes that partition in the background. On a miss it goes to the
// network and stores 2xx responses into missTarget.
func (d *Dispatcher) cacheFirst(
	ctx context.Context,
	req *http.Request,
	reads []string,
	missTarget string,
	revalidate bool,
	fallback fallbackFunc,
) Result {
	for _, name := range reads {
		entry, hit := d.match(ctx, name, req)
		if !hit {
			continue
		}
		if revalidate {
			d.revalidate(ctx, name, req)
		}
		return Result{Response: entry.Response, Source: SourceCache}
	}

	resp, err := d.network.Fetch(ctx, req)
	if err == nil {
		if resp.OK() {
			d.store(ctx, missTarget, req, resp)
		}
		return Result{Response: resp, Source: SourceNetwork}
	}

	if entry, hit := d.matchAny(ctx, req); hit {
		return Result{Response: entry.Response, Source: SourceCache}
	}
	return Result{Response: fallback(ctx, req), Source: SourceFallback}
}

// networkFirst always tries the network. Failure falls back to any cached
// copy, then 503.
func (d *Dispatcher) networkFirst(ctx context.Context, req *http.Request, target string) Result {
	resp, err := d.network.Fetch(ctx, req)
	if err == nil {
		if resp.OK() {
			d.store(ctx, target, req, resp)
		}
		return Result{Response: resp, Source: SourceNetwork}
	}

	if entry, hit := d.match(ctx, target, req); hit {
		return Result{Response: entry.Response, Source: SourceCache}
	}
	if entry, hit := d.matchAny(ctx, req); hit {
		return Result{Response: entry.Response, Source: SourceCache}
	}
	return Result{Response: ServiceUnavailable(), Source: SourceFallback}
}

// revalidate refreshes one cached entry without blocking the caller. The
// refresh outlives ctx and concurrent refreshes of the same entry collapse
// into one network call.
func (d *Dispatcher) revalidate(ctx context.Context, name string, req *http.Request) {
	bg := context.WithoutCancel(ctx)
	outbound := req.Clone(bg)
	key := name + "|" + partition.Key(req)

	d.background.Add(1)
	go func() {
		defer d.background.Done()
		defer func() {
			if r := recover(); r != nil {
				d.recordError("Dispatcher.revalidate", metadata.CauseUnknown, fmt.Sprintf("panic: %v", r), outbound.URL, name)
			}
		}()

		_, _, _ = d.revalidations.Do(key, func() (interface{}, error) {
			resp, err := d.network.Fetch(bg, outbound)
			if err != nil {
				d.recordError("Dispatcher.revalidate", metadata.CauseNetworkFailure, err.Error(), outbound.URL, name)
				return nil, nil
			}
			if resp.OK() {
				d.store(bg, name, outbound, resp)
			}
			return nil, nil
		})
	}()
}

func (d *Dispatcher) staticFallback(ctx context.Context, req *http.Request) partition.Response {
	if !resource.IsNavigation(req) {
		return NotAvailable()
	}
	for _, root := range d.options.RootDocuments {
		u, err := url.Parse(root)
		if err != nil {
			continue
		}
		key := partition.KeyForURL(*u)
		for _, name := range d.names.Names() {
			entry, hit, err := d.registry.Partition(name).MatchKey(ctx, key)
			if err == nil && hit {
				return entry.Response
			}
		}
	}
	return NotAvailable()
}

func imageFallback(context.Context, *http.Request) partition.Response {
	return PlaceholderImage()
}

func notFoundFallback(context.Context, *http.Request) partition.Response {
	return NotAvailable()
}

func (d *Dispatcher) match(ctx context.Context, name string, req *http.Request) (partition.Entry, bool) {
	entry, hit, err := d.registry.Partition(name).Match(ctx, req)
	if err != nil {
		d.recordStorageError("Dispatcher.match", err, req.URL, name)
		return partition.Entry{}, false
	}
	return entry, hit
}

// matchAny searches every partition of the current version.
func (d *Dispatcher) matchAny(ctx context.Context, req *http.Request) (partition.Entry, bool) {
	for _, name := range d.names.Names() {
		if entry, hit := d.match(ctx, name, req); hit {
			return entry, true
		}
	}
	return partition.Entry{}, false
}

func (d *Dispatcher) store(ctx context.Context, name string, req *http.Request, resp partition.Response) {
	if err := d.registry.Partition(name).Put(ctx, req, resp); err != nil {
		d.recordStorageError("Dispatcher.store", err, req.URL, name)
	}
}

func (d *Dispatcher) recordStorageError(action string, err error, u *url.URL, name string) {
	cause := metadata.CauseStorageFailure
	var storageErr *partition.StorageError
	if errors.As(err, &storageErr) {
		cause = partition.MapStorageErrorToMetadataCause(storageErr)
	}
	d.recordError(action, cause, err.Error(), u, name)
}

func (d *Dispatcher) recordError(action string, cause metadata.ErrorCause, details string, u *url.URL, name string) {
	d.metadataSink.RecordError(
		time.Now(),
		"strategy",
		action,
		cause,
		details,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, u.String()),
			metadata.NewAttr(metadata.AttrPartition, name),
		},
	)
}
