package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
)

/*
Responsibilities

- Perform outbound GETs on behalf of intercepted requests
- Forward end-to-end request headers, drop hop-by-hop ones
- Buffer the full body so it can be cached and served repeatedly
- Classify transport failures as "network unavailable"

The fetcher never decides whether a response is cached.
*/
type NetworkFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
}

// NewNetworkFetcher builds a fetcher. timeout <= 0 means no client timeout.
func NewNetworkFetcher(
	metadataSink metadata.MetadataSink,
	timeout time.Duration,
	userAgent string,
) *NetworkFetcher {
	return NewNetworkFetcherWithClient(metadataSink, &http.Client{Timeout: timeout}, userAgent)
}

func NewNetworkFetcherWithClient(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	userAgent string,
) *NetworkFetcher {
	return &NetworkFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

func (f *NetworkFetcher) Fetch(ctx context.Context, req *http.Request) (partition.Response, failure.ClassifiedError) {
	if req == nil || req.URL == nil {
		return partition.Response{}, &FetchError{Message: "nil request", Cause: ErrCauseInvalidRequest}
	}

	resp, err := f.performFetch(ctx, *req.URL, req.Header)
	if err != nil {
		f.recordFetchError("NetworkFetcher.Fetch", *req.URL, err)
		return partition.Response{}, err
	}
	return resp, nil
}

// FetchOK fetches target and treats any non-2xx status as an error.
// 5xx and 429 are retryable, other statuses are not.
func (f *NetworkFetcher) FetchOK(ctx context.Context, target url.URL) (partition.Response, failure.ClassifiedError) {
	resp, err := f.performFetch(ctx, target, nil)
	if err == nil && !resp.OK() {
		err = &FetchError{
			Message:    fmt.Sprintf("GET %s", target.String()),
			Retryable:  resp.Status >= 500 || resp.Status == http.StatusTooManyRequests,
			Cause:      ErrCauseBadStatus,
			StatusCode: resp.Status,
		}
	}
	if err != nil {
		f.recordFetchError("NetworkFetcher.FetchOK", target, err)
		return partition.Response{}, err
	}
	return resp, nil
}

func (f *NetworkFetcher) performFetch(ctx context.Context, target url.URL, incoming http.Header) (partition.Response, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return partition.Response{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}
	req.Header = outboundHeaders(incoming, f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return partition.Response{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return partition.Response{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	return partition.Response{
		Status: resp.StatusCode,
		Header: storedHeaders(resp.Header),
		Body:   body,
	}, nil
}

func classifyTransportError(err error) *FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{
			Message:   fmt.Sprintf("request timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}

func (f *NetworkFetcher) recordFetchError(callerMethod string, fetchUrl url.URL, err *FetchError) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
		metadata.NewAttr(metadata.AttrHost, fetchUrl.Host),
	}
	if err.StatusCode != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, fmt.Sprint(err.StatusCode)))
	}
	f.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}

var _ Fetcher = (*NetworkFetcher)(nil)
