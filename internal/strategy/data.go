package strategy

import (
	"net/http"

	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
)

type Source string

const (
	SourceCache    Source = "cache"
	SourceNetwork  Source = "network"
	SourceFallback Source = "fallback"
)

// Result is what an intercepted request resolves to. Handle never fails:
// total failure still yields a synthesized fallback response.
type Result struct {
	Response partition.Response
	Source   Source
	Class    resource.Class
}

// Options tune per-class behaviour.
type Options struct {
	// RevalidateImages refreshes image cache hits in the background.
	RevalidateImages bool
	// RevalidateStatic refreshes static cache hits in the background.
	RevalidateStatic bool
	// RootDocuments are absolute URLs tried in order as the offline
	// substitute for a failed navigation.
	RootDocuments []string
}

func DefaultOptions() Options {
	return Options{
		RevalidateImages: true,
		RevalidateStatic: true,
	}
}

// transparentGIF is a 1x1 transparent GIF89a.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	0x44, 0x01, 0x00, 0x3b,
}

// PlaceholderImage is served for images that are neither cached nor reachable.
func PlaceholderImage() partition.Response {
	return partition.Response{
		Status: http.StatusOK,
		Header: http.Header{
			"Content-Type":  {"image/gif"},
			"Cache-Control": {"no-store"},
		},
		Body: append([]byte(nil), transparentGIF...),
	}
}

func textResponse(status int, body string) partition.Response {
	return partition.Response{
		Status: status,
		Header: http.Header{
			"Content-Type":  {"text/plain; charset=utf-8"},
			"Cache-Control": {"no-store"},
		},
		Body: []byte(body),
	}
}

func NotAvailable() partition.Response {
	return textResponse(http.StatusNotFound, "Resource not available offline")
}

func ServiceUnavailable() partition.Response {
	return textResponse(http.StatusServiceUnavailable, "Service unavailable")
}
