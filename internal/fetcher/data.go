package fetcher

import (
	"net/http"
	"strings"
)

// hop-by-hop headers never travel through the cache
var hopByHopHeaders = []string{
	"Connection", "Proxy-Connection", "Keep-Alive",
	"Proxy-Authenticate", "Proxy-Authorization", "TE",
	"Trailer", "Transfer-Encoding", "Upgrade",
}

// stripHopByHop returns a clone of header without hop-by-hop fields,
// including the ones named by the Connection header.
func stripHopByHop(header http.Header) http.Header {
	headerClone := header.Clone()
	if headerClone == nil {
		return http.Header{}
	}
	for _, k := range hopByHopHeaders {
		headerClone.Del(k)
	}
	if conn := header.Get("Connection"); conn != "" {
		for _, token := range strings.Split(conn, ",") {
			if token = strings.TrimSpace(token); token != "" {
				headerClone.Del(token)
			}
		}
	}
	return headerClone
}

// outboundHeaders derives the headers forwarded to the origin.
// Accept-Encoding is dropped so the transport negotiates and decodes
// compression itself and cached bodies are always identity-encoded.
// Conditional headers are dropped since a 304 can never be cached here.
func outboundHeaders(incoming http.Header, userAgent string) http.Header {
	header := stripHopByHop(incoming)
	for _, k := range []string{
		"Accept-Encoding", "If-None-Match", "If-Modified-Since", "If-Match",
		"If-Unmodified-Since", "If-Range", "Range",
	} {
		header.Del(k)
	}
	if header.Get("User-Agent") == "" && userAgent != "" {
		header.Set("User-Agent", userAgent)
	}
	return header
}

// storedHeaders derives the headers of a buffered response. Length is
// recomputed from the body when served.
func storedHeaders(origin http.Header) http.Header {
	header := stripHopByHop(origin)
	header.Del("Content-Length")
	return header
}
