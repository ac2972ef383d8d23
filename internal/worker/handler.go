package worker

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/Dhairya-911/vedang-portfolio/internal/message"
	"github.com/Dhairya-911/vedang-portfolio/internal/metrics"
	"github.com/Dhairya-911/vedang-portfolio/internal/strategy"
	"github.com/Dhairya-911/vedang-portfolio/pkg/hashutil"
)

const (
	AdminPrefix = "/__offline-cache/"

	HeaderCacheSource = "X-Cache-Source"
	HeaderCacheClass  = "X-Cache-Class"

	maxMessageBytes = 64 << 10
)

/*
Handler bridges HTTP to the controlling worker.

Absolute-form request targets (forward proxy) are fetched as given.
Origin-form targets (reverse proxy) are resolved against the worker's
origin. Requests the worker does not handle are proxied to the network
without touching the cache. Paths under AdminPrefix are served locally.
*/
type Handler struct {
	host    *Host
	tracker *metrics.LatencyTracker
	proxy   *httputil.ReverseProxy
	admin   *http.ServeMux
}

// NewHandler builds the handler. transport carries passthrough traffic;
// nil means http.DefaultTransport.
func NewHandler(host *Host, tracker *metrics.LatencyTracker, transport http.RoundTripper) *Handler {
	h := &Handler{
		host:    host,
		tracker: tracker,
		proxy: &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.Out.Host = pr.In.URL.Host
				pr.SetXForwarded()
			},
			Transport: transport,
		},
		admin: http.NewServeMux(),
	}
	h.admin.HandleFunc("POST "+AdminPrefix+"message", h.handleMessage)
	h.admin.HandleFunc("GET "+AdminPrefix+"partitions", h.handlePartitions)
	h.admin.HandleFunc("GET "+AdminPrefix+"stats", h.handleStats)
	h.admin.HandleFunc("GET "+AdminPrefix+"healthz", h.handleHealthz)
	return h
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if !r.URL.IsAbs() && strings.HasPrefix(r.URL.Path, AdminPrefix) {
		h.admin.ServeHTTP(rw, r)
		return
	}

	w := h.host.Current()
	if w == nil {
		http.Error(rw, "no controlling worker", http.StatusServiceUnavailable)
		return
	}

	target := resolveTarget(r, w.Origin())
	outbound := r.Clone(r.Context())
	outbound.URL = &target
	outbound.Host = target.Host
	outbound.RequestURI = ""

	result, handled := w.Fetch(r.Context(), outbound)
	if !handled {
		h.proxy.ServeHTTP(rw, outbound)
		return
	}
	writeResult(rw, r, result)
}

func resolveTarget(r *http.Request, origin url.URL) url.URL {
	if r.URL.IsAbs() {
		return *r.URL
	}
	return url.URL{
		Scheme:   origin.Scheme,
		Host:     origin.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
}

func writeResult(rw http.ResponseWriter, r *http.Request, result strategy.Result) {
	resp := result.Response
	header := rw.Header()
	for k, vs := range resp.Header {
		header[k] = append([]string(nil), vs...)
	}
	header.Set(HeaderCacheSource, string(result.Source))
	header.Set(HeaderCacheClass, result.Class.String())

	if resp.Status == http.StatusOK {
		etag := header.Get("ETag")
		if etag == "" {
			etag = hashutil.ETag(resp.Body)
			header.Set("ETag", etag)
		}
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			header.Del("Content-Length")
			rw.WriteHeader(http.StatusNotModified)
			return
		}
	}

	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	rw.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = rw.Write(resp.Body)
	}
}

func etagMatches(ifNoneMatch string, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

func (h *Handler) handleMessage(rw http.ResponseWriter, r *http.Request) {
	w := h.host.Current()
	if w == nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"error": "no controlling worker"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	reply, err := w.Message(r.Context(), payload)
	if err != nil {
		status := http.StatusInternalServerError
		var msgErr *message.MessageError
		if errors.As(err, &msgErr) {
			status = http.StatusBadRequest
		}
		writeJSON(rw, status, reply)
		return
	}
	writeJSON(rw, http.StatusOK, reply)
}

func (h *Handler) handlePartitions(rw http.ResponseWriter, r *http.Request) {
	w := h.host.Current()
	if w == nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"error": "no controlling worker"})
		return
	}
	infos, err := w.Partitions(r.Context())
	if err != nil {
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]interface{}{
		"version":    w.Version(),
		"partitions": infos,
	})
}

func (h *Handler) handleStats(rw http.ResponseWriter, _ *http.Request) {
	stats := []metrics.Stats{}
	if h.tracker != nil {
		stats = h.tracker.GetAllStats()
	}
	writeJSON(rw, http.StatusOK, stats)
}

func (h *Handler) handleHealthz(rw http.ResponseWriter, _ *http.Request) {
	w := h.host.Current()
	if w == nil || !w.Controlling() {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": w.Version(),
		"state":   w.State().String(),
	})
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
