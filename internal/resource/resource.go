package resource

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/Dhairya-911/vedang-portfolio/pkg/fileutil"
	"github.com/Dhairya-911/vedang-portfolio/pkg/urlutil"
)

// Class is the closed set of resource categories a request can fall into.
type Class int

const (
	ClassImage Class = iota
	ClassCDN
	ClassAPI
	ClassStatic
)

func (c Class) String() string {
	switch c {
	case ClassImage:
		return "image"
	case ClassCDN:
		return "cdn"
	case ClassAPI:
		return "api"
	case ClassStatic:
		return "static"
	default:
		return "unknown"
	}
}

var DefaultCDNHosts = []string{
	"cdnjs.cloudflare.com",
	"fonts.googleapis.com",
	"fonts.gstatic.com",
}

var DefaultImageExtensions = []string{
	"jpg", "jpeg", "png", "gif", "webp", "svg", "avif", "ico",
}

const DefaultAPIPrefix = "/api/"

// Classifier assigns a Class to outgoing requests relative to the page origin.
type Classifier struct {
	origin          url.URL
	cdnHosts        []string
	apiPrefix       string
	imageExtensions map[string]struct{}
}

func NewClassifier(origin url.URL, cdnHosts []string, apiPrefix string, imageExtensions []string) Classifier {
	exts := make(map[string]struct{}, len(imageExtensions))
	for _, ext := range imageExtensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	hosts := make([]string, 0, len(cdnHosts))
	for _, h := range cdnHosts {
		hosts = append(hosts, strings.ToLower(h))
	}
	return Classifier{
		origin:          urlutil.Canonicalize(origin),
		cdnHosts:        hosts,
		apiPrefix:       apiPrefix,
		imageExtensions: exts,
	}
}

// Classify returns the class of req. The boolean is false when the request
// must bypass the cache entirely: any non-GET method or non-http(s) scheme.
//
// Precedence: cdn > image > api > static.
func (c Classifier) Classify(req *http.Request) (Class, bool) {
	if req == nil || req.URL == nil || req.Method != http.MethodGet {
		return ClassStatic, false
	}
	if !urlutil.IsHTTP(*req.URL) {
		return ClassStatic, false
	}

	crossOrigin := !urlutil.SameOrigin(c.origin, *req.URL)
	if crossOrigin && c.isCDNHost(req.URL.Hostname()) {
		return ClassCDN, true
	}
	if c.isImage(req) {
		return ClassImage, true
	}
	if crossOrigin || (c.apiPrefix != "" && strings.HasPrefix(req.URL.Path, c.apiPrefix)) {
		return ClassAPI, true
	}
	return ClassStatic, true
}

func (c Classifier) isCDNHost(host string) bool {
	host = strings.ToLower(host)
	for _, cdn := range c.cdnHosts {
		if host == cdn || strings.HasSuffix(host, "."+cdn) {
			return true
		}
	}
	return false
}

// isImage trusts Sec-Fetch-Dest when present. Accept only counts when the
// request is not a navigation, since browsers list image types in the
// Accept header of every page load.
func (c Classifier) isImage(req *http.Request) bool {
	dest := req.Header.Get("Sec-Fetch-Dest")
	if strings.EqualFold(dest, "image") {
		return true
	}
	ext := strings.ToLower(fileutil.GetFileExtension(req.URL.Path))
	if _, ok := c.imageExtensions[ext]; ok && ext != "" {
		return true
	}
	if dest != "" || IsNavigation(req) {
		return false
	}
	return strings.Contains(req.Header.Get("Accept"), "image/")
}

// IsNavigation reports whether req loads a top-level HTML document.
func IsNavigation(req *http.Request) bool {
	if req == nil {
		return false
	}
	if strings.EqualFold(req.Header.Get("Sec-Fetch-Mode"), "navigate") {
		return true
	}
	if strings.EqualFold(req.Header.Get("Sec-Fetch-Dest"), "document") {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
