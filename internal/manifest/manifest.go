package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dhairya-911/vedang-portfolio/internal/lifecycle"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
	"github.com/Dhairya-911/vedang-portfolio/pkg/fileutil"
	"github.com/Dhairya-911/vedang-portfolio/pkg/urlutil"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PageFetcher fetches a page that must answer 2xx.
type PageFetcher interface {
	FetchOK(ctx context.Context, target url.URL) (partition.Response, failure.ClassifiedError)
}

// reference is one subresource found in a page.
type reference struct {
	raw string
	// dest mirrors Sec-Fetch-Dest when the markup states it.
	dest string
}

/*
Extract builds a precache manifest from one HTML page.

	critical  the page itself, plus /index.html when the page is the root
	static    stylesheets, scripts, preloads and icons that are same-origin
	          or served from a CDN host
	images    img and picture sources, including every srcset candidate

Cross-origin resources outside the CDN hosts, API paths and non-http(s)
URLs are skipped. Same-origin entries are written origin-relative.
*/
func Extract(page url.URL, body []byte, classifier resource.Classifier) (lifecycle.Manifest, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return lifecycle.Manifest{}, &ManifestError{Message: err.Error(), Cause: ErrCauseParse, URL: page.String()}
	}
	gqDoc := goquery.NewDocumentFromNode(doc)

	base := page
	if href, ok := gqDoc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := urlutil.Resolve(page, href); err == nil {
			base = resolved
		}
	}

	b := newBuilder(page)
	b.addCritical(page)
	if page.Path == "" || page.Path == "/" {
		index := page
		index.Path = "/index.html"
		index.RawQuery = ""
		b.addCritical(index)
	}

	for _, ref := range collect(gqDoc) {
		target, err := urlutil.Resolve(base, ref.raw)
		if err != nil || !urlutil.IsHTTP(target) {
			continue
		}
		req, err := http.NewRequest(http.MethodGet, target.String(), nil)
		if err != nil {
			continue
		}
		if ref.dest != "" {
			req.Header.Set("Sec-Fetch-Dest", ref.dest)
		}
		class, ok := classifier.Classify(req)
		if !ok {
			continue
		}
		switch class {
		case resource.ClassImage:
			b.addImage(target)
		case resource.ClassCDN:
			b.addStatic(target)
		case resource.ClassStatic:
			if urlutil.SameOrigin(page, target) {
				b.addStatic(target)
			}
		}
	}
	return b.manifest(), nil
}

func collect(doc *goquery.Document) []reference {
	var refs []reference

	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		href := s.AttrOr("href", "")
		for _, r := range strings.Fields(rel) {
			switch r {
			case "stylesheet", "modulepreload", "icon", "apple-touch-icon", "manifest":
				refs = append(refs, reference{raw: href})
				return
			case "preload":
				refs = append(refs, reference{raw: href, dest: strings.ToLower(s.AttrOr("as", ""))})
				return
			}
		}
	})
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		refs = append(refs, reference{raw: s.AttrOr("src", "")})
	})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			refs = append(refs, reference{raw: src, dest: "image"})
		}
		for _, candidate := range parseSrcset(s.AttrOr("srcset", "")) {
			refs = append(refs, reference{raw: candidate, dest: "image"})
		}
	})
	doc.Find("picture source, source[srcset]").Each(func(_ int, s *goquery.Selection) {
		for _, candidate := range parseSrcset(s.AttrOr("srcset", "")) {
			refs = append(refs, reference{raw: candidate, dest: "image"})
		}
	})
	return refs
}

// parseSrcset returns the URL of every srcset candidate.
func parseSrcset(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

type builder struct {
	page     url.URL
	seen     map[string]struct{}
	critical []string
	static   []string
	images   []string
}

func newBuilder(page url.URL) *builder {
	return &builder{page: page, seen: map[string]struct{}{}}
}

func (b *builder) entry(target url.URL) (string, bool) {
	canonical := urlutil.Canonicalize(target)
	key := canonical.String()
	if _, dup := b.seen[key]; dup {
		return "", false
	}
	b.seen[key] = struct{}{}

	if urlutil.SameOrigin(b.page, canonical) {
		rel := canonical.Path
		if canonical.RawQuery != "" {
			rel += "?" + canonical.RawQuery
		}
		return rel, true
	}
	return key, true
}

func (b *builder) addCritical(target url.URL) {
	if e, ok := b.entry(target); ok {
		b.critical = append(b.critical, e)
	}
}

func (b *builder) addStatic(target url.URL) {
	if e, ok := b.entry(target); ok {
		b.static = append(b.static, e)
	}
}

func (b *builder) addImage(target url.URL) {
	if e, ok := b.entry(target); ok {
		b.images = append(b.images, e)
	}
}

func (b *builder) manifest() lifecycle.Manifest {
	return lifecycle.Manifest{
		Critical: nonNil(b.critical),
		Static:   nonNil(b.static),
		Images:   nonNil(b.images),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Generate fetches every page and merges their manifests in page order.
func Generate(ctx context.Context, fetcher PageFetcher, pages []url.URL, classifier resource.Classifier) (lifecycle.Manifest, error) {
	merged := lifecycle.Manifest{Critical: []string{}, Static: []string{}, Images: []string{}}
	seen := map[string]struct{}{}
	add := func(dst *[]string, entries []string) {
		for _, e := range entries {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			*dst = append(*dst, e)
		}
	}

	for _, page := range pages {
		resp, fetchErr := fetcher.FetchOK(ctx, page)
		if fetchErr != nil {
			return lifecycle.Manifest{}, &ManifestError{Message: fetchErr.Error(), Cause: ErrCauseFetch, URL: page.String(), Err: fetchErr}
		}
		m, err := Extract(page, resp.Body, classifier)
		if err != nil {
			return lifecycle.Manifest{}, err
		}
		add(&merged.Critical, m.Critical)
		add(&merged.Static, m.Static)
		add(&merged.Images, m.Images)
	}
	return merged, nil
}

// Encode renders m as indented JSON, the shape the config file's manifest
// field accepts.
func Encode(m lifecycle.Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write stores m at path atomically.
func Write(path string, m lifecycle.Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return &ManifestError{Message: err.Error(), Cause: ErrCauseWrite, URL: path, Err: err}
	}
	return nil
}
