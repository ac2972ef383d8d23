package resource_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
	"github.com/stretchr/testify/assert"
)

// chromeNavigationAccept is the Accept header Chrome sends on page loads.
const chromeNavigationAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"

func newClassifier() resource.Classifier {
	origin, _ := url.Parse("https://vedang.example")
	return resource.NewClassifier(*origin, resource.DefaultCDNHosts, resource.DefaultAPIPrefix, resource.DefaultImageExtensions)
}

func newRequest(method, target string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestClassify(t *testing.T) {
	classifier := newClassifier()

	tests := []struct {
		name     string
		method   string
		target   string
		headers  map[string]string
		expected resource.Class
		handled  bool
	}{
		{"image by extension", "GET", "https://vedang.example/img/x.jpg", nil, resource.ClassImage, true},
		{"image extension is case insensitive", "GET", "https://vedang.example/images/weddings/KPS-34.JPG", nil, resource.ClassImage, true},
		{"image by accept header", "GET", "https://vedang.example/thumb?id=3", map[string]string{"Accept": "image/avif,image/webp,*/*"}, resource.ClassImage, true},
		{"image by fetch destination", "GET", "https://vedang.example/render", map[string]string{"Sec-Fetch-Dest": "image"}, resource.ClassImage, true},
		{"cdn script", "GET", "https://cdnjs.cloudflare.com/ajax/libs/gsap/3.12.2/gsap.min.js", nil, resource.ClassCDN, true},
		{"cdn font stylesheet", "GET", "https://fonts.googleapis.com/css2?family=Inter", nil, resource.ClassCDN, true},
		{"cdn wins over image", "GET", "https://fonts.gstatic.com/s/inter/logo.png", nil, resource.ClassCDN, true},
		{"cdn subdomain", "GET", "https://eu.fonts.gstatic.com/s/inter.woff2", nil, resource.ClassCDN, true},
		{"api by prefix", "GET", "https://vedang.example/api/contact", nil, resource.ClassAPI, true},
		{"api by foreign host", "GET", "https://analytics.example.net/collect", nil, resource.ClassAPI, true},
		{"image wins over api prefix", "GET", "https://vedang.example/api/avatar.png", nil, resource.ClassImage, true},
		{"image on foreign host", "GET", "https://images.example.net/a.webp", nil, resource.ClassImage, true},
		{"static css", "GET", "https://vedang.example/css/critical-optimized.css", nil, resource.ClassStatic, true},
		{"static root document", "GET", "https://vedang.example/", map[string]string{"Accept": "text/html"}, resource.ClassStatic, true},
		{"browser navigation with image types in accept", "GET", "https://vedang.example/portfolio/weddings", map[string]string{
			"Sec-Fetch-Mode": "navigate",
			"Sec-Fetch-Dest": "document",
			"Accept":         chromeNavigationAccept,
		}, resource.ClassStatic, true},
		{"navigation accept without fetch metadata", "GET", "https://vedang.example/about", map[string]string{"Accept": chromeNavigationAccept}, resource.ClassStatic, true},
		{"script destination ignores accept", "GET", "https://vedang.example/render", map[string]string{"Sec-Fetch-Dest": "script", "Accept": "image/webp,*/*"}, resource.ClassStatic, true},
		{"image file opened as document", "GET", "https://vedang.example/images/hero.jpg", map[string]string{"Sec-Fetch-Dest": "document", "Accept": chromeNavigationAccept}, resource.ClassImage, true},
		{"api prefix needs trailing slash", "GET", "https://vedang.example/apis.html", nil, resource.ClassStatic, true},
		{"post bypasses", "POST", "https://vedang.example/api/contact", nil, resource.ClassStatic, false},
		{"head bypasses", "HEAD", "https://vedang.example/index.html", nil, resource.ClassStatic, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, handled := classifier.Classify(newRequest(tt.method, tt.target, tt.headers))
			assert.Equal(t, tt.handled, handled)
			if tt.handled {
				assert.Equal(t, tt.expected, class, "got %s", class)
			}
		})
	}
}

func TestClassify_NonHTTPSchemeBypasses(t *testing.T) {
	classifier := newClassifier()
	req := newRequest("GET", "https://vedang.example/", nil)
	req.URL, _ = url.Parse("chrome-extension://abcdef/content.js")

	_, handled := classifier.Classify(req)
	assert.False(t, handled)
}

func TestClassify_Deterministic(t *testing.T) {
	classifier := newClassifier()
	req := newRequest("GET", "https://vedang.example/images/concerts/P1110229.jpg", nil)

	first, _ := classifier.Classify(req)
	for i := 0; i < 10; i++ {
		again, _ := classifier.Classify(req)
		assert.Equal(t, first, again)
	}
}

func TestIsNavigation(t *testing.T) {
	assert.True(t, resource.IsNavigation(newRequest("GET", "https://vedang.example/about", map[string]string{"Sec-Fetch-Mode": "navigate"})))
	assert.True(t, resource.IsNavigation(newRequest("GET", "https://vedang.example/about", map[string]string{"Sec-Fetch-Dest": "document"})))
	assert.True(t, resource.IsNavigation(newRequest("GET", "https://vedang.example/about", map[string]string{"Accept": "text/html,application/xhtml+xml"})))
	assert.False(t, resource.IsNavigation(newRequest("GET", "https://vedang.example/js/app.js", map[string]string{"Accept": "*/*"})))
	assert.False(t, resource.IsNavigation(nil))
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "image", resource.ClassImage.String())
	assert.Equal(t, "cdn", resource.ClassCDN.String())
	assert.Equal(t, "api", resource.ClassAPI.String())
	assert.Equal(t, "static", resource.ClassStatic.String())
	assert.Equal(t, "unknown", resource.Class(42).String())
}
