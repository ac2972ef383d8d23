package urlutil

import (
	"net/url"
	"strings"
)

// Canonicalize maps equivalent spellings of a request URL to one cache key form.
//
//   - Scheme and host are lowercased
//   - Default ports are omitted (:80 for http, :443 for https)
//   - An empty path becomes "/"
//   - Fragments are removed
//   - Query strings are kept verbatim; "?a=1" and "?a=2" are distinct resources
//
// Canonicalize is pure and idempotent and never mutates its input.
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl
	canonical.User = nil

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
			if strings.Contains(host, ":") {
				canonical.Host = "[" + host + "]"
			}
		}
	}

	if canonical.Path == "" && canonical.Opaque == "" {
		canonical.Path = "/"
		canonical.RawPath = ""
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""
	if canonical.RawQuery == "" {
		canonical.ForceQuery = false
	}

	return canonical
}

// IsHTTP reports whether u has an http or https scheme.
func IsHTTP(u url.URL) bool {
	scheme := lowerASCII(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// SameOrigin reports whether a and b share scheme, host and effective port.
func SameOrigin(a, b url.URL) bool {
	ca, cb := Canonicalize(a), Canonicalize(b)
	return ca.Scheme == cb.Scheme && ca.Host == cb.Host
}

// Resolve turns a manifest entry into an absolute URL against base.
// Absolute entries are returned as is.
func Resolve(base url.URL, ref string) (url.URL, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return url.URL{}, err
	}
	return *base.ResolveReference(parsed), nil
}

// lowerASCII converts ASCII characters to lowercase without allocating when
// the input is already lowercase.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
