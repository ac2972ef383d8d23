package partition

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/pkg/urlutil"
)

// Response is a fully buffered HTTP response. The body is held as bytes so
// a cached response can be served any number of times.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the response is cacheable: any 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Reader returns a fresh reader over the body on every call.
func (r Response) Reader() io.Reader {
	return bytes.NewReader(r.Body)
}

// Clone deep-copies the header and body.
func (r Response) Clone() Response {
	out := Response{Status: r.Status, Header: r.Header.Clone()}
	if out.Header == nil {
		out.Header = http.Header{}
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Size approximates the bytes an entry occupies: body plus header text.
func (r Response) Size() int64 {
	size := int64(len(r.Body))
	for k, vs := range r.Header {
		for _, v := range vs {
			size += int64(len(k) + len(v) + 4)
		}
	}
	return size
}

type Entry struct {
	Key      string
	Response Response
	StoredAt time.Time
	// Seq orders entries within a partition by insertion; larger is newer.
	Seq int64
}

// Key derives the partition key for a request: method plus canonical URL.
// Bodies are never part of the key since only GETs are cached.
func Key(req *http.Request) string {
	return KeyForURL(*req.URL)
}

func KeyForURL(u url.URL) string {
	canonical := urlutil.Canonicalize(u)
	return http.MethodGet + " " + canonical.String()
}

// Set names the four partitions owned by one version.
type Set struct {
	Critical string
	Static   string
	Dynamic  string
	Images   string
}

func NewSet(namespace, version string) Set {
	name := func(role string) string {
		return namespace + "-" + role + "-" + version
	}
	return Set{
		Critical: name("critical"),
		Static:   name("static"),
		Dynamic:  name("dynamic"),
		Images:   name("images"),
	}
}

func (s Set) Names() []string {
	return []string{s.Critical, s.Static, s.Dynamic, s.Images}
}

func (s Set) Contains(name string) bool {
	for _, n := range s.Names() {
		if n == name {
			return true
		}
	}
	return false
}
