package cache

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// storedHeaders are the response headers replayed on a hit.
var storedHeaders = []string{"Content-Type", "Cache-Control", "ETag", "Last-Modified"}

// Entry is a captured HTTP response.
type Entry struct {
	Status int               `json:"status"`
	Header map[string]string `json:"header"`
	Body   []byte            `json:"body"`
}

// writeTo replays the entry, answering conditional requests with 304.
func (e *Entry) writeTo(w http.ResponseWriter, r *http.Request, xcache string) {
	h := w.Header()
	for k, v := range e.Header {
		h.Set(k, v)
	}
	h.Set(headerXCache, xcache)

	if etag := e.Header["ETag"]; etag != "" && e.Status == http.StatusOK && etagMatches(r.Header.Get("If-None-Match"), etag) {
		h.Del("Content-Type")
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))
	w.WriteHeader(e.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(e.Body)
	}
}

// etagMatches implements the weak comparison used by If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

// ETagMatches reports whether an If-None-Match header matches etag.
func ETagMatches(header, etag string) bool {
	return etagMatches(header, etag)
}

// recorder captures a handler's response in memory.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: http.Header{}}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *recorder) entry() *Entry {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	header := make(map[string]string, len(storedHeaders))
	for _, k := range storedHeaders {
		if v := r.header.Get(k); v != "" {
			header[k] = v
		}
	}
	return &Entry{Status: status, Header: header, Body: r.body.Bytes()}
}
