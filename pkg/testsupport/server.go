package testsupport

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Request is a request captured by Server.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
	// Files holds multipart file parts keyed by form field.
	Files map[string]File
}

// File is one multipart file part.
type File struct {
	Filename string
	Data     []byte
}

// JSON decodes the captured body into a generic map.
func (r Request) JSON(t testing.TB) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		t.Fatalf("decode captured body: %v", err)
	}
	return out
}

// Server is a fake generation/template service. Unregistered routes answer
// 404 with a string detail.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{routes: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers h for method and path.
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[strings.ToUpper(method)+" "+path] = h
}

// JSON registers a route answering with a JSON document.
func (s *Server) JSON(method, path string, status int, body any) {
	payload, _ := json.Marshal(body)
	s.Bytes(method, path, status, "application/json", payload)
}

// Bytes registers a route answering with raw bytes.
func (s *Server) Bytes(method, path string, status int, contentType string, data []byte) {
	s.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write(data)
	})
}

// Requests returns the captured requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the captured requests for path.
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, req := range s.Requests() {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	captured := Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
	}
	body, _ := io.ReadAll(r.Body)
	captured.Body = body

	if mediaType, _, err := mime.ParseMediaType(captured.ContentType); err == nil && mediaType == "multipart/form-data" {
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			captured.Files = make(map[string]File)
			for field, headers := range r.MultipartForm.File {
				if len(headers) == 0 {
					continue
				}
				f, err := headers[0].Open()
				if err != nil {
					continue
				}
				data, _ := io.ReadAll(f)
				_ = f.Close()
				captured.Files[field] = File{Filename: headers[0].Filename, Data: data}
			}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, captured)
	handler := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	handler(w, r)
}
