package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cwygoda/ytclip/internal/adapter/processor"
	"github.com/cwygoda/ytclip/internal/domain"
)

const maxBodyBytes = 1 << 20

// JobRunner runs one job from a raw request body, or records a request
// rejected before its body could be read.
type JobRunner interface {
	Run(ctx context.Context, body []byte, baseURL string) domain.JobResult
	Reject(err error) domain.JobResult
}

// StatusChecker reports tool and directory readiness for the status page.
type StatusChecker interface {
	Check(ctx context.Context) processor.Report
}

// Options configures the HTTP adapter.
type Options struct {
	Addr         string
	OutputDir    string
	OutputFolder string
	// PublicBaseURL overrides the base derived from the request.
	PublicBaseURL    string
	MaxExecutionTime time.Duration
}

// Server is the HTTP adapter for the download service.
type Server struct {
	svc    JobRunner
	status StatusChecker
	opts   Options
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(svc JobRunner, status StatusChecker, opts Options) *Server {
	s := &Server{
		svc:    svc,
		status: status,
		opts:   opts,
		mux:    http.NewServeMux(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.opts.OutputFolder != "" {
		s.mux.HandleFunc("GET /"+s.opts.OutputFolder+"/{file}", s.handleFile)
	}
}

// jobResponse is the JSON body of a successful job.
type jobResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleDocs(w, r)
	case http.MethodPost:
		s.handleJob(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET for documentation or POST with JSON body.")
	}
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = domain.NewJobError(domain.KindTooLarge, "Request body too large.", domain.ErrBodyTooLarge)
		} else {
			err = domain.NewJobError(domain.KindValidation, "Failed to read request body.", fmt.Errorf("%w: %v", domain.ErrBodyRead, err))
		}
		s.respond(w, s.svc.Reject(err))
		return
	}

	// A disconnecting client does not abort the job; the execution ceiling does.
	ctx := context.WithoutCancel(r.Context())
	if s.opts.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.MaxExecutionTime)
		defer cancel()
	}

	s.respond(w, s.svc.Run(ctx, body, s.baseURL(r)))
}

func (s *Server) respond(w http.ResponseWriter, res domain.JobResult) {
	if res.JobID != "" {
		w.Header().Set("X-Job-ID", res.JobID)
	}

	if res.Err != nil {
		log.Printf("job %s: failed (%s): %s", res.JobID, res.Err.Kind, res.Err.Message)
		s.writeError(w, res.HTTPStatus(), res.Err.Message)
		return
	}

	log.Printf("job %s: published %s", res.JobID, res.Filename)
	s.writeJSON(w, http.StatusOK, jobResponse{URL: res.PublicURL, Filename: res.Filename})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if !publishable(name) {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.opts.OutputDir, name))
}

// publishable rejects job logs, hidden files and anything that is not a
// plain file name.
func publishable(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return !strings.EqualFold(filepath.Ext(name), ".log")
}

// baseURL is the configured public base, or scheme and host of the request.
func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicBaseURL != "" {
		return strings.TrimRight(s.opts.PublicBaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Port extracts the port from the address.
func (s *Server) Port() int {
	addr := s.server.Addr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		port, _ := strconv.Atoi(addr[idx+1:])
		return port
	}
	return 0
}
