// Package web serves a live diagram preview to a browser.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/observability"
	"github.com/aretw0/umlpreview/pkg/preview"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxStatusSize bounds page status reports.
const maxStatusSize = 64 * 1024

// Controller is the part of preview.Controller the web preview drives.
type Controller interface {
	Update(ctx context.Context, processingTip bool) error
	SetPageStatus(status string)
}

// Server handles preview requests.
type Server struct {
	hub        *Hub
	controller Controller
	metrics    *observability.Metrics
	version    string
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics exposes metrics on /metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler of the web preview.
func NewHandler(hub *Hub, controller Controller, opts ...Option) http.Handler {
	s := &Server{
		hub:        hub,
		controller: controller,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/", s.Index)
	r.Get("/state", s.State)
	r.Get("/image", s.Image)
	r.Get("/image/{page}", s.Image)
	r.Get("/error-image", s.ErrorImage)
	r.Get("/events", s.SubscribeEvents)
	r.Post("/status", s.SetStatus)
	r.Post("/refresh", s.Refresh)
	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Index renders the preview page.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	v := s.hub.View()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		preview.View
		HasImage bool
		Pages    []int
	}{View: v, HasImage: v.Image() != nil}
	for i := range v.Images {
		data.Pages = append(data.Pages, i)
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("Preview page render failed", "error", err)
	}
}

// State returns the current view as JSON.
func (s *Server) State(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.hub.View()); err != nil {
		s.logger.Error("State response encode failed", "error", err)
	}
}

// Image serves one rendered page, by default the selected one.
func (s *Server) Image(w http.ResponseWriter, r *http.Request) {
	v := s.hub.View()
	img := v.Image()
	if p := chi.URLParam(r, "page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 0 || page >= len(v.Images) {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		img = v.Images[page]
	}
	if img == nil {
		http.Error(w, "no image rendered", http.StatusNotFound)
		return
	}
	writeImage(w, v.Format, img)
}

// ErrorImage serves the image describing the last render error.
func (s *Server) ErrorImage(w http.ResponseWriter, r *http.Request) {
	v := s.hub.View()
	if len(v.ErrorImage) == 0 {
		http.Error(w, "no error image", http.StatusNotFound)
		return
	}
	writeImage(w, v.Format, v.ErrorImage)
}

// SetStatus stores the page state (zoom, scroll) reported by the browser.
func (s *Server) SetStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStatusSize+1))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxStatusSize {
		http.Error(w, "status too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "status must be JSON", http.StatusBadRequest)
		s.logger.Warn("SetStatus: Invalid JSON", "size", len(body))
		return
	}
	s.controller.SetPageStatus(string(body))
	w.WriteHeader(http.StatusNoContent)
}

// Refresh re-renders the current diagram.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Update(r.Context(), true); err != nil {
		http.Error(w, fmt.Sprintf("Refresh error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Refresh failed", "error", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "version": s.version}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SubscribeEvents streams every published view as an SSE message.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.hub.Streams().Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeImage(w http.ResponseWriter, format string, img []byte) {
	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

func contentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "txt", "utxt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

var pageTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>{{if .Diagram}}{{.Diagram}} - {{end}}Preview</title>
<style>
body { font-family: sans-serif; margin: 0; }
#status { display: none; }
.error { color: #b00020; white-space: pre-wrap; padding: 1em; }
.spinner { padding: 1em; color: #888; }
#image img { max-width: 100%; }
</style>
</head>
<body class="{{if .HasError}}error{{end}}">
<div id="status">{{.PageStatus}}</div>
<div id="settings" data-settings="{{.Settings}}"></div>
{{if .ShowSpinner}}<div class="spinner">Rendering…</div>{{end}}
{{if .HasError}}<div class="error">{{.Error}}</div>{{if .ErrorImage}}<img src="/error-image?seq={{.Seq}}" />{{end}}{{end}}
<div id="image">
{{if .HasImage}}<img src="/image?seq={{.Seq}}" alt="{{.Diagram}}" />{{end}}
</div>
<script>
(function () {
  var container = document.getElementById("image");
  var status = {};
  try { status = JSON.parse(document.getElementById("status").textContent || "{}"); } catch (e) {}
  window.scrollTo(status.scrollLeft || 0, status.scrollTop || 0);
  var report = function () {
    fetch("/status", { method: "POST", headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ scrollLeft: window.scrollX, scrollTop: window.scrollY }) });
  };
  window.addEventListener("scroll", function () { clearTimeout(report.t); report.t = setTimeout(report, 200); });
  var events = new EventSource("/events");
  events.onmessage = function () { window.location.reload(); };
})();
</script>
</body>
</html>
`))
